package ingest

import (
	"context"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

type Options struct {
	Policy                Policy
	Atomic                bool
	RejectBatchDuplicates bool
}

// RunRecorder keeps the history of batches.
type RunRecorder interface {
	Save(ctx context.Context, run *types.IngestRun) (int64, error)
}

// Service runs whole import and update files: parse, validate, write, report.
type Service struct {
	store Store
	runs  RunRecorder
	opts  Options
	l     *slog.Logger
	now   func() time.Time
}

func NewService(store Store, runs RunRecorder, opts Options, l *slog.Logger) *Service {
	return &Service{store: store, runs: runs, opts: opts, l: l, now: time.Now}
}

func (s *Service) record(ctx context.Context, owner uuid.UUID, report *Report, started time.Time) {
	if s.runs == nil {
		return
	}

	_, err := s.runs.Save(ctx, report.Run(owner, started, s.now().Sub(started)))
	if err != nil {
		s.l.ErrorContext(ctx, "Failed to record "+string(report.Kind)+" run: "+err.Error())
	}
}

// Import validates every row of the file first, then writes the valid ones. Errors are returned only
// for problems with the file as a whole; per-row problems end up in the report.
func (s *Service) Import(ctx context.Context, owner uuid.UUID, r io.Reader) (*Report, error) {
	started := s.now()

	sheet, err := ReadSheet(r)
	if err != nil {
		return nil, &FileError{Err: err}
	}

	if err := sheet.Require(RequiredColumns...); err != nil {
		return nil, &FileError{Err: err}
	}

	validator := NewValidator(s.store, owner, ValidatorOptions{RejectBatchDuplicates: s.opts.RejectBatchDuplicates})

	validation, err := validator.ValidateAll(ctx, sheet.Rows)
	if err != nil {
		return nil, err
	}

	summary := &Summary{}
	if len(validation.Valid) > 0 {
		uploader := NewUploader(s.store, UploadOptions{Policy: s.opts.Policy, Atomic: s.opts.Atomic}, s.l)

		summary, err = uploader.Upload(ctx, owner, validation.Valid)
		if err != nil {
			s.l.WarnContext(ctx, "Import interrupted: "+err.Error())
		}
	}

	report := NewImportReport(validation, summary)
	s.record(context.WithoutCancel(ctx), owner, report, started)

	return report, err
}

// Update applies a two-column update file.
func (s *Service) Update(ctx context.Context, owner uuid.UUID, r io.Reader) (*Report, error) {
	started := s.now()

	sheet, err := ReadSheet(r)
	if err != nil {
		return nil, &FileError{Err: err}
	}

	field, column, err := ParseUpdateHeader(sheet.Header)
	if err != nil {
		return nil, &FileError{Err: err}
	}

	summary, err := NewUpdater(s.store, s.opts.Policy, s.l).Update(ctx, owner, field, column, sheet.Rows)
	if summary == nil {
		return nil, err
	}
	if err != nil {
		s.l.WarnContext(ctx, "Update interrupted: "+err.Error())
	}

	report := NewUpdateReport(field, summary)
	s.record(context.WithoutCancel(ctx), owner, report, started)

	return report, err
}
