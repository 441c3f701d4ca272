package ingest

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"bookshelf/internal/storage/conn"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

type UploadOptions struct {
	Policy Policy
	// Atomic writes every row in its own transaction: a row is stored with all its links or not at all.
	Atomic bool
}

// Uploader writes validated import rows to the store.
type Uploader struct {
	store Store
	opts  UploadOptions
	l     *slog.Logger
}

func NewUploader(store Store, opts UploadOptions, l *slog.Logger) *Uploader {
	return &Uploader{store: store, opts: opts, l: l}
}

// foreign keys resolved before the book is inserted
type rowRefs struct {
	publisher, bookType, group, translator *int64
	language, originalLanguage, library    *int64
	status, country                        *int64
}

func splitLabels(s string) []string {
	var ret []string
	for _, label := range strings.Split(s, ",") {
		if label = strings.TrimSpace(label); label != "" {
			ret = append(ret, label)
		}
	}

	return ret
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}

	return &s
}

// resolve looks up every foreign key of row concurrently. Failed lookups become warnings under the
// lenient policy and fail the row under the strict one.
func (u *Uploader) resolve(ctx context.Context, res *Resolver, row Row, serial bool) (*rowRefs, []string, error) {
	ret := &rowRefs{}

	status := row.Value("status")
	if canonical, ok := CanonicalStatus(status); ok {
		status = canonical
	}

	targets := []struct {
		table refs.Table
		name  string
		dst   **int64
	}{
		{refs.Publisher, row.Value("publisher"), &ret.publisher},
		{refs.Type, row.Value("type"), &ret.bookType},
		{refs.Group, row.Value("group"), &ret.group},
		{refs.Author, row.Value("translator"), &ret.translator},
		{refs.Language, row.Value("language"), &ret.language},
		{refs.Language, row.Value("originallanguage"), &ret.originalLanguage},
		{refs.LibraryLocation, row.Value("library"), &ret.library},
		{refs.Status, status, &ret.status},
		{refs.Country, row.Value("country"), &ret.country},
	}

	var (
		mu       sync.Mutex
		warnings []string
	)

	g, gctx := errgroup.WithContext(ctx)
	if serial {
		g.SetLimit(1)
	}

	for _, t := range targets {
		if t.name == "" {
			continue
		}

		g.Go(func() error {
			id, err := res.Resolve(gctx, t.table, t.name, Extra{})
			if err != nil {
				if u.opts.Policy == Strict {
					return err
				}

				mu.Lock()
				warnings = append(warnings, err.Error()+", left empty")
				mu.Unlock()
				return nil
			}

			*t.dst = id
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return ret, warnings, nil
}

func newBook(owner uuid.UUID, row Row, r *rowRefs) *types.Book {
	book := &types.Book{
		UserId:             owner,
		Title:              row.Value("title"),
		OriginalTitle:      optional(row.Raw("originaltitle")),
		Isbn10:             optional(row.Raw("isbn10")),
		Isbn13:             optional(row.Raw("isbn13")),
		Notes:              optional(row.Raw("notes")),
		LanguageId:         r.language,
		OriginalLanguageId: r.originalLanguage,
		LibraryLocationId:  r.library,
		StatusId:           r.status,
		PublisherId:        r.publisher,
		TypeId:             r.bookType,
		GroupId:            r.group,
		TranslatorId:       r.translator,
	}

	// validated already
	book.PublicationYear, _ = parseInt(row.Value("publicationyear"))
	book.OriginalPublicationYear, _ = parseInt(row.Value("originalpublicationyear"))
	book.NumPages, _ = parseInt(row.Value("numpages"))

	return book
}

// link attaches the author and labels of row to the new book. In strict mode the first failure is
// returned; otherwise failures come back as warnings.
func (u *Uploader) link(ctx context.Context, res *Resolver, store Store, bookId int64, row Row, country *int64,
	strict bool) ([]string, error) {

	var warnings []string

	failed := func(what, name string, err error) error {
		msg := "Could not link " + what + " \"" + name + "\": " + conn.Message(err)
		if strict {
			return errors.New(msg)
		}

		warnings = append(warnings, msg)
		return nil
	}

	if author := row.Value("author"); author != "" {
		id, err := res.Resolve(ctx, refs.Author, author, Extra{CountryId: country})
		if err == nil {
			err = store.LinkAuthor(ctx, bookId, *id)
		}
		if err != nil {
			if err := failed("author", author, err); err != nil {
				return nil, err
			}
		}
	}

	labels := row.Value("labels")
	if labels == "" {
		labels = row.Value("label")
	}

	for _, label := range splitLabels(labels) {
		id, err := res.Resolve(ctx, refs.Label, label, Extra{})
		if err == nil {
			err = store.LinkLabel(ctx, bookId, *id)
		}
		if err != nil {
			if err := failed("label", label, err); err != nil {
				return nil, err
			}
		}
	}

	return warnings, nil
}

// ingest writes a single row through store and returns its warnings.
func (u *Uploader) ingest(ctx context.Context, res *Resolver, store Store, owner uuid.UUID, row Row) ([]string, error) {
	r, warnings, err := u.resolve(ctx, res, row, u.opts.Atomic)
	if err != nil {
		return nil, err
	}

	bookId, err := store.InsertBook(ctx, newBook(owner, row, r))
	if err != nil {
		return nil, err
	}

	linkWarnings, err := u.link(ctx, res, store, bookId, row, r.country, u.opts.Atomic)
	if err != nil {
		return nil, err
	}

	return append(warnings, linkWarnings...), nil
}

// describe prefers the server message of a store error over the driver's formatting.
func describe(err error) string {
	var re *ResolutionError
	if errors.As(err, &re) {
		return re.Error()
	}

	return conn.Message(err)
}

// Upload writes rows strictly one after another. A failing row is counted and skipped. The returned
// error is only ever the context's, and the summary then covers the rows processed so far.
func (u *Uploader) Upload(ctx context.Context, owner uuid.UUID, rows []Row) (*Summary, error) {
	sum := &Summary{}
	res := NewResolver(u.store, owner)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		var (
			warnings []string
			err      error
		)

		if u.opts.Atomic {
			var child *Resolver

			err = u.store.Atomically(ctx, func(tx Store) error {
				child = res.Child(tx)

				var err error
				warnings, err = u.ingest(ctx, child, tx, owner, row)
				return err
			})
			if err == nil {
				child.Commit()
			}
		} else {
			warnings, err = u.ingest(ctx, res, u.store, owner, row)
		}

		if err != nil {
			u.l.DebugContext(ctx, "Row "+strconv.Itoa(row.N)+" failed: "+err.Error())
			sum.fail(row.N, "", describe(err))
			continue
		}

		sum.Succeeded++
		for _, w := range warnings {
			sum.warn(row.N, "", w)
		}
	}

	u.l.InfoContext(ctx, "Upload finished for "+owner.String()+": "+
		strconv.Itoa(sum.Succeeded)+" successful, "+strconv.Itoa(sum.Failed)+" failed")

	return sum, nil
}
