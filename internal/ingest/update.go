package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/google/uuid"
)

var (
	ErrMissingBookIdColumn = errors.New("Missing required 'bookId' column.")
	ErrMissingBookId       = errors.New("Missing bookId")
)

// ParseUpdateHeader checks the header of an update file and returns the field it sets together
// with the column holding the new values.
func ParseUpdateHeader(header []string) (Field, string, error) {
	if len(header) != 2 {
		return 0, "", fmt.Errorf("File must have exactly 2 columns. Found %d columns.", len(header))
	}

	column := ""
	hasBookId := false
	for _, h := range header {
		if h == "bookid" {
			hasBookId = true
		} else {
			column = h
		}
	}

	if !hasBookId {
		return 0, "", ErrMissingBookIdColumn
	}

	field, err := ParseField(column)
	if err != nil {
		return 0, "", err
	}

	return field, column, nil
}

// Updater applies a single-field update file to the owner's books.
type Updater struct {
	store  Store
	policy Policy
	l      *slog.Logger
}

func NewUpdater(store Store, policy Policy, l *slog.Logger) *Updater {
	return &Updater{store: store, policy: policy, l: l}
}

// Update sets field from column on every row's book. Books the owner does not have are reported as
// unmatched before anything is resolved or created. Rows are independent: a failure is counted and the
// next row is processed. Only a cancelled ctx stops the batch early.
func (u *Updater) Update(ctx context.Context, owner uuid.UUID, field Field, column string, rows []Row) (*Summary, error) {
	def, ok := fields[field]
	if !ok {
		return nil, fmt.Errorf("unsupported field %d", field)
	}

	sum := &Summary{}
	res := NewResolver(u.store, owner)

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		raw := row.Value("bookid")
		if raw == "" {
			sum.fail(row.N, "", ErrMissingBookId.Error())
			continue
		}

		bookId, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			sum.fail(row.N, raw, "bookId must be a whole number")
			continue
		}

		owns, err := u.store.OwnsBook(ctx, owner, bookId)
		if err != nil {
			sum.fail(row.N, raw, describe(err))
			continue
		}
		if !owns {
			sum.unmatched(row.N, raw)
			continue
		}

		t := &target{store: u.store, res: res, policy: u.policy, owner: owner, bookId: bookId}

		matched, warnings, err := def.apply(ctx, t, row.Raw(column))
		switch {
		case err != nil:
			u.l.DebugContext(ctx, "Update of book "+raw+" failed: "+err.Error())
			sum.fail(row.N, raw, describe(err))
		case !matched:
			sum.unmatched(row.N, raw)
		default:
			sum.Succeeded++
			for _, w := range warnings {
				sum.warn(row.N, raw, w)
			}
		}
	}

	u.l.InfoContext(ctx, "Update of "+def.name+" finished for "+owner.String()+": "+
		strconv.Itoa(sum.Succeeded)+" successful, "+strconv.Itoa(sum.Failed)+" failed, "+
		strconv.Itoa(sum.Unmatched)+" unmatched")

	return sum, nil
}
