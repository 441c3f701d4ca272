package ingest

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/conn"
	"bookshelf/internal/storage/refs"
)

// Statuses maps the accepted status spellings to the names stored in the status table.
var Statuses = map[string]string{
	"read":           "Read",
	"owned":          "Owned",
	"not applicable": "Not Applicable",
}

const allowedStatuses = "read, owned, not applicable"

// CanonicalStatus returns the stored name of a status given in any case.
func CanonicalStatus(s string) (string, bool) {
	name, ok := Statuses[strings.ToLower(strings.TrimSpace(s))]
	return name, ok
}

type Verdict struct {
	Valid  bool
	Reason string
}

func accept() Verdict {
	return Verdict{Valid: true}
}

func reject(format string, args ...any) Verdict {
	return Verdict{Reason: fmt.Sprintf(format, args...)}
}

func cannotCheck(what string, err error) Verdict {
	return reject("Could not check %s: %s", what, conn.Message(err))
}

type ValidatorOptions struct {
	// RejectBatchDuplicates also rejects an ISBN used by an earlier valid row of the same file.
	RejectBatchDuplicates bool
}

// Validator decides whether an import row may be ingested. It never writes to the store.
type Validator struct {
	store Store
	owner uuid.UUID
	opts  ValidatorOptions

	seen map[books.Isbn]map[string]int
}

func NewValidator(store Store, owner uuid.UUID, opts ValidatorOptions) *Validator {
	return &Validator{
		store: store,
		owner: owner,
		opts:  opts,
		seen: map[books.Isbn]map[string]int{
			books.Isbn10: {},
			books.Isbn13: {},
		},
	}
}

// parseInt accepts an optionally signed base-10 integer that fits a column of type integer.
func parseInt(s string) (*int32, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	v, err := strconv.ParseInt(s, 10, 32)
	if err != nil {
		return nil, err
	}

	n := int32(v)
	return &n, nil
}

var numericColumns = []struct {
	column  string
	message string
}{
	{"numpages", "Number of pages must be a valid number"},
	{"publicationyear", "Publication year must be a valid number"},
	{"originalpublicationyear", "Original publication year must be a valid number"},
}

// Validate runs the checks in order and reports the first that fails.
func (v *Validator) Validate(ctx context.Context, row Row) Verdict {
	if row.Value("title") == "" {
		return reject("Missing title")
	}

	library := row.Value("library")
	if library == "" {
		return reject("Missing library")
	}
	if id, err := v.store.FindRef(ctx, refs.LibraryLocation, v.owner, library); err != nil {
		return cannotCheck("library", err)
	} else if id == 0 {
		return reject("Library %q does not exist in your library locations", library)
	}

	language := row.Value("language")
	if language == "" {
		return reject("Missing language")
	}
	if id, err := v.store.FindRef(ctx, refs.Language, v.owner, language); err != nil {
		return cannotCheck("language", err)
	} else if id == 0 {
		return reject("Language %q does not exist", language)
	}

	status := row.Value("status")
	if status == "" {
		return reject("Missing status")
	}
	if _, ok := CanonicalStatus(status); !ok {
		return reject("Invalid status: %q. Allowed: %s", status, allowedStatuses)
	}

	for _, isbn := range []struct {
		kind  books.Isbn
		label string
	}{{books.Isbn10, "ISBN10"}, {books.Isbn13, "ISBN13"}} {
		value := row.Value(string(isbn.kind))
		if value == "" {
			continue
		}

		exists, err := v.store.IsbnExists(ctx, v.owner, isbn.kind, value)
		if err != nil {
			return cannotCheck(isbn.label, err)
		}
		if exists {
			return reject("%s already exists", isbn.label)
		}

		if v.opts.RejectBatchDuplicates {
			if _, dup := v.seen[isbn.kind][value]; dup {
				return reject("%s is duplicated within this file", isbn.label)
			}
		}
	}

	if original := row.Value("originallanguage"); original != "" {
		if id, err := v.store.FindRef(ctx, refs.Language, v.owner, original); err != nil {
			return cannotCheck("original language", err)
		} else if id == 0 {
			return reject("Original language %q does not exist", original)
		}
	}

	for _, nc := range numericColumns {
		if _, err := parseInt(row.Value(nc.column)); err != nil {
			return reject("%s", nc.message)
		}
	}

	for kind, seen := range v.seen {
		if value := row.Value(string(kind)); value != "" {
			seen[value] = row.N
		}
	}

	return accept()
}

// Rejection is an invalid row together with the reason it was ignored.
type Rejection struct {
	Row    Row
	Reason string
}

type Validation struct {
	Valid   []Row
	Invalid []Rejection
}

// ValidateAll validates rows one after another, keeping their order inside both partitions.
// It stops early only when ctx is done.
func (v *Validator) ValidateAll(ctx context.Context, rows []Row) (*Validation, error) {
	ret := &Validation{}

	for _, row := range rows {
		if err := ctx.Err(); err != nil {
			return ret, err
		}

		if verdict := v.Validate(ctx, row); verdict.Valid {
			ret.Valid = append(ret.Valid, row)
		} else {
			ret.Invalid = append(ret.Invalid, Rejection{Row: row, Reason: verdict.Reason})
		}
	}

	return ret, nil
}
