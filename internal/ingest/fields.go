package ingest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/refs"
)

// Field is a book attribute the update pipeline can set.
type Field uint8

const (
	FieldTitle Field = iota + 1
	FieldOriginalTitle
	FieldIsbn10
	FieldIsbn13
	FieldPublicationYear
	FieldOriginalPublicationYear
	FieldNumPages
	FieldNotes
	FieldLanguage
	FieldOriginalLanguage
	FieldTranslator
	FieldStatus
	FieldLibrary
	FieldPublisher
	FieldType
	FieldGroup
	FieldAuthor
	FieldLabels
)

type FieldKind uint8

const (
	// Direct fields are columns of the book itself.
	Direct FieldKind = iota + 1
	// ForeignKey fields name a row of a reference table.
	ForeignKey
	// Relationship fields replace the book's join rows.
	Relationship
)

// target is the book a single update row applies to.
type target struct {
	store  Store
	res    *Resolver
	policy Policy
	owner  uuid.UUID
	bookId int64
}

// applyFunc sets value on the target book. matched is false when the owner has no such book.
type applyFunc func(ctx context.Context, t *target, value string) (matched bool, warnings []string, err error)

type fieldDef struct {
	name  string
	kind  FieldKind
	apply applyFunc
}

var fields = map[Field]fieldDef{
	FieldTitle:                   {"title", Direct, setText(books.ColTitle, true)},
	FieldOriginalTitle:           {"originaltitle", Direct, setText(books.ColOriginalTitle, false)},
	FieldIsbn10:                  {"isbn10", Direct, setText(books.ColIsbn10, false)},
	FieldIsbn13:                  {"isbn13", Direct, setText(books.ColIsbn13, false)},
	FieldPublicationYear:         {"publicationyear", Direct, setInt(books.ColPublicationYear, "Publication year must be a valid number")},
	FieldOriginalPublicationYear: {"originalpublicationyear", Direct, setInt(books.ColOriginalPublicationYear, "Original publication year must be a valid number")},
	FieldNumPages:                {"numpages", Direct, setInt(books.ColNumPages, "Number of pages must be a valid number")},
	FieldNotes:                   {"notes", Direct, setText(books.ColNotes, false)},
	FieldLanguage:                {"language", ForeignKey, setRef(books.ColLanguage, refs.Language)},
	FieldOriginalLanguage:        {"originallanguage", ForeignKey, setRef(books.ColOriginalLanguage, refs.Language)},
	FieldTranslator:              {"translator", ForeignKey, setRef(books.ColTranslator, refs.Author)},
	FieldStatus:                  {"status", ForeignKey, setStatus},
	FieldLibrary:                 {"library", ForeignKey, setRef(books.ColLibrary, refs.LibraryLocation)},
	FieldPublisher:               {"publisher", ForeignKey, setRef(books.ColPublisher, refs.Publisher)},
	FieldType:                    {"type", ForeignKey, setRef(books.ColType, refs.Type)},
	FieldGroup:                   {"group", ForeignKey, setRef(books.ColGroup, refs.Group)},
	FieldAuthor:                  {"author", Relationship, replaceLinks(refs.Author, false)},
	FieldLabels:                  {"label", Relationship, replaceLinks(refs.Label, true)},
}

// AcceptedFields lists the header names an update file may use, in display order.
var AcceptedFields = []string{
	"title", "originaltitle", "isbn10", "isbn13", "publicationyear", "originalpublicationyear", "numpages",
	"notes", "language", "originallanguage", "translator", "status", "library", "publisher", "type", "group",
	"author", "label", "labels",
}

func (f Field) String() string {
	if def, ok := fields[f]; ok {
		return def.name
	}

	return "unknown"
}

func (f Field) Kind() FieldKind {
	return fields[f].kind
}

// ParseField maps an update header name to its field.
func ParseField(name string) (Field, error) {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "labels" {
		return FieldLabels, nil
	}

	for f, def := range fields {
		if def.name == name {
			return f, nil
		}
	}

	return 0, fmt.Errorf("Invalid field name: %q. Accepted fields: %s", name, strings.Join(AcceptedFields, ", "))
}

func patch(ctx context.Context, t *target, col books.Column, value any) (bool, error) {
	n, err := t.store.PatchBook(ctx, t.owner, t.bookId, books.Patch{col: value})
	return n > 0, err
}

func setText(col books.Column, required bool) applyFunc {
	return func(ctx context.Context, t *target, value string) (bool, []string, error) {
		v := optional(value)
		if v == nil && required {
			return false, nil, errors.New("Title cannot be empty")
		}

		matched, err := patch(ctx, t, col, v)
		return matched, nil, err
	}
}

func setInt(col books.Column, message string) applyFunc {
	return func(ctx context.Context, t *target, value string) (bool, []string, error) {
		v, err := parseInt(value)
		if err != nil {
			return false, nil, errors.New(message)
		}

		matched, err := patch(ctx, t, col, v)
		return matched, nil, err
	}
}

// resolveFK applies the resolution policy to a single name.
func resolveFK(ctx context.Context, t *target, table refs.Table, name string) (*int64, []string, error) {
	id, err := t.res.Resolve(ctx, table, name, Extra{})
	if err != nil {
		if t.policy == Strict {
			return nil, nil, err
		}

		return nil, []string{err.Error() + ", left empty"}, nil
	}

	return id, nil, nil
}

func setRef(col books.Column, table refs.Table) applyFunc {
	return func(ctx context.Context, t *target, value string) (bool, []string, error) {
		id, warnings, err := resolveFK(ctx, t, table, value)
		if err != nil {
			return false, nil, err
		}

		matched, err := patch(ctx, t, col, id)
		return matched, warnings, err
	}
}

func setStatus(ctx context.Context, t *target, value string) (bool, []string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return false, nil, errors.New("Missing status")
	}

	name, ok := CanonicalStatus(value)
	if !ok {
		return false, nil, fmt.Errorf("Invalid status: %q. Allowed: %s", value, allowedStatuses)
	}

	return setRef(books.ColStatus, refs.Status)(ctx, t, name)
}

// replaceLinks swaps all author or label links of the book for the names in value. The caller has
// checked that the owner has the book.
func replaceLinks(table refs.Table, list bool) applyFunc {
	return func(ctx context.Context, t *target, value string) (bool, []string, error) {
		names := splitLabels(value)
		if !list {
			names = nil
			if v := strings.TrimSpace(value); v != "" {
				names = []string{v}
			}
		}

		var (
			warnings []string
			child    *Resolver
		)

		err := t.store.Atomically(ctx, func(tx Store) error {
			child = t.res.Child(tx)
			warnings = nil

			ids := make([]int64, 0, len(names))
			for _, name := range names {
				id, ws, err := resolveFK(ctx, &target{res: child, policy: t.policy}, table, name)
				if err != nil {
					return err
				}

				warnings = append(warnings, ws...)
				if id != nil {
					ids = append(ids, *id)
				}
			}

			if table == refs.Author {
				return tx.ReplaceAuthors(ctx, t.bookId, ids...)
			}

			return tx.ReplaceLabels(ctx, t.bookId, ids...)
		})
		if err != nil {
			return true, nil, err
		}

		child.Commit()
		return true, warnings, nil
	}
}
