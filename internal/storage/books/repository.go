package books

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

var ErrDuplicateIsbn = errors.New("a book with this ISBN already exists in your collection")

// Isbn names one of the two natural-key columns of a book.
type Isbn string

const (
	Isbn10 Isbn = "isbn10"
	Isbn13 Isbn = "isbn13"
)

type Column string

const (
	ColTitle                   Column = "name"
	ColOriginalTitle           Column = "original_title"
	ColIsbn10                  Column = "isbn10"
	ColIsbn13                  Column = "isbn13"
	ColPublicationYear         Column = "publication_year"
	ColOriginalPublicationYear Column = "original_publication_year"
	ColNumPages                Column = "num_pages"
	ColNotes                   Column = "notes"
	ColLanguage                Column = "language_id"
	ColOriginalLanguage        Column = "original_language_id"
	ColLibrary                 Column = "library_location_id"
	ColStatus                  Column = "status_id"
	ColPublisher               Column = "publisher_id"
	ColType                    Column = "type_id"
	ColGroup                   Column = "group_id"
	ColTranslator              Column = "translator_id"
)

// Patch maps columns to their new values. A nil value (or nil pointer) clears the column.
type Patch map[Column]any

type Repository interface {
	GetById(ctx context.Context, owner uuid.UUID, id int64) (*types.Book, error)
	Owns(ctx context.Context, owner uuid.UUID, id int64) (bool, error)
	IsbnExists(ctx context.Context, owner uuid.UUID, kind Isbn, isbn string) (bool, error)

	Insert(ctx context.Context, book *types.Book) (int64, error)
	// Patch updates the book only if owner owns it, returning the number of rows changed.
	Patch(ctx context.Context, owner uuid.UUID, id int64, patch Patch) (int64, error)
	Delete(ctx context.Context, owner uuid.UUID, id int64) (bool, error)

	LinkAuthor(ctx context.Context, bookId int64, authorIds ...int64) error
	LinkLabel(ctx context.Context, bookId int64, labelIds ...int64) error
	ReplaceAuthors(ctx context.Context, bookId int64, authorIds ...int64) error
	ReplaceLabels(ctx context.Context, bookId int64, labelIds ...int64) error

	// AttachAuthor and friends link records only when both belong to owner.
	AttachAuthor(ctx context.Context, owner uuid.UUID, bookId, authorId int64) (bool, error)
	DetachAuthor(ctx context.Context, owner uuid.UUID, bookId, authorId int64) (bool, error)
	AttachLabel(ctx context.Context, owner uuid.UUID, bookId, labelId int64) (bool, error)
	DetachLabel(ctx context.Context, owner uuid.UUID, bookId, labelId int64) (bool, error)

	Search(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.BookView, error)
}
