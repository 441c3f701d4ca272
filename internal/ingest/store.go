package ingest

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/conn"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

// Store is the part of the catalog storage the bulk pipelines work against.
type Store interface {
	// FindRef returns 0 when table holds no row with that name (case-insensitive).
	FindRef(ctx context.Context, table refs.Table, owner uuid.UUID, name string) (int64, error)
	UpsertRef(ctx context.Context, table refs.Table, ref refs.NewRef) (int64, error)
	IsbnExists(ctx context.Context, owner uuid.UUID, kind books.Isbn, isbn string) (bool, error)

	InsertBook(ctx context.Context, book *types.Book) (int64, error)
	PatchBook(ctx context.Context, owner uuid.UUID, id int64, patch books.Patch) (int64, error)
	OwnsBook(ctx context.Context, owner uuid.UUID, id int64) (bool, error)

	LinkAuthor(ctx context.Context, bookId int64, authorIds ...int64) error
	LinkLabel(ctx context.Context, bookId int64, labelIds ...int64) error
	ReplaceAuthors(ctx context.Context, bookId int64, authorIds ...int64) error
	ReplaceLabels(ctx context.Context, bookId int64, labelIds ...int64) error

	// Atomically runs fn with a Store whose writes are all committed or all discarded.
	Atomically(ctx context.Context, fn func(tx Store) error) error
}

func NewPGXStore(db conn.DB, l *slog.Logger) Store {
	return &pgxStore{
		db:    db,
		books: books.NewPGXRepository(db, l),
		refs:  refs.NewPGXRepository(db, l),
		l:     l,
	}
}

type pgxStore struct {
	db    conn.DB
	books books.Repository
	refs  refs.Repository
	l     *slog.Logger
}

func (s *pgxStore) FindRef(ctx context.Context, table refs.Table, owner uuid.UUID, name string) (int64, error) {
	return s.refs.FindId(ctx, table, owner, name)
}

func (s *pgxStore) UpsertRef(ctx context.Context, table refs.Table, ref refs.NewRef) (int64, error) {
	return s.refs.Upsert(ctx, table, ref)
}

func (s *pgxStore) IsbnExists(ctx context.Context, owner uuid.UUID, kind books.Isbn, isbn string) (bool, error) {
	return s.books.IsbnExists(ctx, owner, kind, isbn)
}

func (s *pgxStore) InsertBook(ctx context.Context, book *types.Book) (int64, error) {
	return s.books.Insert(ctx, book)
}

func (s *pgxStore) PatchBook(ctx context.Context, owner uuid.UUID, id int64, patch books.Patch) (int64, error) {
	return s.books.Patch(ctx, owner, id, patch)
}

func (s *pgxStore) OwnsBook(ctx context.Context, owner uuid.UUID, id int64) (bool, error) {
	return s.books.Owns(ctx, owner, id)
}

func (s *pgxStore) LinkAuthor(ctx context.Context, bookId int64, authorIds ...int64) error {
	return s.books.LinkAuthor(ctx, bookId, authorIds...)
}

func (s *pgxStore) LinkLabel(ctx context.Context, bookId int64, labelIds ...int64) error {
	return s.books.LinkLabel(ctx, bookId, labelIds...)
}

func (s *pgxStore) ReplaceAuthors(ctx context.Context, bookId int64, authorIds ...int64) error {
	return s.books.ReplaceAuthors(ctx, bookId, authorIds...)
}

func (s *pgxStore) ReplaceLabels(ctx context.Context, bookId int64, labelIds ...int64) error {
	return s.books.ReplaceLabels(ctx, bookId, labelIds...)
}

func (s *pgxStore) Atomically(ctx context.Context, fn func(tx Store) error) error {
	return conn.InTx(ctx, s.db, func(tx pgx.Tx) error {
		return fn(NewPGXStore(tx, s.l))
	})
}
