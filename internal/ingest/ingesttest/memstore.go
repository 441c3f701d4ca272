// Package ingesttest provides an in-memory ingest.Store for tests.
package ingesttest

import (
	"context"
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	"bookshelf/internal/ingest"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/types"
)

var ErrStatusRequired = errors.New(`null value in column "status_id" of relation "book" violates not-null constraint`)

type Ref struct {
	Id        int64
	Owner     uuid.UUID
	Name      string
	CountryId *int64
}

type state struct {
	nextId  int64
	refs    map[refs.Table][]Ref
	books   map[int64]types.Book
	authors map[int64][]int64
	labels  map[int64][]int64
}

func (s *state) clone() *state {
	c := &state{
		nextId:  s.nextId,
		refs:    make(map[refs.Table][]Ref, len(s.refs)),
		books:   make(map[int64]types.Book, len(s.books)),
		authors: make(map[int64][]int64, len(s.authors)),
		labels:  make(map[int64][]int64, len(s.labels)),
	}
	for t, rs := range s.refs {
		c.refs[t] = slices.Clone(rs)
	}
	for id, b := range s.books {
		c.books[id] = b
	}
	for id, ids := range s.authors {
		c.authors[id] = slices.Clone(ids)
	}
	for id, ids := range s.labels {
		c.labels[id] = slices.Clone(ids)
	}

	return c
}

// MemStore keeps the catalog in maps. Its exported hooks inject failures.
type MemStore struct {
	mu sync.Mutex
	s  *state

	// FailFind, FailInsert and FailLink return a non-nil error to make the call fail.
	FailFind   func(table refs.Table, name string) error
	FailInsert func(book *types.Book) error
	FailLink   func(table refs.Table, bookId, refId int64) error

	Finds, Upserts, Commits, Rollbacks int
}

func New() *MemStore {
	return &MemStore{s: &state{
		refs:    make(map[refs.Table][]Ref),
		books:   make(map[int64]types.Book),
		authors: make(map[int64][]int64),
		labels:  make(map[int64][]int64),
	}}
}

func (m *MemStore) id() int64 {
	m.s.nextId++
	return m.s.nextId
}

// AddRef seeds a reference row and returns its id. owner is ignored for global tables.
func (m *MemStore) AddRef(table refs.Table, owner uuid.UUID, name string) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.id()
	if !table.UserScoped() {
		owner = uuid.Nil
	}
	m.s.refs[table] = append(m.s.refs[table], Ref{Id: id, Owner: owner, Name: name})

	return id
}

// AddBook seeds a book and returns its id.
func (m *MemStore) AddBook(book types.Book) int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	book.Id = m.id()
	m.s.books[book.Id] = book

	return book.Id
}

func (m *MemStore) Refs(table refs.Table) []Ref {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.s.refs[table])
}

// RefName returns the name behind id in table, "" when unknown.
func (m *MemStore) RefName(table refs.Table, id int64) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, r := range m.s.refs[table] {
		if r.Id == id {
			return r.Name
		}
	}

	return ""
}

func (m *MemStore) Books() []types.Book {
	m.mu.Lock()
	defer m.mu.Unlock()

	ret := make([]types.Book, 0, len(m.s.books))
	for _, b := range m.s.books {
		ret = append(ret, b)
	}
	slices.SortFunc(ret, func(a, b types.Book) int { return int(a.Id - b.Id) })

	return ret
}

func (m *MemStore) Book(id int64) (types.Book, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.s.books[id]
	return b, ok
}

func (m *MemStore) AuthorsOf(bookId int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.s.authors[bookId])
}

func (m *MemStore) LabelsOf(bookId int64) []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	return slices.Clone(m.s.labels[bookId])
}

func (m *MemStore) find(table refs.Table, owner uuid.UUID, name string) int64 {
	for _, r := range m.s.refs[table] {
		if table.UserScoped() && r.Owner != owner {
			continue
		}
		if strings.EqualFold(r.Name, strings.TrimSpace(name)) {
			return r.Id
		}
	}

	return 0
}

func (m *MemStore) FindRef(_ context.Context, table refs.Table, owner uuid.UUID, name string) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Finds++
	if m.FailFind != nil {
		if err := m.FailFind(table, name); err != nil {
			return 0, err
		}
	}

	return m.find(table, owner, name), nil
}

func (m *MemStore) UpsertRef(_ context.Context, table refs.Table, ref refs.NewRef) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Upserts++
	if id := m.find(table, ref.Owner, ref.Name); id != 0 {
		return id, nil
	}

	id := m.id()
	m.s.refs[table] = append(m.s.refs[table], Ref{
		Id:        id,
		Owner:     ref.Owner,
		Name:      strings.TrimSpace(ref.Name),
		CountryId: ref.CountryId,
	})

	return id, nil
}

func isbnOf(b *types.Book, kind books.Isbn) *string {
	if kind == books.Isbn10 {
		return b.Isbn10
	}

	return b.Isbn13
}

func (m *MemStore) isbnTaken(owner uuid.UUID, kind books.Isbn, isbn string, except int64) bool {
	for id, b := range m.s.books {
		if id == except || b.UserId != owner {
			continue
		}
		if v := isbnOf(&b, kind); v != nil && *v == isbn {
			return true
		}
	}

	return false
}

func (m *MemStore) IsbnExists(_ context.Context, owner uuid.UUID, kind books.Isbn, isbn string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.isbnTaken(owner, kind, isbn, 0), nil
}

func (m *MemStore) InsertBook(_ context.Context, book *types.Book) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.FailInsert != nil {
		if err := m.FailInsert(book); err != nil {
			return 0, err
		}
	}

	if book.StatusId == nil {
		return 0, ErrStatusRequired
	}

	for _, kind := range []books.Isbn{books.Isbn10, books.Isbn13} {
		if v := isbnOf(book, kind); v != nil && m.isbnTaken(book.UserId, kind, *v, 0) {
			return 0, books.ErrDuplicateIsbn
		}
	}

	b := *book
	b.Id = m.id()
	m.s.books[b.Id] = b

	return b.Id, nil
}

func setColumn(b *types.Book, col books.Column, v any) error {
	str := func() *string {
		switch v := v.(type) {
		case string:
			return &v
		case *string:
			return v
		}
		return nil
	}
	i32 := func() *int32 {
		switch v := v.(type) {
		case int32:
			return &v
		case *int32:
			return v
		}
		return nil
	}
	i64 := func() *int64 {
		switch v := v.(type) {
		case int64:
			return &v
		case *int64:
			return v
		}
		return nil
	}

	switch col {
	case books.ColTitle:
		if s := str(); s != nil {
			b.Title = *s
		}
	case books.ColOriginalTitle:
		b.OriginalTitle = str()
	case books.ColIsbn10:
		b.Isbn10 = str()
	case books.ColIsbn13:
		b.Isbn13 = str()
	case books.ColNotes:
		b.Notes = str()
	case books.ColPublicationYear:
		b.PublicationYear = i32()
	case books.ColOriginalPublicationYear:
		b.OriginalPublicationYear = i32()
	case books.ColNumPages:
		b.NumPages = i32()
	case books.ColLanguage:
		b.LanguageId = i64()
	case books.ColOriginalLanguage:
		b.OriginalLanguageId = i64()
	case books.ColLibrary:
		b.LibraryLocationId = i64()
	case books.ColStatus:
		b.StatusId = i64()
		if b.StatusId == nil {
			return ErrStatusRequired
		}
	case books.ColPublisher:
		b.PublisherId = i64()
	case books.ColType:
		b.TypeId = i64()
	case books.ColGroup:
		b.GroupId = i64()
	case books.ColTranslator:
		b.TranslatorId = i64()
	default:
		return errors.New("unknown column " + string(col))
	}

	return nil
}

func (m *MemStore) PatchBook(_ context.Context, owner uuid.UUID, id int64, patch books.Patch) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.s.books[id]
	if !ok || b.UserId != owner {
		return 0, nil
	}

	for col, v := range patch {
		if err := setColumn(&b, col, v); err != nil {
			return 0, err
		}
	}

	for _, kind := range []books.Isbn{books.Isbn10, books.Isbn13} {
		if v := isbnOf(&b, kind); v != nil && m.isbnTaken(owner, kind, *v, id) {
			return 0, books.ErrDuplicateIsbn
		}
	}

	m.s.books[id] = b
	return 1, nil
}

func (m *MemStore) OwnsBook(_ context.Context, owner uuid.UUID, id int64) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	b, ok := m.s.books[id]
	return ok && b.UserId == owner, nil
}

func (m *MemStore) link(table refs.Table, links map[int64][]int64, bookId int64, ids []int64) error {
	for _, id := range ids {
		if m.FailLink != nil {
			if err := m.FailLink(table, bookId, id); err != nil {
				return err
			}
		}
		if !slices.Contains(links[bookId], id) {
			links[bookId] = append(links[bookId], id)
		}
	}

	return nil
}

func (m *MemStore) LinkAuthor(_ context.Context, bookId int64, authorIds ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.link(refs.Author, m.s.authors, bookId, authorIds)
}

func (m *MemStore) LinkLabel(_ context.Context, bookId int64, labelIds ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.link(refs.Label, m.s.labels, bookId, labelIds)
}

func (m *MemStore) ReplaceAuthors(_ context.Context, bookId int64, authorIds ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.s.authors, bookId)
	return m.link(refs.Author, m.s.authors, bookId, authorIds)
}

func (m *MemStore) ReplaceLabels(_ context.Context, bookId int64, labelIds ...int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.s.labels, bookId)
	return m.link(refs.Label, m.s.labels, bookId, labelIds)
}

// Atomically snapshots the whole store and restores it when fn fails.
func (m *MemStore) Atomically(_ context.Context, fn func(tx ingest.Store) error) error {
	m.mu.Lock()
	snapshot := m.s.clone()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.s = snapshot
		m.Rollbacks++
		m.mu.Unlock()
		return err
	}

	m.mu.Lock()
	m.Commits++
	m.mu.Unlock()

	return nil
}
