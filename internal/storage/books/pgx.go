package books

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/doug-martin/goqu/v9"
	"github.com/doug-martin/goqu/v9/exp"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"bookshelf/internal/storage/conn"
	"bookshelf/internal/types"
)

func NewPGXRepository(db conn.DB, l *slog.Logger) Repository {
	return &pgxRepo{db: db, g: goqu.Dialect("postgres"), l: l}
}

type pgxRepo struct {
	db conn.DB
	g  goqu.DialectWrapper
	l  *slog.Logger
}

// Field order mirrors types.Book so the two convert into each other.
type pgxBook struct {
	Id                      int64     `db:"id" goqu:"skipinsert"`
	UserId                  uuid.UUID `db:"user_id"`
	Title                   string    `db:"name"`
	OriginalTitle           *string   `db:"original_title"`
	Isbn10                  *string   `db:"isbn10"`
	Isbn13                  *string   `db:"isbn13"`
	PublicationYear         *int32    `db:"publication_year"`
	OriginalPublicationYear *int32    `db:"original_publication_year"`
	NumPages                *int32    `db:"num_pages"`
	Notes                   *string   `db:"notes"`
	LanguageId              *int64    `db:"language_id"`
	OriginalLanguageId      *int64    `db:"original_language_id"`
	LibraryLocationId       *int64    `db:"library_location_id"`
	StatusId                *int64    `db:"status_id"`
	PublisherId             *int64    `db:"publisher_id"`
	TypeId                  *int64    `db:"type_id"`
	GroupId                 *int64    `db:"group_id"`
	TranslatorId            *int64    `db:"translator_id"`
	DateAdded               time.Time `db:"date_added" goqu:"skipinsert"`
}

type pgxBookView struct {
	Id                      int64     `db:"id"`
	Title                   string    `db:"title"`
	OriginalTitle           *string   `db:"original_title"`
	Creators                *string   `db:"creators"`
	Isbn10                  *string   `db:"isbn10"`
	Isbn13                  *string   `db:"isbn13"`
	Publisher               *string   `db:"publisher"`
	Country                 *string   `db:"country"`
	Language                *string   `db:"language"`
	OriginalLanguage        *string   `db:"original_language"`
	Type                    *string   `db:"type_name"`
	Group                   *string   `db:"group_name"`
	Translator              *string   `db:"translator"`
	Labels                  *string   `db:"labels"`
	Status                  *string   `db:"status"`
	Library                 *string   `db:"library"`
	PublicationYear         *int32    `db:"publication_year"`
	OriginalPublicationYear *int32    `db:"original_publication_year"`
	NumPages                *int32    `db:"num_pages"`
	Notes                   *string   `db:"notes"`
	DateAdded               time.Time `db:"date_added"`
}

var viewColumns = []any{
	"id", "title", "original_title", "creators", "isbn10", "isbn13",
	"publisher", "country", "language", "original_language", "type_name", "group_name",
	"translator", "labels", "status", "library",
	"publication_year", "original_publication_year", "num_pages", "notes", "date_added",
}

func (p *pgxRepo) GetById(ctx context.Context, owner uuid.UUID, id int64) (*types.Book, error) {
	sql, params, err := p.g.From("book").
		Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(owner)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxBook

	err = pgxscan.Get(ctx, p.db, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	book := types.Book(row)
	return &book, nil
}

func (p *pgxRepo) count(ctx context.Context, qb *goqu.SelectDataset) (int64, error) {
	sql, params, err := qb.Select(goqu.COUNT(goqu.Star())).ToSQL()
	if err != nil {
		return 0, err
	}

	var n int64

	err = pgxscan.Get(ctx, p.db, &n, sql, params...)
	return n, err
}

func (p *pgxRepo) Owns(ctx context.Context, owner uuid.UUID, id int64) (bool, error) {
	n, err := p.count(ctx, p.g.From("book").
		Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(owner)))

	return n > 0, err
}

func (p *pgxRepo) IsbnExists(ctx context.Context, owner uuid.UUID, kind Isbn, isbn string) (bool, error) {
	if kind != Isbn10 && kind != Isbn13 {
		return false, errors.New("unknown isbn column: " + string(kind))
	}

	n, err := p.count(ctx, p.g.From("book").
		Where(goqu.C(string(kind)).Eq(isbn), goqu.C("user_id").Eq(owner)))

	return n > 0, err
}

func (p *pgxRepo) Insert(ctx context.Context, book *types.Book) (int64, error) {
	sql, params, err := p.g.Insert("book").
		Rows(pgxBook(*book)).
		Returning("id").
		ToSQL()
	if err != nil {
		return 0, err
	}

	var id int64

	err = pgxscan.Get(ctx, p.db, &id, sql, params...)
	if err != nil {
		if conn.IsUniqueViolation(err) {
			err = ErrDuplicateIsbn
		}
		return 0, err
	}

	return id, nil
}

// plain turns typed nil pointers into untyped nils and dereferences the rest.
func plain(v any) any {
	switch v := v.(type) {
	case *string:
		if v == nil {
			return nil
		}
		return *v
	case *int32:
		if v == nil {
			return nil
		}
		return *v
	case *int64:
		if v == nil {
			return nil
		}
		return *v
	}

	return v
}

func (p *pgxRepo) Patch(ctx context.Context, owner uuid.UUID, id int64, patch Patch) (int64, error) {
	if len(patch) == 0 {
		return 0, nil
	}

	rec := make(goqu.Record, len(patch))
	for col, v := range patch {
		rec[string(col)] = plain(v)
	}

	sql, params, err := p.g.Update("book").
		Set(rec).
		Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(owner)).
		ToSQL()
	if err != nil {
		return 0, err
	}

	tag, err := p.db.Exec(ctx, sql, params...)
	if err != nil {
		if conn.IsUniqueViolation(err) {
			err = ErrDuplicateIsbn
		}
		return 0, err
	}

	return tag.RowsAffected(), nil
}

func (p *pgxRepo) Delete(ctx context.Context, owner uuid.UUID, id int64) (bool, error) {
	sql, params, err := p.g.Delete("book").
		Where(goqu.C("id").Eq(id), goqu.C("user_id").Eq(owner)).
		ToSQL()
	if err != nil {
		return false, err
	}

	tag, err := p.db.Exec(ctx, sql, params...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

type joinTable struct {
	name     string
	column   string
	refTable string
}

var (
	bookAuthor = joinTable{name: "book_author", column: "author_id", refTable: "author"}
	bookLabel  = joinTable{name: "book_label", column: "label_id", refTable: "label"}
)

func (p *pgxRepo) link(ctx context.Context, jt joinTable, bookId int64, ids ...int64) error {
	if len(ids) == 0 {
		return nil
	}

	rows := make([]any, 0, len(ids))
	for _, id := range ids {
		rows = append(rows, goqu.Record{"book_id": bookId, jt.column: id})
	}

	sql, params, err := p.g.Insert(jt.name).
		Rows(rows...).
		OnConflict(goqu.DoNothing()).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, sql, params...)
	return err
}

func (p *pgxRepo) replace(ctx context.Context, jt joinTable, bookId int64, ids ...int64) error {
	sql, params, err := p.g.Delete(jt.name).
		Where(goqu.C("book_id").Eq(bookId)).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, sql, params...)
	if err != nil {
		return err
	}

	return p.link(ctx, jt, bookId, ids...)
}

func (p *pgxRepo) LinkAuthor(ctx context.Context, bookId int64, authorIds ...int64) error {
	return p.link(ctx, bookAuthor, bookId, authorIds...)
}

func (p *pgxRepo) LinkLabel(ctx context.Context, bookId int64, labelIds ...int64) error {
	return p.link(ctx, bookLabel, bookId, labelIds...)
}

func (p *pgxRepo) ReplaceAuthors(ctx context.Context, bookId int64, authorIds ...int64) error {
	return p.replace(ctx, bookAuthor, bookId, authorIds...)
}

func (p *pgxRepo) ReplaceLabels(ctx context.Context, bookId int64, labelIds ...int64) error {
	return p.replace(ctx, bookLabel, bookId, labelIds...)
}

func (p *pgxRepo) attach(ctx context.Context, jt joinTable, owner uuid.UUID, bookId, refId int64) (bool, error) {
	n, err := p.count(ctx, p.g.From(goqu.T("book").As("b"), goqu.T(jt.refTable).As("r")).
		Where(
			goqu.I("b.id").Eq(bookId),
			goqu.I("b.user_id").Eq(owner),
			goqu.I("r.id").Eq(refId),
			goqu.I("r.user_id").Eq(owner),
		))
	if err != nil || n == 0 {
		return false, err
	}

	return true, p.link(ctx, jt, bookId, refId)
}

func (p *pgxRepo) detach(ctx context.Context, jt joinTable, owner uuid.UUID, bookId, refId int64) (bool, error) {
	sql, params, err := p.g.Delete(jt.name).
		Where(
			goqu.C("book_id").In(p.g.From("book").
				Select("id").
				Where(goqu.C("id").Eq(bookId), goqu.C("user_id").Eq(owner))),
			goqu.C(jt.column).Eq(refId),
		).
		ToSQL()
	if err != nil {
		return false, err
	}

	tag, err := p.db.Exec(ctx, sql, params...)
	if err != nil {
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *pgxRepo) AttachAuthor(ctx context.Context, owner uuid.UUID, bookId, authorId int64) (bool, error) {
	return p.attach(ctx, bookAuthor, owner, bookId, authorId)
}

func (p *pgxRepo) DetachAuthor(ctx context.Context, owner uuid.UUID, bookId, authorId int64) (bool, error) {
	return p.detach(ctx, bookAuthor, owner, bookId, authorId)
}

func (p *pgxRepo) AttachLabel(ctx context.Context, owner uuid.UUID, bookId, labelId int64) (bool, error) {
	return p.attach(ctx, bookLabel, owner, bookId, labelId)
}

func (p *pgxRepo) DetachLabel(ctx context.Context, owner uuid.UUID, bookId, labelId int64) (bool, error) {
	return p.detach(ctx, bookLabel, owner, bookId, labelId)
}

func (p *pgxRepo) Search(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.BookView, error) {
	qb := p.g.From("book_full_view").
		Select(viewColumns...).
		Where(goqu.C("user_id").Eq(owner))

	contains := map[string]string{
		"country":  filter.Country,
		"creators": filter.Author,
		"labels":   filter.Label,
	}
	for col, v := range contains {
		if v != "" {
			qb = qb.Where(goqu.C(col).ILike(conn.Contains(v)))
		}
	}

	equals := map[string]string{
		"library":   filter.Library,
		"publisher": filter.Publisher,
		"language":  filter.Language,
		"type_name": filter.Type,
		"status":    filter.Status,
	}
	for col, v := range equals {
		if v != "" {
			qb = qb.Where(goqu.C(col).Eq(v))
		}
	}

	if filter.Search != "" {
		pattern := conn.Contains(filter.Search)
		qb = qb.Where(goqu.Or(
			goqu.C("title").ILike(pattern),
			goqu.C("isbn13").ILike(pattern),
			goqu.C("isbn10").ILike(pattern),
			goqu.C("creators").ILike(pattern),
		))
	}

	sortCol := string(filter.Sort)
	if sortCol == "" {
		sortCol = string(SortTitle)
	}

	var order exp.OrderedExpression
	if filter.Desc {
		order = goqu.C(sortCol).Desc().NullsLast()
	} else {
		order = goqu.C(sortCol).Asc().NullsLast()
	}

	sql, params, err := qb.Order(order, goqu.C("id").Asc()).ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxBookView

	err = pgxscan.Select(ctx, p.db, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.BookView, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, types.BookView(row))
	}

	return ret, nil
}
