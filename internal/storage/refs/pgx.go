package refs

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/doug-martin/goqu/v9"
	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

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

type pgxRef struct {
	Id        int64  `db:"id"`
	Name      string `db:"name"`
	CountryId *int64 `db:"country_id"`
}

func (r *pgxRef) intoCommon() types.Reference {
	return types.Reference{Id: r.Id, Name: r.Name, CountryId: r.CountryId}
}

func columns(table Table) []any {
	if table == Author {
		return []any{"id", "name", "country_id"}
	}

	return []any{"id", "name"}
}

func (p *pgxRepo) FindId(ctx context.Context, table Table, owner uuid.UUID, name string) (int64, error) {
	if _, ok := tables[table]; !ok {
		return 0, ErrUnknownTable
	}

	qb := p.g.From(table.sql()).
		Select("id").
		Where(goqu.C("name").ILike(conn.EscapeLike(strings.TrimSpace(name)))).
		Order(goqu.C("id").Asc()).
		Limit(1)

	if table.UserScoped() {
		qb = qb.Where(goqu.C("user_id").Eq(owner))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return 0, err
	}

	var ids []int64

	err = pgxscan.Select(ctx, p.db, &ids, sql, params...)
	if err != nil || len(ids) == 0 {
		return 0, err
	}

	return ids[0], nil
}

func (p *pgxRepo) record(table Table, ref NewRef) goqu.Record {
	rec := goqu.Record{"name": strings.TrimSpace(ref.Name)}
	if table.UserScoped() {
		rec["user_id"] = ref.Owner
	}
	if table == Author && ref.CountryId != nil {
		rec["country_id"] = *ref.CountryId
	}

	return rec
}

func (p *pgxRepo) Upsert(ctx context.Context, table Table, ref NewRef) (int64, error) {
	if _, ok := tables[table]; !ok {
		return 0, ErrUnknownTable
	}

	sql, params, err := p.g.Insert(table.sql()).
		Rows(p.record(table, ref)).
		OnConflict(goqu.DoNothing()).
		Returning("id").
		ToSQL()
	if err != nil {
		return 0, err
	}

	var ids []int64

	err = pgxscan.Select(ctx, p.db, &ids, sql, params...)
	if err != nil {
		return 0, err
	}

	if len(ids) > 0 {
		return ids[0], nil
	}

	// Somebody else inserted the same name first; pick up their row.
	id, err := p.FindId(ctx, table, ref.Owner, ref.Name)
	if err != nil {
		return 0, err
	}

	if id == 0 {
		return 0, fmt.Errorf("%s %q conflicted on insert but cannot be found", table, ref.Name)
	}

	return id, nil
}

func (p *pgxRepo) Exists(ctx context.Context, table Table, owner uuid.UUID, id int64) (bool, error) {
	if _, ok := tables[table]; !ok {
		return false, ErrUnknownTable
	}

	qb := p.g.From(table.sql()).
		Select(goqu.COUNT("*")).
		Where(goqu.C("id").Eq(id))

	if table.UserScoped() {
		qb = qb.Where(goqu.C("user_id").Eq(owner))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return false, err
	}

	var n int64

	err = pgxscan.Get(ctx, p.db, &n, sql, params...)
	if err != nil {
		return false, err
	}

	return n > 0, nil
}

func (p *pgxRepo) List(ctx context.Context, table Table, owner uuid.UUID) ([]types.Reference, error) {
	if _, ok := tables[table]; !ok {
		return nil, ErrUnknownTable
	}

	qb := p.g.From(table.sql()).
		Select(columns(table)...).
		Order(goqu.C("name").Asc())

	if table.UserScoped() {
		qb = qb.Where(goqu.C("user_id").Eq(owner))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxRef

	err = pgxscan.Select(ctx, p.db, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.Reference, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, row.intoCommon())
	}

	return ret, nil
}

func (p *pgxRepo) Create(ctx context.Context, table Table, ref NewRef) (*types.Reference, error) {
	if _, ok := tables[table]; !ok {
		return nil, ErrUnknownTable
	}

	sql, params, err := p.g.Insert(table.sql()).
		Rows(p.record(table, ref)).
		Returning(columns(table)...).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxRef

	err = pgxscan.Get(ctx, p.db, &row, sql, params...)
	if err != nil {
		if conn.IsUniqueViolation(err) {
			err = ErrDuplicate
		}
		return nil, err
	}

	ret := row.intoCommon()
	return &ret, nil
}

func (p *pgxRepo) Update(ctx context.Context, table Table, owner uuid.UUID, id int64, patch Patch) (bool, error) {
	if _, ok := tables[table]; !ok {
		return false, ErrUnknownTable
	}

	rec := goqu.Record{}
	if patch.Name != nil {
		rec["name"] = strings.TrimSpace(*patch.Name)
	}
	if patch.CountryId != nil && table == Author {
		rec["country_id"] = *patch.CountryId
	}

	if len(rec) == 0 {
		return false, nil
	}

	qb := p.g.Update(table.sql()).
		Set(rec).
		Where(goqu.C("id").Eq(id))

	if table.UserScoped() {
		qb = qb.Where(goqu.C("user_id").Eq(owner))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return false, err
	}

	tag, err := p.db.Exec(ctx, sql, params...)
	if err != nil {
		if conn.IsUniqueViolation(err) {
			err = ErrDuplicate
		}
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}

func (p *pgxRepo) Delete(ctx context.Context, table Table, owner uuid.UUID, id int64) (bool, error) {
	if _, ok := tables[table]; !ok {
		return false, ErrUnknownTable
	}

	qb := p.g.Delete(table.sql()).
		Where(goqu.C("id").Eq(id))

	if table.UserScoped() {
		qb = qb.Where(goqu.C("user_id").Eq(owner))
	}

	sql, params, err := qb.ToSQL()
	if err != nil {
		return false, err
	}

	tag, err := p.db.Exec(ctx, sql, params...)
	if err != nil {
		if conn.IsForeignKeyViolation(err) {
			err = ErrInUse
		}
		return false, err
	}

	return tag.RowsAffected() > 0, nil
}
