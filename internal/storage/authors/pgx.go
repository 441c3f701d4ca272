package authors

import (
	"context"
	"log/slog"
	"time"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"bookshelf/internal/storage/conn"
	"bookshelf/internal/types"
)

const getFiltered = `select id, name, country, continent, books, translations, is_author, is_translator, created_at
from get_filtered_authors($1, $2, $3, $4, $5)`

func NewPGXRepository(db conn.DB, l *slog.Logger) Repository {
	return &pgxRepo{db: db, l: l}
}

type pgxRepo struct {
	db conn.DB
	l  *slog.Logger
}

type pgxAuthor struct {
	Id           int64     `db:"id"`
	Name         string    `db:"name"`
	Country      *string   `db:"country"`
	Continent    *string   `db:"continent"`
	Books        int64     `db:"books"`
	Translations int64     `db:"translations"`
	IsAuthor     bool      `db:"is_author"`
	IsTranslator bool      `db:"is_translator"`
	CreatedAt    time.Time `db:"created_at"`
}

func (p *pgxRepo) GetFiltered(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.AuthorStats, error) {
	var bookTypes []string
	if len(filter.Types) > 0 {
		bookTypes = filter.Types
	}

	var rows []pgxAuthor

	err := pgxscan.Select(ctx, p.db, &rows, getFiltered,
		owner,
		conn.Nullable(filter.Continent),
		conn.Nullable(filter.Country),
		conn.Nullable(filter.Library),
		bookTypes)
	if err != nil {
		return nil, err
	}

	ret := make([]types.AuthorStats, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, types.AuthorStats(row))
	}

	return ret, nil
}
