package publishers

import (
	"context"
	"log/slog"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"bookshelf/internal/storage/conn"
	"bookshelf/internal/types"
)

const getFiltered = `select id, name, country, books from get_filtered_publishers($1, $2, $3, $4)`

func NewPGXRepository(db conn.DB, l *slog.Logger) Repository {
	return &pgxRepo{db: db, l: l}
}

type pgxRepo struct {
	db conn.DB
	l  *slog.Logger
}

type pgxPublisher struct {
	Id      int64   `db:"id"`
	Name    string  `db:"name"`
	Country *string `db:"country"`
	Books   int64   `db:"books"`
}

func (p *pgxRepo) GetFiltered(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.PublisherStats, error) {
	var rows []pgxPublisher

	err := pgxscan.Select(ctx, p.db, &rows, getFiltered,
		owner,
		conn.Nullable(filter.Library),
		conn.Nullable(filter.Country),
		conn.Nullable(filter.Continent))
	if err != nil {
		return nil, err
	}

	ret := make([]types.PublisherStats, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, types.PublisherStats(row))
	}

	return ret, nil
}
