package countries

import (
	"context"
	"log/slog"

	"github.com/georgysavva/scany/v2/pgxscan"
	"github.com/google/uuid"

	"bookshelf/internal/storage/conn"
	"bookshelf/internal/types"
)

const (
	getFiltered = `select id, name, continent, alt_group, status, books, authors, population_share
from get_filtered_countries($1, $2, $3, $4, $5)`
	getStats = `select continent, countries, countries_read, percentage
from get_filtered_stats($1, $2, $3, $4)`
)

func NewPGXRepository(db conn.DB, l *slog.Logger) Repository {
	return &pgxRepo{db: db, l: l}
}

type pgxRepo struct {
	db conn.DB
	l  *slog.Logger
}

type pgxCountry struct {
	Id              int64    `db:"id"`
	Name            string   `db:"name"`
	Continent       *string  `db:"continent"`
	AltGroup        *string  `db:"alt_group"`
	Status          *string  `db:"status"`
	Books           int64    `db:"books"`
	Authors         int64    `db:"authors"`
	PopulationShare *float64 `db:"population_share"`
}

type pgxContinent struct {
	Continent     string  `db:"continent"`
	Countries     int64   `db:"countries"`
	CountriesRead int64   `db:"countries_read"`
	Percentage    float64 `db:"percentage"`
}

func typesArg(ts []string) []string {
	if len(ts) == 0 {
		return nil
	}

	return ts
}

func (p *pgxRepo) GetFiltered(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.CountryStats, error) {
	var rows []pgxCountry

	err := pgxscan.Select(ctx, p.db, &rows, getFiltered,
		owner,
		conn.Nullable(filter.Continent),
		conn.Nullable(filter.Library),
		conn.Nullable(filter.Status),
		typesArg(filter.Types))
	if err != nil {
		return nil, err
	}

	ret := make([]types.CountryStats, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, types.CountryStats(row))
	}

	return ret, nil
}

func (p *pgxRepo) GetStats(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.ContinentStats, error) {
	var rows []pgxContinent

	err := pgxscan.Select(ctx, p.db, &rows, getStats,
		owner,
		conn.Nullable(filter.Continent),
		conn.Nullable(filter.Library),
		typesArg(filter.Types))
	if err != nil {
		return nil, err
	}

	ret := make([]types.ContinentStats, 0, len(rows))
	for _, row := range rows {
		ret = append(ret, types.ContinentStats(row))
	}

	return ret, nil
}
