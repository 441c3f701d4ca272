package countries

import (
	"context"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

// Filter arguments of get_filtered_countries. Status is ignored by the continent stats.
type Filter struct {
	Continent string
	Library   string
	Status    string
	Types     []string
}

type Repository interface {
	GetFiltered(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.CountryStats, error)
	// GetStats counts, per continent, the countries with at least one read book.
	GetStats(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.ContinentStats, error)
}
