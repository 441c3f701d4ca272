package authors

import (
	"context"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

// Filter arguments of get_filtered_authors. Empty values do not filter.
type Filter struct {
	Continent string
	Country   string
	Library   string
	Types     []string
}

type Repository interface {
	// GetFiltered returns every author of owner with book and translation counts computed over the
	// books that pass the filter.
	GetFiltered(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.AuthorStats, error)
}
