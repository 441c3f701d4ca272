package publishers

import (
	"context"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

type Filter struct {
	Library   string
	Country   string
	Continent string
}

type Repository interface {
	GetFiltered(ctx context.Context, owner uuid.UUID, filter Filter) ([]types.PublisherStats, error)
}
