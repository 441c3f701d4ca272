package runs

import (
	"context"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

type Repository interface {
	Save(ctx context.Context, run *types.IngestRun) (int64, error)
	// List returns the latest runs of owner, newest first.
	List(ctx context.Context, owner uuid.UUID, limit uint) ([]types.IngestRun, error)
}
