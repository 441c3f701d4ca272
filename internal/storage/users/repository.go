package users

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"bookshelf/internal/types"
)

var ErrEmailTaken = errors.New("email is already registered")

type Repository interface {
	Create(ctx context.Context, email, passwordHash string) (*types.User, error)
	// GetByEmail and GetById return nil, nil when there is no such user.
	GetByEmail(ctx context.Context, email string) (*types.User, error)
	GetById(ctx context.Context, id uuid.UUID) (*types.User, error)

	CreateSession(ctx context.Context, userId uuid.UUID, expiresAt time.Time) (*types.Session, error)
	GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error)
	RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error
}
