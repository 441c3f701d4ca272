package users

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/doug-martin/goqu/v9"
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

type pgxUser struct {
	Id           uuid.UUID `db:"id"`
	Email        string    `db:"email"`
	PasswordHash string    `db:"password_hash"`
	CreatedAt    time.Time `db:"created_at"`
}

type pgxSession struct {
	Id        uuid.UUID  `db:"id"`
	UserId    uuid.UUID  `db:"user_id"`
	CreatedAt time.Time  `db:"created_at"`
	ExpiresAt time.Time  `db:"expires_at"`
	RevokedAt *time.Time `db:"revoked_at"`
}

func (p *pgxRepo) Create(ctx context.Context, email, passwordHash string) (*types.User, error) {
	sql, params, err := p.g.Insert("app_user").
		Rows(goqu.Record{
			"id":            uuid.New(),
			"email":         strings.ToLower(strings.TrimSpace(email)),
			"password_hash": passwordHash,
		}).
		Returning("id", "email", "password_hash", "created_at").
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxUser

	err = pgxscan.Get(ctx, p.db, &row, sql, params...)
	if err != nil {
		if conn.IsUniqueViolation(err) {
			err = ErrEmailTaken
		}
		return nil, err
	}

	user := types.User(row)
	return &user, nil
}

func (p *pgxRepo) getOne(ctx context.Context, where goqu.Ex) (*types.User, error) {
	sql, params, err := p.g.From("app_user").
		Select("id", "email", "password_hash", "created_at").
		Where(where).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxUser

	err = pgxscan.Get(ctx, p.db, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	user := types.User(row)
	return &user, nil
}

func (p *pgxRepo) GetByEmail(ctx context.Context, email string) (*types.User, error) {
	return p.getOne(ctx, goqu.Ex{"email": strings.ToLower(strings.TrimSpace(email))})
}

func (p *pgxRepo) GetById(ctx context.Context, id uuid.UUID) (*types.User, error) {
	return p.getOne(ctx, goqu.Ex{"id": id})
}

func (p *pgxRepo) CreateSession(ctx context.Context, userId uuid.UUID, expiresAt time.Time) (*types.Session, error) {
	sql, params, err := p.g.Insert("session").
		Rows(goqu.Record{
			"id":         uuid.New(),
			"user_id":    userId,
			"expires_at": expiresAt,
		}).
		Returning("id", "user_id", "created_at", "expires_at", "revoked_at").
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxSession

	err = pgxscan.Get(ctx, p.db, &row, sql, params...)
	if err != nil {
		return nil, err
	}

	s := types.Session(row)
	return &s, nil
}

func (p *pgxRepo) GetSession(ctx context.Context, id uuid.UUID) (*types.Session, error) {
	sql, params, err := p.g.From("session").
		Select("id", "user_id", "created_at", "expires_at", "revoked_at").
		Where(goqu.C("id").Eq(id)).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var row pgxSession

	err = pgxscan.Get(ctx, p.db, &row, sql, params...)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			err = nil
		}
		return nil, err
	}

	s := types.Session(row)
	return &s, nil
}

func (p *pgxRepo) RevokeSession(ctx context.Context, id uuid.UUID, at time.Time) error {
	sql, params, err := p.g.Update("session").
		Set(goqu.Record{"revoked_at": at}).
		Where(goqu.C("id").Eq(id), goqu.C("revoked_at").IsNull()).
		ToSQL()
	if err != nil {
		return err
	}

	_, err = p.db.Exec(ctx, sql, params...)
	return err
}
