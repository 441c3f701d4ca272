package runs

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

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

type pgxRun struct {
	Id         int64     `db:"id"`
	UserId     uuid.UUID `db:"user_id"`
	Kind       string    `db:"kind"`
	Field      *string   `db:"field"`
	StartedAt  time.Time `db:"started_at"`
	DurationMs int64     `db:"duration_ms"`
	Valid      int       `db:"valid"`
	Invalid    int       `db:"invalid"`
	Succeeded  int       `db:"succeeded"`
	Failed     int       `db:"failed"`
	Unmatched  int       `db:"unmatched"`
	Messages   []byte    `db:"messages"`
}

func (p *pgxRepo) Save(ctx context.Context, run *types.IngestRun) (int64, error) {
	messages := run.Messages
	if messages == nil {
		messages = []types.RunMessage{}
	}

	raw, err := json.Marshal(messages)
	if err != nil {
		return 0, err
	}

	rec := goqu.Record{
		"user_id":     run.UserId,
		"kind":        run.Kind,
		"started_at":  run.StartedAt,
		"duration_ms": run.Duration.Milliseconds(),
		"valid":       run.Valid,
		"invalid":     run.Invalid,
		"succeeded":   run.Succeeded,
		"failed":      run.Failed,
		"unmatched":   run.Unmatched,
		"messages":    goqu.L("?::jsonb", string(raw)),
	}
	if run.Field != "" {
		rec["field"] = run.Field
	}

	sql, params, err := p.g.Insert("ingest_run").
		Rows(rec).
		Returning("id").
		ToSQL()
	if err != nil {
		return 0, err
	}

	var id int64

	err = pgxscan.Get(ctx, p.db, &id, sql, params...)
	return id, err
}

func (p *pgxRepo) List(ctx context.Context, owner uuid.UUID, limit uint) ([]types.IngestRun, error) {
	sql, params, err := p.g.From("ingest_run").
		Select("id", "user_id", "kind", "field", "started_at", "duration_ms",
			"valid", "invalid", "succeeded", "failed", "unmatched", goqu.L("messages::text").As("messages")).
		Where(goqu.C("user_id").Eq(owner)).
		Order(goqu.C("started_at").Desc(), goqu.C("id").Desc()).
		Limit(limit).
		ToSQL()
	if err != nil {
		return nil, err
	}

	var rows []pgxRun

	err = pgxscan.Select(ctx, p.db, &rows, sql, params...)
	if err != nil {
		return nil, err
	}

	ret := make([]types.IngestRun, 0, len(rows))
	for _, row := range rows {
		run := types.IngestRun{
			Id:        row.Id,
			UserId:    row.UserId,
			Kind:      row.Kind,
			StartedAt: row.StartedAt,
			Duration:  time.Duration(row.DurationMs) * time.Millisecond,
			Valid:     row.Valid,
			Invalid:   row.Invalid,
			Succeeded: row.Succeeded,
			Failed:    row.Failed,
			Unmatched: row.Unmatched,
		}
		if row.Field != nil {
			run.Field = *row.Field
		}

		if err := json.Unmarshal(row.Messages, &run.Messages); err != nil {
			p.l.ErrorContext(ctx, "Failed to decode messages of ingest run stored in DB: "+err.Error())
		}

		ret = append(ret, run)
	}

	return ret, nil
}
