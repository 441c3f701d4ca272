package migrations

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
)

//go:embed *.sql
var files embed.FS

type Direction string

const (
	DirUp     Direction = "up"
	DirDown   Direction = "down"
	DirStatus Direction = "status"
)

// Run applies, rolls back (one step) or reports the embedded migrations against pool.
func Run(ctx context.Context, pool *pgxpool.Pool, dir Direction, l *slog.Logger) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	goose.SetBaseFS(files)
	goose.SetLogger(&gooseLogger{l: l})

	if err := goose.SetDialect("postgres"); err != nil {
		return err
	}

	switch dir {
	case DirUp:
		return goose.UpContext(ctx, db, ".")
	case DirDown:
		return goose.DownContext(ctx, db, ".")
	case DirStatus:
		return goose.StatusContext(ctx, db, ".")
	}

	return fmt.Errorf("unknown migration direction %q", dir)
}

type gooseLogger struct {
	l *slog.Logger
}

func (g *gooseLogger) Printf(format string, v ...any) {
	g.l.Info(fmt.Sprintf(format, v...))
}

func (g *gooseLogger) Fatalf(format string, v ...any) {
	g.l.Error(fmt.Sprintf(format, v...))
	os.Exit(1)
}
