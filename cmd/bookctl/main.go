package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"

	"github.com/alecthomas/kong"
	"github.com/jackc/pgx/v5/pgxpool"
	_ "github.com/joho/godotenv/autoload"

	"bookshelf/internal/config"
	"bookshelf/internal/logger"
	"bookshelf/internal/storage/conn"
)

type CLI struct {
	Migrate MigrateCmd `cmd:"" help:"Apply, roll back or list database migrations"`
	User    UserCmd    `cmd:"" help:"Manage users"`
	Ref     RefCmd     `cmd:"" help:"Manage reference tables"`
	Import  ImportCmd  `cmd:"" help:"Import books from a CSV file"`
	Update  UpdateCmd  `cmd:"" help:"Update one field of many books from a two-column CSV file"`
	Export  ExportCmd  `cmd:"" help:"Export books as CSV or OPDS"`
	Imports ImportsCmd `cmd:"" help:"Show the latest import and update runs"`
}

// app is shared by every command. The pool is opened on first use.
type app struct {
	ctx context.Context
	cfg *config.Config
	l   *slog.Logger

	pool *pgxpool.Pool
}

func (a *app) db() (*pgxpool.Pool, error) {
	if a.pool != nil {
		return a.pool, nil
	}

	pool, err := conn.NewPool(a.ctx, a.cfg.DatabaseURL, a.l)
	if err != nil {
		return nil, err
	}

	a.pool = pool
	return pool, nil
}

func (a *app) close() {
	if a.pool != nil {
		a.pool.Close()
	}
}

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}

	if os.Getenv("LOG_FORMAT") == "" {
		cfg.LogFormat = "human"
	}

	err = logger.SetupSLog(cfg.LogLevel, cfg.LogFormat, path.Dir(path.Dir(path.Dir(thisFile))), nil)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	var cli CLI
	kctx := kong.Parse(&cli,
		kong.Name("bookctl"),
		kong.Description("Administer a bookshelf database: migrations, users and bulk CSV files."),
		kong.UsageOnError(),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	a := &app{ctx: ctx, cfg: cfg, l: slog.Default()}

	err = kctx.Run(a)
	a.close()
	stop()

	if err != nil {
		slog.Error("Command failed: " + err.Error())
		os.Exit(1)
	}
}
