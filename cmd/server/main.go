package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"path"
	"runtime"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	_ "github.com/joho/godotenv/autoload"

	"bookshelf/internal/auth"
	"bookshelf/internal/config"
	"bookshelf/internal/ingest"
	"bookshelf/internal/logger"
	"bookshelf/internal/response"
	"bookshelf/internal/server"
	"bookshelf/internal/storage/authors"
	"bookshelf/internal/storage/books"
	"bookshelf/internal/storage/conn"
	"bookshelf/internal/storage/countries"
	"bookshelf/internal/storage/publishers"
	"bookshelf/internal/storage/refs"
	"bookshelf/internal/storage/runs"
	"bookshelf/internal/storage/users"
)

func main() {
	_, thisFile, _, _ := runtime.Caller(0)

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}

	err = logger.SetupSLog(cfg.LogLevel, cfg.LogFormat, path.Dir(path.Dir(path.Dir(thisFile))), middleware.RequestIDKey)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}

	if err := cfg.ForServer(); err != nil {
		slog.Error("Invalid configuration: " + err.Error())
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	l := slog.Default()

	pg, err := conn.NewPool(ctx, cfg.DatabaseURL, l)
	if err != nil {
		slog.Error(err.Error())
		os.Exit(1)
	}
	defer pg.Close()

	rr := &response.Responder{DebugMode: bool(cfg.DebugMode)}
	runRepo := runs.NewPGXRepository(pg, l)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)

	r.Mount("/api", server.Handler(server.Deps{
		Auth: auth.NewService(users.NewPGXRepository(pg, l), auth.Options{
			Secret:     []byte(cfg.JWTSecret),
			SessionTTL: cfg.SessionTTL,
		}, l),
		Books:          books.NewPGXRepository(pg, l),
		Refs:           refs.NewPGXRepository(pg, l),
		Authors:        authors.NewPGXRepository(pg, l),
		Publishers:     publishers.NewPGXRepository(pg, l),
		Countries:      countries.NewPGXRepository(pg, l),
		Runs:           runRepo,
		Ingest:         ingest.NewService(ingest.NewPGXStore(pg, l), runRepo, cfg.IngestOptions(), l),
		MaxUploadBytes: cfg.MaxUploadBytes,
	}, rr))

	srv := &http.Server{
		Addr:              cfg.BindAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		<-ctx.Done()

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	slog.Info("Listening on " + cfg.BindAddr)

	err = srv.ListenAndServe()
	if !errors.Is(err, http.ErrServerClosed) {
		slog.Error("aborting: " + err.Error())
		os.Exit(1)
	}
}
