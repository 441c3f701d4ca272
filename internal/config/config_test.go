package config

import (
	"log/slog"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bookshelf/internal/ingest"
)

func TestLoadDefaults(t *testing.T) {
	for _, k := range []string{"LOG_LEVEL", "LOG_FORMAT", "DATABASE_URL", "BIND_ADDR", "DEBUG_MODE", "JWT_SECRET",
		"SESSION_TTL", "INGEST_POLICY", "INGEST_ATOMIC", "INGEST_REJECT_BATCH_DUPLICATES", "MAX_UPLOAD_BYTES"} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelDebug, cfg.LogLevel)
	assert.Equal(t, "text", cfg.LogFormat)
	assert.Equal(t, ":8080", cfg.BindAddr)
	assert.Equal(t, 168*time.Hour, cfg.SessionTTL)
	assert.Equal(t, ingest.Options{Policy: ingest.Lenient}, cfg.IngestOptions())
	assert.EqualValues(t, 10<<20, cfg.MaxUploadBytes)
	assert.False(t, bool(cfg.DebugMode))

	assert.Error(t, cfg.ForServer())
}

func TestLoad(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("LOG_FORMAT", "JSON")
	t.Setenv("DATABASE_URL", "postgres://localhost/books")
	t.Setenv("DEBUG_MODE", "yes")
	t.Setenv("JWT_SECRET", strings.Repeat("s", 32))
	t.Setenv("SESSION_TTL", "2h")
	t.Setenv("INGEST_POLICY", "Strict")
	t.Setenv("INGEST_ATOMIC", "on")
	t.Setenv("INGEST_REJECT_BATCH_DUPLICATES", "true")
	t.Setenv("MAX_UPLOAD_BYTES", "1024")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, slog.LevelWarn, cfg.LogLevel)
	assert.Equal(t, "json", cfg.LogFormat)
	assert.True(t, bool(cfg.DebugMode))
	assert.Equal(t, 2*time.Hour, cfg.SessionTTL)
	assert.Equal(t, ingest.Options{Policy: ingest.Strict, Atomic: true, RejectBatchDuplicates: true}, cfg.IngestOptions())
	assert.EqualValues(t, 1024, cfg.MaxUploadBytes)
	assert.NoError(t, cfg.ForServer())
}

func TestLoadRejects(t *testing.T) {
	cases := map[string]string{
		"LOG_FORMAT":    "xml",
		"INGEST_POLICY": "sloppy",
		"DEBUG_MODE":    "maybe",
		"LOG_LEVEL":     "loud",
	}

	for k, v := range cases {
		t.Run(k, func(t *testing.T) {
			t.Setenv(k, v)

			_, err := Load()
			assert.Error(t, err)
		})
	}
}
