// Package config reads process settings from the environment.
package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"

	"bookshelf/internal/ingest"
)

// Flag is a boolean that also accepts yes/no and on/off.
type Flag bool

func (f *Flag) Decode(value string) error {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "yes", "on", "true", "1":
		*f = true
	case "", "no", "off", "false", "0":
		*f = false
	default:
		return fmt.Errorf("%q is not a boolean", value)
	}

	return nil
}

type Config struct {
	LogLevel    slog.Level    `envconfig:"LOG_LEVEL" default:"debug"`
	LogFormat   string        `envconfig:"LOG_FORMAT" default:"text"`
	DatabaseURL string        `envconfig:"DATABASE_URL"`
	BindAddr    string        `envconfig:"BIND_ADDR" default:":8080"`
	DebugMode   Flag          `envconfig:"DEBUG_MODE"`
	JWTSecret   string        `envconfig:"JWT_SECRET"`
	SessionTTL  time.Duration `envconfig:"SESSION_TTL" default:"168h"`

	IngestPolicy                ingest.Policy `envconfig:"INGEST_POLICY" default:"lenient"`
	IngestAtomic                Flag          `envconfig:"INGEST_ATOMIC"`
	IngestRejectBatchDuplicates Flag          `envconfig:"INGEST_REJECT_BATCH_DUPLICATES"`
	MaxUploadBytes              int64         `envconfig:"MAX_UPLOAD_BYTES" default:"10485760"`
}

func (c *Config) IngestOptions() ingest.Options {
	return ingest.Options{
		Policy:                c.IngestPolicy,
		Atomic:                bool(c.IngestAtomic),
		RejectBatchDuplicates: bool(c.IngestRejectBatchDuplicates),
	}
}

// Load reads the environment. Settings only a server needs are checked by Config.ForServer.
func Load() (*Config, error) {
	var cfg Config

	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}

	cfg.LogFormat = strings.ToLower(strings.TrimSpace(cfg.LogFormat))
	switch cfg.LogFormat {
	case "text", "json", "human":
	default:
		return nil, fmt.Errorf("LOG_FORMAT must be one of text, json or human, got %q", cfg.LogFormat)
	}

	if cfg.MaxUploadBytes <= 0 {
		return nil, fmt.Errorf("MAX_UPLOAD_BYTES must be positive")
	}

	if cfg.SessionTTL <= 0 {
		return nil, fmt.Errorf("SESSION_TTL must be positive")
	}

	return &cfg, nil
}

func (c *Config) ForServer() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL is required")
	}

	if len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 characters long")
	}

	return nil
}
