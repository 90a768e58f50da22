// Package config resolves runtime settings. Sources are layered: an optional
// .env file, then the process environment, then command-line flags. The
// result is validated before use.
package config

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"io/fs"
	"net"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Storage backend modes.
const (
	BackendFS     = "fs"
	BackendPG     = "pg"
	BackendSQLite = "sqlite"
	BackendBolt   = "bolt"
)

// Config holds every tunable of the server.
type Config struct {
	Host string `envconfig:"HOST" default:"0.0.0.0"`
	Port int    `envconfig:"PORT" default:"12000" validate:"min=1,max=65535"`

	// StorageBackend selects the persistence medium.
	StorageBackend string `envconfig:"STORAGE_BACKEND" default:"fs" validate:"oneof=fs pg sqlite bolt"`
	// DatabaseURL is the PostgreSQL connection string, required in pg mode.
	DatabaseURL string `envconfig:"DATABASE_URL" validate:"required_if=StorageBackend pg"`
	DataDir     string `envconfig:"DATA_DIR" default:"./data" validate:"required_if=StorageBackend fs"`
	DBPath      string `envconfig:"DB_PATH" default:"./pagebin.db"`
	DBMaxConns  int    `envconfig:"DB_MAX_CONNS" default:"10" validate:"min=1"`

	// BaseURL overrides the host used in QR codes, e.g. https://paste.example.com.
	BaseURL     string `envconfig:"BASE_URL" validate:"omitempty,url"`
	MaxBytes    int    `envconfig:"MAX_BYTES" default:"1048576" validate:"min=1"`
	BehindProxy bool   `envconfig:"BEHIND_PROXY"`

	RevealTTL       time.Duration `envconfig:"REVEAL_TTL" default:"5m" validate:"gt=0"`
	SweepInterval   time.Duration `envconfig:"SWEEP_INTERVAL" default:"1m" validate:"gt=0"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s" validate:"gt=0"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=debug info warn error"`
	// LogFile, when set, receives a copy of the log in a rotated file.
	LogFile string `envconfig:"LOG_FILE"`
}

// Addr returns the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
}

// Load reads .env from the working directory when present, then the
// environment, then args.
func Load(args []string) (*Config, error) {
	return load(".env", args, io.Discard)
}

func load(envFile string, args []string, usage io.Writer) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	flags := flag.NewFlagSet("pagebin", flag.ContinueOnError)
	flags.SetOutput(usage)
	flags.StringVar(&cfg.Host, "host", cfg.Host, "interface to listen on")
	flags.IntVar(&cfg.Port, "port", cfg.Port, "port to listen on")
	flags.StringVar(&cfg.StorageBackend, "storage", cfg.StorageBackend, "storage backend: fs, pg, sqlite or bolt")
	flags.StringVar(&cfg.DatabaseURL, "database-url", cfg.DatabaseURL, "PostgreSQL connection string")
	flags.StringVar(&cfg.DataDir, "data", cfg.DataDir, "directory for the filesystem backend")
	flags.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "database file for the sqlite and bolt backends")
	flags.StringVar(&cfg.BaseURL, "base-url", cfg.BaseURL, "public base URL used in QR codes")
	flags.IntVar(&cfg.MaxBytes, "max-bytes", cfg.MaxBytes, "maximum request body size in bytes")
	flags.BoolVar(&cfg.BehindProxy, "behind-proxy", cfg.BehindProxy, "trust X-Forwarded-* headers")
	flags.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "log level: debug, info, warn or error")
	if err := flags.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}

	if err := validator.New().Struct(&cfg); err != nil {
		return nil, fmt.Errorf("validate configuration: %w", err)
	}
	return &cfg, nil
}
