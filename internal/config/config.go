// Package config loads server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Storage backends
const (
	StorageMemory = "memory"
	StorageRedis  = "redis"
	StorageSQLite = "sqlite"
)

// Config holds every server setting
type Config struct {
	Addr      string `env:"BATTLD_ADDR" envDefault:":8080"`
	LogLevel  string `env:"BATTLD_LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"BATTLD_LOG_FORMAT" envDefault:"json"`

	Storage    string `env:"BATTLD_STORAGE" envDefault:"memory"`
	RedisURL   string `env:"BATTLD_REDIS_URL" envDefault:"redis://localhost:6379/0"`
	SQLitePath string `env:"BATTLD_SQLITE_PATH" envDefault:"battld.db"`

	JWTSecret string        `env:"BATTLD_JWT_SECRET"`
	TokenTTL  time.Duration `env:"BATTLD_TOKEN_TTL" envDefault:"24h"`

	GracePeriod time.Duration `env:"BATTLD_GRACE_PERIOD" envDefault:"10s"`
	PingPeriod  time.Duration `env:"BATTLD_PING_PERIOD" envDefault:"25s"`
	PongWait    time.Duration `env:"BATTLD_PONG_WAIT" envDefault:"30s"`
	SendBuffer  int           `env:"BATTLD_SEND_BUFFER" envDefault:"64"`
	RateLimit   float64       `env:"BATTLD_RATE_LIMIT" envDefault:"20"`
	RateBurst   int           `env:"BATTLD_RATE_BURST" envDefault:"40"`
}

// Load reads an optional .env file, then the environment
func Load() (Config, error) {
	_ = godotenv.Load()
	return Parse()
}

// Parse reads the environment into a Config
func Parse() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	return cfg, nil
}

// Validate checks the settings a server needs before starting
func (c Config) Validate() error {
	var errs []error
	switch c.Storage {
	case StorageMemory, StorageRedis, StorageSQLite:
	default:
		errs = append(errs, fmt.Errorf("unknown storage %q: must be memory, redis or sqlite", c.Storage))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("BATTLD_JWT_SECRET is required"))
	}
	if c.PingPeriod >= c.PongWait {
		errs = append(errs, errors.New("ping period must be shorter than pong wait"))
	}
	if c.SendBuffer <= 0 {
		errs = append(errs, errors.New("send buffer must be positive"))
	}
	if _, err := parseLevel(c.LogLevel); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}

// Logger builds the process logger described by LogLevel and LogFormat
func (c Config) Logger(w io.Writer) (*slog.Logger, error) {
	level, err := parseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	opts := &slog.HandlerOptions{Level: level}

	switch strings.ToLower(c.LogFormat) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	}
	return nil, fmt.Errorf("unknown log format %q", c.LogFormat)
}

func parseLevel(s string) (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(s)); err != nil {
		return 0, fmt.Errorf("invalid log level %q", s)
	}
	return level, nil
}
