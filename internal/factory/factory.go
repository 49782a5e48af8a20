package factory

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/time/rate"

	"github.com/curzel-it/battld/internal/config"
	"github.com/curzel-it/battld/internal/dependencies/clock"
	"github.com/curzel-it/battld/internal/dependencies/random"
	"github.com/curzel-it/battld/internal/metrics"
	"github.com/curzel-it/battld/internal/services/auth"
	"github.com/curzel-it/battld/internal/services/matchmaking"
	"github.com/curzel-it/battld/internal/services/orchestrator"
	"github.com/curzel-it/battld/internal/services/registry"
	"github.com/curzel-it/battld/internal/services/router"
	"github.com/curzel-it/battld/internal/services/stats"
	"github.com/curzel-it/battld/internal/storage"
	"github.com/curzel-it/battld/internal/storage/memory"
	redisstorage "github.com/curzel-it/battld/internal/storage/redis"
	"github.com/curzel-it/battld/internal/storage/sqlite"
	"github.com/curzel-it/battld/internal/ws"
)

// Storage type constants
const (
	StorageTypeMemory = config.StorageMemory
	StorageTypeRedis  = config.StorageRedis
	StorageTypeSQLite = config.StorageSQLite
)

// App contains all wired application components
type App struct {
	// Storage
	Storage storage.Storage

	// External dependencies
	Clock  clock.Clock
	Random random.Random

	Metrics *metrics.Metrics

	// Services
	Router       *router.Router
	Matchmaker   *matchmaking.Service
	Registry     *registry.Registry
	Orchestrator *orchestrator.Orchestrator
	AuthService  *auth.Service
	StatsService *stats.Service

	// Realtime transport
	WSHandler *ws.Handler

	Logger *slog.Logger
}

// Config holds configuration for the application factory
type Config struct {
	// Logger is the application logger (optional)
	// If nil, a no-op logger is used
	Logger *slog.Logger
	// StorageType selects the storage backend ("memory", "redis" or "sqlite")
	// If empty, defaults to "memory"
	StorageType string
	// RedisConfig holds Redis connection settings (required if StorageType is "redis")
	RedisConfig *redisstorage.Config
	// SQLitePath is the database file (required if StorageType is "sqlite")
	SQLitePath string
	// AuthConfig holds configuration for the auth service
	AuthConfig auth.Config
	// GracePeriod is how long a disconnected player may reconnect.
	// If zero, defaults to registry.DefaultGracePeriod
	GracePeriod time.Duration
	// WS holds per-connection settings. If zero, defaults to ws.DefaultConfig()
	WS ws.Config
}

// ConfigFrom maps server settings onto a factory Config
func ConfigFrom(settings config.Config, logger *slog.Logger) Config {
	cfg := Config{
		Logger:      logger,
		StorageType: settings.Storage,
		SQLitePath:  settings.SQLitePath,
		GracePeriod: settings.GracePeriod,
	}

	if settings.Storage == StorageTypeRedis {
		redisCfg := redisstorage.DefaultConfig()
		redisCfg.URL = settings.RedisURL
		cfg.RedisConfig = &redisCfg
	}

	cfg.AuthConfig = auth.DefaultConfig()
	cfg.AuthConfig.Secret = settings.JWTSecret
	cfg.AuthConfig.TokenTTL = settings.TokenTTL

	cfg.WS = ws.DefaultConfig()
	cfg.WS.PingPeriod = settings.PingPeriod
	cfg.WS.PongWait = settings.PongWait
	cfg.WS.SendBuffer = settings.SendBuffer
	cfg.WS.RateLimit = rate.Limit(settings.RateLimit)
	cfg.WS.RateBurst = settings.RateBurst
	return cfg
}

// New creates a new application with all dependencies wired
func New(cfg Config) (*App, error) {
	// Use no-op logger if not provided
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}

	store, err := openStorage(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.AuthConfig.Secret == "" {
		return nil, errors.New("AuthConfig.Secret is required")
	}

	wsCfg := cfg.WS
	if wsCfg == (ws.Config{}) {
		wsCfg = ws.DefaultConfig()
	}

	return newWithDependencies(store, clock.New(), random.New(), cfg.AuthConfig, cfg.GracePeriod, wsCfg, logger), nil
}

func openStorage(cfg Config) (storage.Storage, error) {
	storageType := cfg.StorageType
	if storageType == "" {
		storageType = StorageTypeMemory
	}

	switch storageType {
	case StorageTypeMemory:
		return memory.New(), nil
	case StorageTypeRedis:
		if cfg.RedisConfig == nil {
			return nil, errors.New("RedisConfig required when StorageType is redis")
		}
		redisStore, err := redisstorage.New(*cfg.RedisConfig)
		if err != nil {
			return nil, err
		}
		return redisStore, nil
	case StorageTypeSQLite:
		if cfg.SQLitePath == "" {
			return nil, errors.New("SQLitePath required when StorageType is sqlite")
		}
		sqliteStore, err := sqlite.Open(cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		return sqliteStore, nil
	}
	return nil, fmt.Errorf("invalid StorageType %q: must be memory, redis or sqlite", storageType)
}

// newWithDependencies creates an App with the given dependencies (useful for testing)
func newWithDependencies(
	store storage.Storage,
	clk clock.Clock,
	rnd random.Random,
	authCfg auth.Config,
	grace time.Duration,
	wsCfg ws.Config,
	logger *slog.Logger,
) *App {
	if grace <= 0 {
		grace = registry.DefaultGracePeriod
	}

	m := metrics.New()
	gameRouter := router.New()
	matchmaker := matchmaking.New(store, gameRouter, rnd, logger)
	reg := registry.New(clk, grace, logger)
	orch := orchestrator.New(store, gameRouter, matchmaker, reg, m, clk, logger)
	authService := auth.New(store, clk, authCfg)

	return &App{
		Storage:      store,
		Clock:        clk,
		Random:       rnd,
		Metrics:      m,
		Router:       gameRouter,
		Matchmaker:   matchmaker,
		Registry:     reg,
		Orchestrator: orch,
		AuthService:  authService,
		StatsService: stats.New(store),
		WSHandler:    ws.NewHandler(authService, orch, m, wsCfg, logger),
		Logger:       logger,
	}
}

// Close stops realtime sessions and releases the storage backend
func (a *App) Close() error {
	a.WSHandler.Shutdown()
	if c, ok := a.Storage.(io.Closer); ok {
		return c.Close()
	}
	return nil
}
