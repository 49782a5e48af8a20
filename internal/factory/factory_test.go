package factory

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/time/rate"

	"github.com/curzel-it/battld/internal/config"
	"github.com/curzel-it/battld/internal/services/auth"
	"github.com/curzel-it/battld/internal/storage/memory"
	"github.com/curzel-it/battld/internal/storage/sqlite"
)

func TestNewDefaultsToMemory(t *testing.T) {
	app, err := New(Config{AuthConfig: auth.Config{Secret: "s3cret"}})
	require.NoError(t, err)
	defer func() { _ = app.Close() }()

	assert.IsType(t, &memory.Storage{}, app.Storage)
	assert.Equal(t, 10*time.Second, app.Registry.GracePeriod())
}

func TestNewSQLite(t *testing.T) {
	app, err := New(Config{
		StorageType: StorageTypeSQLite,
		SQLitePath:  filepath.Join(t.TempDir(), "battld.db"),
		AuthConfig:  auth.Config{Secret: "s3cret"},
	})
	require.NoError(t, err)
	assert.IsType(t, &sqlite.Store{}, app.Storage)
	assert.NoError(t, app.Close())
}

func TestNewRejectsBadConfig(t *testing.T) {
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown storage", Config{StorageType: "postgres", AuthConfig: auth.Config{Secret: "x"}}},
		{"redis without config", Config{StorageType: StorageTypeRedis, AuthConfig: auth.Config{Secret: "x"}}},
		{"sqlite without path", Config{StorageType: StorageTypeSQLite, AuthConfig: auth.Config{Secret: "x"}}},
		{"missing secret", Config{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.cfg)
			assert.Error(t, err)
		})
	}
}

func TestConfigFrom(t *testing.T) {
	settings := config.Config{
		Storage:     config.StorageRedis,
		RedisURL:    "redis://cache:6379/2",
		JWTSecret:   "s3cret",
		TokenTTL:    time.Hour,
		GracePeriod: 5 * time.Second,
		PingPeriod:  20 * time.Second,
		PongWait:    25 * time.Second,
		SendBuffer:  8,
		RateLimit:   2.5,
		RateBurst:   4,
	}

	cfg := ConfigFrom(settings, nil)

	require.NotNil(t, cfg.RedisConfig)
	assert.Equal(t, "redis://cache:6379/2", cfg.RedisConfig.URL)
	assert.Equal(t, "s3cret", cfg.AuthConfig.Secret)
	assert.Equal(t, time.Hour, cfg.AuthConfig.TokenTTL)
	assert.Equal(t, 5*time.Second, cfg.GracePeriod)
	assert.Equal(t, 20*time.Second, cfg.WS.PingPeriod)
	assert.Equal(t, 25*time.Second, cfg.WS.PongWait)
	assert.Equal(t, 8, cfg.WS.SendBuffer)
	assert.Equal(t, rate.Limit(2.5), cfg.WS.RateLimit)
	assert.Equal(t, 4, cfg.WS.RateBurst)
}
