package config

import (
	"context"
	"log/slog"
	"testing"
	"time"

	"github.com/sethvargo/go-envconfig"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadWith_Defaults(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{}))
	require.NoError(t, err)

	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, 60*time.Second, cfg.EvalInterval)
	assert.Equal(t, 64, cfg.EvalConcurrency)
	assert.Equal(t, 5*time.Second, cfg.EvalCallTimeout)
	assert.Equal(t, "1day", cfg.MarketInterval)
	assert.Equal(t, 256, cfg.BrokerQueueCapacity)
	assert.Equal(t, 64, cfg.BrokerDegradeThreshold)
	assert.True(t, cfg.BrokerDisconnectDegraded)
	assert.Equal(t, 30*24*time.Hour, cfg.RearmAfter)
	assert.Equal(t, time.Hour, cfg.RearmInterval)
	assert.Zero(t, cfg.IngestInterval)
	assert.Equal(t, "price_updates", cfg.PriceNotifyChannel)
	assert.Equal(t, 5*time.Minute, cfg.CacheTTL)
	assert.Empty(t, cfg.AdminUserIDs)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, time.Minute, cfg.DB.ConnectTimeout)
	assert.False(t, cfg.DB.RunMigrations)
	assert.Equal(t, "6379", cfg.Redis.Port)
	assert.Empty(t, cfg.Redis.Host)
	assert.Equal(t, "https://api.twelvedata.com", cfg.TwelveData.BaseURL)
	assert.Equal(t, 10*time.Second, cfg.TwelveData.Timeout)
}

func TestLoadWith_Overrides(t *testing.T) {
	t.Parallel()

	cfg, err := LoadWith(context.Background(), envconfig.MapLookuper(map[string]string{
		"HTTP_ADDR":                  ":9090",
		"EVAL_INTERVAL":              "15s",
		"EVAL_CONCURRENCY":           "8",
		"BROKER_DISCONNECT_DEGRADED": "false",
		"INGEST_INTERVAL":            "5m",
		"DB_HOST":                    "pg",
		"RUN_MIGRATIONS":             "true",
		"REDIS_HOST":                 "cache",
		"TWELVE_DATA_API_KEY":        "secret",
		"ADMIN_USER_IDS":             "1,5",
	}))
	require.NoError(t, err)

	assert.Equal(t, ":9090", cfg.HTTPAddr)
	assert.Equal(t, 15*time.Second, cfg.EvalInterval)
	assert.Equal(t, 8, cfg.EvalConcurrency)
	assert.False(t, cfg.BrokerDisconnectDegraded)
	assert.Equal(t, 5*time.Minute, cfg.IngestInterval)
	assert.Equal(t, "pg", cfg.DB.Host)
	assert.True(t, cfg.DB.RunMigrations)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr())
	assert.Equal(t, "secret", cfg.TwelveData.TwelveDataAPIKey)
	assert.Equal(t, []uint{1, 5}, cfg.AdminUserIDs)
}

func TestLoadWith_Invalid(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		env  map[string]string
	}{
		{"unparsable duration", map[string]string{"EVAL_INTERVAL": "soon"}},
		{"zero interval", map[string]string{"EVAL_INTERVAL": "0s"}},
		{"zero concurrency", map[string]string{"EVAL_CONCURRENCY": "0"}},
		{"negative queue", map[string]string{"BROKER_QUEUE_CAPACITY": "-1"}},
		{"zero threshold", map[string]string{"BROKER_DEGRADE_THRESHOLD": "0"}},
		{"zero db timeout", map[string]string{"DB_CONNECT_TIMEOUT": "0s"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := LoadWith(context.Background(), envconfig.MapLookuper(tt.env))
			assert.Error(t, err)
		})
	}
}

func TestConfig_SlogLevel(t *testing.T) {
	t.Parallel()

	tests := map[string]slog.Level{
		"debug":   slog.LevelDebug,
		"DEBUG":   slog.LevelDebug,
		"info":    slog.LevelInfo,
		"warn":    slog.LevelWarn,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
		"":        slog.LevelInfo,
		"verbose": slog.LevelInfo,
	}
	for in, want := range tests {
		assert.Equal(t, want, Config{LogLevel: in}.SlogLevel(), in)
	}
}
