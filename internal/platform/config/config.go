// Package config loads the application tunables from the environment.
package config

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/sethvargo/go-envconfig"

	"stock_alerts/internal/platform/db"
	"stock_alerts/internal/platform/externalapi/twelvedata"
	"stock_alerts/internal/platform/redis"
)

// Config is populated by go-envconfig. Infra sections are nested structs
// whose fields carry their own env tags.
type Config struct {
	HTTPAddr string `env:"HTTP_ADDR,default=:8080"`
	LogLevel string `env:"LOG_LEVEL,default=info"`

	EvalInterval    time.Duration `env:"EVAL_INTERVAL,default=60s"`
	EvalConcurrency int           `env:"EVAL_CONCURRENCY,default=64"`
	EvalCallTimeout time.Duration `env:"EVAL_CALL_TIMEOUT,default=5s"`
	MarketInterval  string        `env:"MARKET_INTERVAL,default=1day"`

	BrokerQueueCapacity      int  `env:"BROKER_QUEUE_CAPACITY,default=256"`
	BrokerDegradeThreshold   int  `env:"BROKER_DEGRADE_THRESHOLD,default=64"`
	BrokerDisconnectDegraded bool `env:"BROKER_DISCONNECT_DEGRADED,default=true"`

	RearmAfter    time.Duration `env:"REARM_AFTER,default=720h"`
	RearmInterval time.Duration `env:"REARM_INTERVAL,default=1h"`

	// 0 の場合、サーバープロセス内での取り込みは行わない
	IngestInterval     time.Duration `env:"INGEST_INTERVAL,default=0s"`
	PriceNotifyChannel string        `env:"PRICE_NOTIFY_CHANNEL,default=price_updates"`

	CacheTTL time.Duration `env:"CACHE_TTL,default=5m"`

	// /admin/* を呼び出せるユーザー。空なら管理 API は全て 403
	AdminUserIDs []uint `env:"ADMIN_USER_IDS"`

	DB         db.Config
	Redis      redis.Config
	TwelveData twelvedata.Config
}

// Load reads Config from the process environment.
func Load(ctx context.Context) (Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads Config through l and validates it.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.EvalInterval <= 0 {
		return fmt.Errorf("config: EVAL_INTERVAL must be positive, got %s", c.EvalInterval)
	}
	if c.EvalConcurrency <= 0 {
		return fmt.Errorf("config: EVAL_CONCURRENCY must be positive, got %d", c.EvalConcurrency)
	}
	if c.BrokerQueueCapacity <= 0 {
		return fmt.Errorf("config: BROKER_QUEUE_CAPACITY must be positive, got %d", c.BrokerQueueCapacity)
	}
	if c.BrokerDegradeThreshold <= 0 {
		return fmt.Errorf("config: BROKER_DEGRADE_THRESHOLD must be positive, got %d", c.BrokerDegradeThreshold)
	}
	if c.DB.ConnectTimeout <= 0 {
		return fmt.Errorf("config: DB_CONNECT_TIMEOUT must be positive, got %s", c.DB.ConnectTimeout)
	}
	if c.PriceNotifyChannel == "" {
		return fmt.Errorf("config: PRICE_NOTIFY_CHANNEL must not be empty")
	}
	return nil
}

// SlogLevel maps LOG_LEVEL to a slog.Level. Unknown values mean info.
func (c Config) SlogLevel() slog.Level {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
