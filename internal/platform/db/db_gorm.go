// Package db は PostgreSQL への gorm 接続とマイグレーションを提供します。
package db

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	alertadapters "stock_alerts/internal/feature/alerts/adapters"
	candleadapters "stock_alerts/internal/feature/candles/adapters"
	symbolentity "stock_alerts/internal/feature/symbollist/domain/entity"
)

// retryInterval は接続リトライの間隔です。
var retryInterval = 3 * time.Second

// Config is the DB_* section of the application config.
type Config struct {
	User         string `env:"DB_USER"`
	Password     string `env:"DB_PASSWORD"`
	Name         string `env:"DB_NAME"`
	Host         string `env:"DB_HOST,default=localhost"`
	Port         string `env:"DB_PORT,default=5432"`
	SSLMode      string `env:"DB_SSLMODE,default=disable"`
	InstanceName string `env:"INSTANCE_CONNECTION_NAME"` // Cloud SQL; takes precedence over Host/Port

	ConnectTimeout  time.Duration `env:"DB_CONNECT_TIMEOUT,default=60s"`
	MaxOpenConns    int           `env:"DB_MAX_OPEN_CONNS,default=20"`
	MaxIdleConns    int           `env:"DB_MAX_IDLE_CONNS,default=5"`
	ConnMaxLifetime time.Duration `env:"DB_CONN_MAX_LIFETIME,default=30m"`
	RunMigrations   bool          `env:"RUN_MIGRATIONS,default=false"`
}

// BuildDSN returns a key/value DSN understood by both pgx and lib/pq.
func BuildDSN(cfg Config) string {
	host, port := cfg.Host, cfg.Port
	if cfg.InstanceName != "" {
		host, port = "/cloudsql/"+cfg.InstanceName, ""
	}
	sslmode := cfg.SSLMode
	if sslmode == "" {
		sslmode = "disable"
	}

	parts := []string{
		"host=" + host,
		"user=" + cfg.User,
		"password=" + cfg.Password,
		"dbname=" + cfg.Name,
	}
	if port != "" {
		parts = append(parts, "port="+port)
	}
	parts = append(parts, "sslmode="+sslmode, "TimeZone=UTC")
	return strings.Join(parts, " ")
}

// Opener opens a gorm connection for dsn.
type Opener func(dsn string) (*gorm.DB, error)

// ConnectWithRetry は timeout まで retryInterval ごとに接続を試みます。
// ctx がキャンセルされた場合はその時点で諦めます。
func ConnectWithRetry(ctx context.Context, dsn string, timeout time.Duration, open Opener) (*gorm.DB, error) {
	deadline := time.Now().Add(timeout)
	for attempt := 1; ; attempt++ {
		db, err := open(dsn)
		if err == nil {
			return db, nil
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("db connect failed after %v: %w", timeout, err)
		}
		slog.Warn("DB connect failed, retrying", "attempt", attempt, "error", err)

		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("db connect aborted: %w", ctx.Err())
		case <-time.After(retryInterval):
		}
	}
}

func openPostgres(dsn string) (*gorm.DB, error) {
	return gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:  logger.Default.LogMode(logger.Warn),
		NowFunc: func() time.Time { return time.Now().UTC() },
	})
}

// Open connects to PostgreSQL, applies the pool settings and migrates when
// RunMigrations is set.
func Open(ctx context.Context, cfg Config) (*gorm.DB, error) {
	db, err := ConnectWithRetry(ctx, BuildDSN(cfg), cfg.ConnectTimeout, openPostgres)
	if err != nil {
		return nil, err
	}
	if err := ConfigurePool(db, cfg); err != nil {
		return nil, err
	}
	if cfg.RunMigrations {
		if err := Migrate(db); err != nil {
			return nil, fmt.Errorf("failed to migrate: %w", err)
		}
	}
	return db, nil
}

// ConfigurePool applies the connection pool limits. Zero values keep the driver defaults.
func ConfigurePool(db *gorm.DB, cfg Config) error {
	sqlDB, err := db.DB()
	if err != nil {
		return err
	}
	if cfg.MaxOpenConns > 0 {
		sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}
	return nil
}

// Migrate creates or updates every table the service owns.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&symbolentity.Symbol{},
		&candleadapters.CandleModel{},
		&alertadapters.AlertModel{},
	)
}
