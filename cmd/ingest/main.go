package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"

	"stock_alerts/internal/app/di"
	symbollistadapters "stock_alerts/internal/feature/symbollist/adapters"
	"stock_alerts/internal/platform/config"
	platformdb "stock_alerts/internal/platform/db"
	"stock_alerts/internal/platform/pgnotify"
	platformredis "stock_alerts/internal/platform/redis"
)

// ingest は全銘柄の時系列を取得して保存し、最新値を pg_notify で
// サーバープロセスへ通知する単発ジョブです。
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	cfg, err := config.Load(ctx)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	db, err := platformdb.Open(ctx, cfg.DB)
	if err != nil {
		slog.Error("failed to open database", "error", err)
		os.Exit(1)
	}

	// 書き込み時にサーバー側のキャッシュを無効化するため同じ Redis を使う
	var rdb *redisv9.Client
	if tmp, err := platformredis.NewRedisClient(ctx, cfg.Redis); err != nil {
		slog.Warn("Redis unavailable. Cache will not be invalidated.", "error", err)
	} else {
		rdb = tmp
	}

	candles := di.NewCandleStore(cfg, db, rdb)
	notifier := pgnotify.NewNotifier(db, cfg.PriceNotifyChannel)
	uc := di.NewIngest(cfg, candles, notifier)

	symbols, err := symbollistadapters.NewSymbolRepository(db).ListActiveCodes(ctx)
	if err != nil {
		slog.Error("failed to load symbols", "error", err)
		os.Exit(1)
	}

	if err := uc.IngestAll(ctx, symbols); err != nil {
		slog.Error("ingest failed", "error", err)
		os.Exit(1)
	}
	slog.Info("ingest ok", "symbols", len(symbols))
}
