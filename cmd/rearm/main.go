package main

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/joho/godotenv"

	alertadapters "stock_alerts/internal/feature/alerts/adapters"
	alertuc "stock_alerts/internal/feature/alerts/usecase"
	"stock_alerts/internal/platform/config"
	platformdb "stock_alerts/internal/platform/db"
)

// rearm は REARM_AFTER より前に発火したアラートを再び評価対象に戻す単発ジョブです。
func main() {
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
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

	uc := alertuc.NewRearmUsecase(alertadapters.NewAlertRepository(db), cfg.RearmAfter)
	n, err := uc.RearmStale(ctx)
	if err != nil {
		slog.Error("rearm failed", "error", err)
		os.Exit(1)
	}
	slog.Info("rearm ok", "rearmed", n, "older_than", cfg.RearmAfter)
}
