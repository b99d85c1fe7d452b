package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	redisv9 "github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"stock_alerts/internal/app/di"
	"stock_alerts/internal/platform/config"
	platformdb "stock_alerts/internal/platform/db"
	jwtmw "stock_alerts/internal/platform/jwt"
	"stock_alerts/internal/platform/pgnotify"
	platformredis "stock_alerts/internal/platform/redis"
	"stock_alerts/internal/platform/scheduler"
)

const shutdownTimeout = 15 * time.Second

func main() {
	if err := run(); err != nil {
		slog.Error("server exited", "error", err)
		os.Exit(1)
	}
}

func run() error {
	// .envを読み込む
	if err := godotenv.Load(); err != nil {
		slog.Info(".env not found; using system environment variables")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		return err
	}
	slog.SetDefault(slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()})))

	// JWT_SECRETチェック（開発中の注意喚起）
	if os.Getenv(jwtmw.EnvKeyJWTSecret) == "" {
		slog.Warn("JWT_SECRET is not set. Set a strong secret in production.")
	}

	// db
	db, err := platformdb.Open(ctx, cfg.DB)
	if err != nil {
		return err
	}

	// Redis (無くても動作する)
	var rdb *redisv9.Client
	if tmp, err := platformredis.NewRedisClient(ctx, cfg.Redis); err != nil {
		slog.Warn("Redis unavailable. Running without cache.", "error", err)
	} else if tmp != nil {
		rdb = tmp
		defer func() {
			if err := rdb.Close(); err != nil {
				slog.Error("failed to close Redis client", "error", err)
			}
		}()
	}

	app := di.NewApp(cfg, db, rdb, di.Options{})
	defer app.Broker.Close()

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           app.Router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		slog.Info("http server listening", "addr", cfg.HTTPAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	// アラート評価: tick ごとに1サイクル。前のサイクルが終わっていなくても開始する
	g.Go(func() error {
		scheduler.Run(gctx, "alert_evaluator", cfg.EvalInterval, func(ctx context.Context) {
			report, err := app.Evaluator.RunCycle(ctx)
			if err != nil {
				slog.Error("alert cycle failed", "error", err)
				return
			}
			slog.Debug("alert cycle finished", "report", report)
		})
		return nil
	})

	g.Go(func() error {
		scheduler.Run(gctx, "alert_rearm", cfg.RearmInterval, func(ctx context.Context) {
			if _, err := app.Rearm.RearmStale(ctx); err != nil {
				slog.Error("failed to re-arm stale alerts", "error", err)
			}
		})
		return nil
	})

	// INGEST_INTERVAL が 0 の場合は cmd/ingest が pg_notify で価格を届ける
	if cfg.IngestInterval > 0 {
		ingest := di.NewIngest(cfg, app.Candles, app.Prices)
		g.Go(func() error {
			scheduler.Run(gctx, "ingest", cfg.IngestInterval, func(ctx context.Context) {
				symbols, err := app.Symbols.ListActiveCodes(ctx)
				if err != nil {
					slog.Error("failed to load symbols", "error", err)
					return
				}
				if err := ingest.IngestAll(ctx, symbols); err != nil {
					slog.Error("ingest aborted", "error", err)
				}
			})
			return nil
		})
	}

	g.Go(func() error {
		l := pgnotify.NewListener(platformdb.BuildDSN(cfg.DB), cfg.PriceNotifyChannel, app.Prices.PublishEvent)
		if err := l.Run(gctx); err != nil {
			// 価格のリレーが無くてもアラート評価は継続できる
			slog.Error("price listener stopped", "error", err)
		}
		return nil
	})

	err = g.Wait()
	slog.Info("server stopped")
	return err
}
