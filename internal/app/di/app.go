package di

import (
	"context"
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"stock_alerts/internal/app/router"
	alertadapters "stock_alerts/internal/feature/alerts/adapters"
	alerthandler "stock_alerts/internal/feature/alerts/transport/handler"
	alertuc "stock_alerts/internal/feature/alerts/usecase"
	candleshandler "stock_alerts/internal/feature/candles/transport/handler"
	candleuc "stock_alerts/internal/feature/candles/usecase"
	notificationuc "stock_alerts/internal/feature/notification/usecase"
	"stock_alerts/internal/feature/realtime/broker"
	realtimehandler "stock_alerts/internal/feature/realtime/transport/handler"
	"stock_alerts/internal/feature/realtime/transport/ws"
	symbollistadapters "stock_alerts/internal/feature/symbollist/adapters"
	symbollisthandler "stock_alerts/internal/feature/symbollist/transport/handler"
	symbollistuc "stock_alerts/internal/feature/symbollist/usecase"
	"stock_alerts/internal/platform/cache"
	"stock_alerts/internal/platform/config"
	"stock_alerts/internal/platform/http/handler"
	jwtmw "stock_alerts/internal/platform/jwt"
)

// App holds the long-lived components of the server process.
// The caller owns Broker and must Close it on shutdown.
type App struct {
	Broker    *broker.Broker
	Evaluator *alertuc.Evaluator
	Rearm     *alertuc.RearmUsecase
	Prices    *notificationuc.PriceNotifier
	Symbols   *symbollistuc.SymbolUsecase
	Candles   *cache.CachingCandleRepository
	Router    *gin.Engine
}

// Options overrides pieces of the wiring, mainly for tests.
type Options struct {
	// Verify checks websocket bearer tokens. Defaults to jwtmw.EnvVerifier.
	Verify ws.TokenVerifier
	// Clock is the evaluator's time source. Defaults to time.Now.
	Clock func() time.Time
}

// NewApp wires every feature of the server around one broker instance.
func NewApp(cfg config.Config, db *gorm.DB, rdb *redis.Client, opts Options) *App {
	b := broker.New(broker.Config{
		QueueCapacity:      cfg.BrokerQueueCapacity,
		DegradeThreshold:   cfg.BrokerDegradeThreshold,
		DisconnectDegraded: cfg.BrokerDisconnectDegraded,
	})

	// Repository
	alertRepo := alertadapters.NewAlertRepository(db)
	symbolRepo := symbollistadapters.NewSymbolRepository(db)
	candleStore := NewCandleStore(cfg, db, rdb)

	// Usecase
	symbolUC := symbollistuc.NewSymbolUsecase(symbolRepo)
	dispatcher := notificationuc.NewDispatcher(b, symbolUC).WithLookupTimeout(cfg.EvalCallTimeout)
	evaluator := alertuc.NewEvaluator(alertRepo, candleStore, dispatcher, alertuc.EvaluatorConfig{
		Concurrency: cfg.EvalConcurrency,
		CallTimeout: cfg.EvalCallTimeout,
		Clock:       opts.Clock,
	})
	rearmUC := alertuc.NewRearmUsecase(alertRepo, cfg.RearmAfter)
	alertUC := alertuc.NewAlertUsecase(alertRepo)
	candlesUC := candleuc.NewCandlesUsecase(candleStore)

	// Handler
	verify := opts.Verify
	if verify == nil {
		verify = jwtmw.EnvVerifier()
	}
	deps := map[string]handler.Pinger{}
	if sqlDB, err := db.DB(); err == nil {
		deps["db"] = sqlDB
	}
	if rdb != nil {
		deps["redis"] = redisPinger{rdb}
	}
	r := router.NewRouter(router.Handlers{
		Candles: candleshandler.NewCandlesHandler(candlesUC),
		Symbols: symbollisthandler.NewSymbolHandler(symbolUC),
		Alerts:  alerthandler.NewAlertHandler(alertUC),
		Admin:   alerthandler.NewAdminHandler(evaluator, rearmUC),
		Topics:  realtimehandler.NewTopicsHandler(b),
		Socket:  ws.NewHandler(b, verify, ws.Config{}),
		Ready:   handler.Ready(deps),
	}, cfg.AdminUserIDs)

	slog.Info("application wired",
		"market_interval", cfg.MarketInterval,
		"eval_concurrency", cfg.EvalConcurrency,
		"cache", rdb != nil,
	)

	return &App{
		Broker:    b,
		Evaluator: evaluator,
		Rearm:     rearmUC,
		Prices:    notificationuc.NewPriceNotifier(b),
		Symbols:   symbolUC,
		Candles:   candleStore,
		Router:    r,
	}
}

// redisPinger adapts *redis.Client to handler.Pinger.
type redisPinger struct{ rdb *redis.Client }

func (p redisPinger) PingContext(ctx context.Context) error {
	return p.rdb.Ping(ctx).Err()
}
