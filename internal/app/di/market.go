// Package di provides dependency injection factories for creating application components.
package di

import (
	"time"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	candleadapters "stock_alerts/internal/feature/candles/adapters"
	candleuc "stock_alerts/internal/feature/candles/usecase"
	"stock_alerts/internal/platform/cache"
	"stock_alerts/internal/platform/config"
	"stock_alerts/internal/platform/externalapi/twelvedata"
	infrahttp "stock_alerts/internal/platform/http"
	"stock_alerts/internal/shared/ratelimiter"
)

// NewMarket creates a fully configured TwelveDataMarket with HTTP client.
func NewMarket(cfg twelvedata.Config) *twelvedata.TwelveDataMarket {
	httpClient := infrahttp.NewHTTPClient(cfg.Timeout)
	return twelvedata.NewTwelveDataMarket(cfg, httpClient)
}

// NewCandleStore returns the candle repository for cfg.MarketInterval,
// wrapped with the Redis cache (a nil rdb disables caching).
func NewCandleStore(cfg config.Config, db *gorm.DB, rdb *redis.Client) *cache.CachingCandleRepository {
	repo := candleadapters.NewCandleRepository(db, cfg.MarketInterval)
	// 日足は毎朝 8:00 (UTC) に確定するので、それ以上キャッシュしない
	return cache.NewCachingCandleRepository(rdb, cfg.CacheTTL, repo, "candles").
		WithDailyRefresh(8, time.UTC)
}

// NewIngest wires the ingestion producer. publisher receives the newest
// candle of cfg.MarketInterval per symbol.
func NewIngest(cfg config.Config, candles candleuc.CandleRepository, publisher candleuc.PricePublisher) *candleuc.IngestUsecase {
	limiter := ratelimiter.NewRateLimiter(cfg.TwelveData.RequestsPerMin, time.Minute)
	return candleuc.NewIngestUsecase(NewMarket(cfg.TwelveData), candles, limiter, publisher, cfg.MarketInterval)
}
