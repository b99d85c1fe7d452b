// Package cache provides caching implementations for repository interfaces.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/candles/usecase"
)

// CandleStore is the repository being decorated: the candle history plus the
// market data reads used by the alert evaluator.
type CandleStore interface {
	usecase.CandleRepository
	Latest(ctx context.Context, symbol string) (*entity.Candle, error)
	PointAtOrBefore(ctx context.Context, symbol string, ts time.Time) (*entity.Candle, error)
	AverageVolume(ctx context.Context, symbol string, since time.Time) (*decimal.Decimal, error)
}

// CachingCandleRepository decorates a CandleStore with Redis caching.
// Find results and the latest candle per symbol are cached; every UpsertBatch
// invalidates the entries of the symbols it touched.
type CachingCandleRepository struct {
	inner     CandleStore
	rdb       *redis.Client
	ttl       time.Duration
	namespace string

	// refreshHour >= 0 caps Find entries so they never outlive the daily data refresh.
	refreshHour int
	refreshLoc  *time.Location
	now         func() time.Time
}

// NewCachingCandleRepository decorates a CandleStore with Redis caching.
// If ttl is 0, it defaults to 5 minutes. If namespace is empty, it uses "candles".
// A nil rdb disables caching entirely.
func NewCachingCandleRepository(rdb *redis.Client, ttl time.Duration, inner CandleStore, namespace string) *CachingCandleRepository {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	if namespace == "" {
		namespace = "candles"
	}
	return &CachingCandleRepository{
		inner:       inner,
		rdb:         rdb,
		ttl:         ttl,
		namespace:   namespace,
		refreshHour: -1,
		now:         time.Now,
	}
}

// WithDailyRefresh caps Find cache entries at the next hour:00 in loc.
func (c *CachingCandleRepository) WithDailyRefresh(hour int, loc *time.Location) *CachingCandleRepository {
	c.refreshHour = hour
	c.refreshLoc = loc
	return c
}

// UpsertBatch inserts or updates candles and invalidates related cache entries.
func (c *CachingCandleRepository) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	if err := c.inner.UpsertBatch(ctx, candles); err != nil {
		return err
	}
	if c.rdb == nil || len(candles) == 0 {
		return nil
	}

	// symbol+interval 単位で無効化
	seen := map[string]struct{}{}
	symbols := map[string]struct{}{}
	var latestKeys []string
	for _, cd := range candles {
		if _, ok := symbols[cd.Symbol]; !ok {
			symbols[cd.Symbol] = struct{}{}
			latestKeys = append(latestKeys, c.latestKey(cd.Symbol))
		}
		prefix := c.cacheKeyPrefix(cd.Symbol, cd.Interval)
		if _, ok := seen[prefix]; ok {
			continue
		}
		seen[prefix] = struct{}{}
		_ = c.deleteByPattern(ctx, prefix+"*") // best effort
	}
	_ = c.rdb.Del(ctx, latestKeys...).Err()
	return nil
}

// Find retrieves candles, checking cache first then falling back to the database.
func (c *CachingCandleRepository) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	if c.rdb == nil {
		return c.inner.Find(ctx, symbol, interval, outputsize)
	}

	key := c.cacheKey(symbol, interval, outputsize)

	// 1) キャッシュ確認
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out []entity.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return out, nil
		}
		// 破損エントリは削除
		_ = c.rdb.Del(ctx, key).Err()
	}

	// 2) DB へフォールバック
	out, err := c.inner.Find(ctx, symbol, interval, outputsize)
	if err != nil {
		return nil, err
	}

	// 3) キャッシュへ保存（best effort）
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.findTTL()).Err()
	}

	return out, nil
}

// Latest returns the newest candle of symbol. Absent data is not cached.
func (c *CachingCandleRepository) Latest(ctx context.Context, symbol string) (*entity.Candle, error) {
	if c.rdb == nil {
		return c.inner.Latest(ctx, symbol)
	}

	key := c.latestKey(symbol)
	if b, err := c.rdb.Get(ctx, key).Bytes(); err == nil && len(b) > 0 {
		var out entity.Candle
		if err := json.Unmarshal(b, &out); err == nil {
			return &out, nil
		}
		_ = c.rdb.Del(ctx, key).Err()
	}

	out, err := c.inner.Latest(ctx, symbol)
	if err != nil || out == nil {
		return out, err
	}
	if b, err := json.Marshal(out); err == nil {
		_ = c.rdb.Set(ctx, key, b, c.ttl).Err()
	}
	return out, nil
}

// PointAtOrBefore is not cached.
func (c *CachingCandleRepository) PointAtOrBefore(ctx context.Context, symbol string, ts time.Time) (*entity.Candle, error) {
	return c.inner.PointAtOrBefore(ctx, symbol, ts)
}

// AverageVolume is not cached.
func (c *CachingCandleRepository) AverageVolume(ctx context.Context, symbol string, since time.Time) (*decimal.Decimal, error) {
	return c.inner.AverageVolume(ctx, symbol, since)
}

func (c *CachingCandleRepository) findTTL() time.Duration {
	if c.refreshHour < 0 {
		return c.ttl
	}
	return min(c.ttl, TimeUntilNext(c.now(), c.refreshHour, c.refreshLoc))
}

// cacheKey generates a cache key for a specific query.
func (c *CachingCandleRepository) cacheKey(symbol, interval string, outputsize int) string {
	return fmt.Sprintf("%s:%s:%s:%d",
		c.namespace,
		safe(symbol),
		safe(interval),
		outputsize,
	)
}

// cacheKeyPrefix generates a prefix for invalidating related cache entries.
func (c *CachingCandleRepository) cacheKeyPrefix(symbol, interval string) string {
	return fmt.Sprintf("%s:%s:%s:",
		c.namespace,
		safe(symbol),
		safe(interval),
	)
}

func (c *CachingCandleRepository) latestKey(symbol string) string {
	return fmt.Sprintf("%s-latest:%s", c.namespace, safe(symbol))
}

// deleteByPattern deletes all cache keys matching a given pattern using SCAN.
func (c *CachingCandleRepository) deleteByPattern(ctx context.Context, pattern string) error {
	var cursor uint64
	for {
		keys, cur, err := c.rdb.Scan(ctx, cursor, pattern, 200).Result()
		if err != nil {
			return err
		}
		if len(keys) > 0 {
			if err := c.rdb.Del(ctx, keys...).Err(); err != nil {
				return err
			}
		}
		cursor = cur
		if cursor == 0 {
			break
		}
	}
	return nil
}

// safe escapes characters that are problematic for Redis keys.
func safe(s string) string {
	s = strings.ReplaceAll(s, " ", "_")
	s = strings.ReplaceAll(s, ":", "_")
	return s
}
