package usecase

import (
	"context"
	"log/slog"

	"stock_alerts/internal/feature/candles/domain/entity"
)

const (
	ingestOutputSize = 200 // 1回のリクエストで取得するデータ件数
)

// DefaultIngestIntervals はデータ取得の対象となる時間足のリストです。
var DefaultIngestIntervals = []string{"1day", "1week", "1month"}

// MarketRepository は株価データを取得するリポジトリのインターフェイスです。
// 外部 API の実装を抽象化します。
type MarketRepository interface {
	GetTimeSeries(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
}

// RateLimiter blocks until the next outbound API call is allowed.
type RateLimiter interface {
	Wait(ctx context.Context) error
}

// PricePublisher announces the newest candle of a symbol to live subscribers.
// previous is nil when the series holds a single point.
type PricePublisher interface {
	PublishPrice(ctx context.Context, latest entity.Candle, previous *entity.Candle) error
}

// IngestUsecase fetches time series from the market API, persists them and
// publishes the newest point of the live interval as a price update.
type IngestUsecase struct {
	market       MarketRepository
	candle       CandleRepository
	rateLimiter  RateLimiter
	publisher    PricePublisher
	intervals    []string
	liveInterval string
	logger       *slog.Logger
}

// NewIngestUsecase は新しい IngestUsecase を作成します。
// publisher may be nil, in which case nothing is published.
// liveInterval is the interval whose newest candle is published; it is
// ingested even if it is not part of DefaultIngestIntervals.
func NewIngestUsecase(market MarketRepository, candle CandleRepository, rateLimiter RateLimiter, publisher PricePublisher, liveInterval string) *IngestUsecase {
	if liveInterval == "" {
		liveInterval = DefaultInterval
	}
	intervals := []string{liveInterval}
	for _, iv := range DefaultIngestIntervals {
		if iv != liveInterval {
			intervals = append(intervals, iv)
		}
	}
	return &IngestUsecase{
		market:       market,
		candle:       candle,
		rateLimiter:  rateLimiter,
		publisher:    publisher,
		intervals:    intervals,
		liveInterval: liveInterval,
		logger:       slog.Default().With("component", "ingest"),
	}
}

// ingestOne は指定された銘柄と時間足の時系列データを外部リポジトリから取得し、
// データベースに一括で挿入（または更新）します。保存したデータを返します。
func (iu *IngestUsecase) ingestOne(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	cs, err := iu.market.GetTimeSeries(ctx, symbol, interval, outputsize)
	if err != nil {
		return nil, err
	}

	// 取得したデータに銘柄コードと時間足を設定
	for i := range cs {
		cs[i].Symbol = symbol
		cs[i].Interval = interval
	}
	if err := iu.candle.UpsertBatch(ctx, cs); err != nil {
		return nil, err
	}
	return cs, nil
}

// IngestAll は指定された全銘柄の時系列データを取得して永続化し、
// live interval の最新値を PricePublisher へ渡します。
// 1つの銘柄で失敗しても処理は継続し、エラーはログにのみ出力します。
func (iu *IngestUsecase) IngestAll(ctx context.Context, symbols []string) error {
	for _, s := range symbols {
		for _, interval := range iu.intervals {
			if err := iu.rateLimiter.Wait(ctx); err != nil {
				return err
			}
			cs, err := iu.ingestOne(ctx, s, interval, ingestOutputSize)
			if err != nil {
				iu.logger.Error("failed to ingest data", "symbol", s, "interval", interval, "error", err)
				continue
			}
			if interval == iu.liveInterval {
				iu.publish(ctx, s, cs)
			}
		}
	}
	return nil
}

func (iu *IngestUsecase) publish(ctx context.Context, symbol string, cs []entity.Candle) {
	if iu.publisher == nil {
		return
	}
	latest, previous, ok := LatestPair(cs)
	if !ok {
		return
	}
	if err := iu.publisher.PublishPrice(ctx, latest, previous); err != nil {
		iu.logger.Warn("failed to publish price update", "symbol", symbol, "error", err)
	}
}

// LatestPair returns the newest candle and the one right before it, regardless
// of the order of cs.
func LatestPair(cs []entity.Candle) (entity.Candle, *entity.Candle, bool) {
	if len(cs) == 0 {
		return entity.Candle{}, nil, false
	}
	li := 0
	for i := range cs {
		if cs[i].Time.After(cs[li].Time) {
			li = i
		}
	}
	pi := -1
	for i := range cs {
		if i == li {
			continue
		}
		if pi < 0 || cs[i].Time.After(cs[pi].Time) {
			pi = i
		}
	}
	if pi < 0 {
		return cs[li], nil, true
	}
	prev := cs[pi]
	return cs[li], &prev, true
}
