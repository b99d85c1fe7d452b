// Package usecase はローソク足データ操作のビジネスロジックを実装します。
package usecase

import (
	"context"
	"fmt"
	"strings"

	"stock_alerts/internal/feature/candles/domain"
	"stock_alerts/internal/feature/candles/domain/entity"
)

const (
	// DefaultInterval is the series alerts are evaluated against.
	DefaultInterval = "1day"
	// DefaultOutputSize はデフォルトのローソク足返却件数です。
	DefaultOutputSize = 200
	// MaxOutputSize はローソク足の最大返却件数です。
	MaxOutputSize = 5000
)

// SupportedIntervals は受け付ける時間足です。
var SupportedIntervals = []string{"1min", "5min", "15min", "30min", "1h", "4h", "1day", "1week", "1month"}

// CandleRepository abstracts reads and writes of stored candles.
type CandleRepository interface {
	// Find returns up to outputsize candles, newest first.
	Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	// UpsertBatch inserts candles, replacing OHLCV values of existing (symbol, interval, time) rows.
	UpsertBatch(ctx context.Context, candles []entity.Candle) error
}

// Quote is the newest candle of a series with the one right before it.
type Quote struct {
	Latest   entity.Candle
	Previous *entity.Candle
}

type CandlesUsecase struct {
	candle CandleRepository
}

func NewCandlesUsecase(candle CandleRepository) *CandlesUsecase {
	return &CandlesUsecase{candle: candle}
}

// GetCandles returns the stored series of symbol, newest first.
// An empty interval means DefaultInterval; outputsize <= 0 means
// DefaultOutputSize and is capped at MaxOutputSize.
func (cu *CandlesUsecase) GetCandles(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	symbol, interval, err := normalize(symbol, interval)
	if err != nil {
		return nil, err
	}
	switch {
	case outputsize <= 0:
		outputsize = DefaultOutputSize
	case outputsize > MaxOutputSize:
		outputsize = MaxOutputSize
	}
	return cu.candle.Find(ctx, symbol, interval, outputsize)
}

// Quote は最新値と直前値を返します。データが無ければ domain.ErrNoCandles。
func (cu *CandlesUsecase) Quote(ctx context.Context, symbol, interval string) (Quote, error) {
	symbol, interval, err := normalize(symbol, interval)
	if err != nil {
		return Quote{}, err
	}
	cs, err := cu.candle.Find(ctx, symbol, interval, 2)
	if err != nil {
		return Quote{}, err
	}
	latest, previous, ok := LatestPair(cs)
	if !ok {
		return Quote{}, fmt.Errorf("%w: %s", domain.ErrNoCandles, symbol)
	}
	return Quote{Latest: latest, Previous: previous}, nil
}

func normalize(symbol, interval string) (string, string, error) {
	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if interval == "" {
		return symbol, DefaultInterval, nil
	}
	for _, iv := range SupportedIntervals {
		if iv == interval {
			return symbol, interval, nil
		}
	}
	return "", "", fmt.Errorf("%w: %q", domain.ErrInvalidInterval, interval)
}
