package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_alerts/internal/feature/candles/domain/entity"
)

var (
	ErrMarketAPI = errors.New("market API error")
	errDB        = errors.New("database error")
)

// mockMarketRepository is a mock implementation of the MarketRepository interface.
type mockMarketRepository struct {
	GetTimeSeriesFunc  func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error)
	GetTimeSeriesCalls int
	calledIntervals    []string
}

func (m *mockMarketRepository) GetTimeSeries(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	m.GetTimeSeriesCalls++
	m.calledIntervals = append(m.calledIntervals, interval)
	if m.GetTimeSeriesFunc != nil {
		return m.GetTimeSeriesFunc(ctx, symbol, interval, outputsize)
	}
	return nil, errors.New("GetTimeSeriesFunc is not implemented")
}

type mockCandleRepo struct {
	UpsertBatchFunc func(ctx context.Context, candles []entity.Candle) error
}

func (m *mockCandleRepo) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	return nil, nil
}

func (m *mockCandleRepo) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	if m.UpsertBatchFunc != nil {
		return m.UpsertBatchFunc(ctx, candles)
	}
	return nil
}

// mockRateLimiter returns immediately.
type mockRateLimiter struct {
	WaitCalls int
	err       error
}

func (m *mockRateLimiter) Wait(ctx context.Context) error {
	m.WaitCalls++
	return m.err
}

type publishedPrice struct {
	latest   entity.Candle
	previous *entity.Candle
}

type mockPublisher struct {
	published []publishedPrice
	err       error
}

func (m *mockPublisher) PublishPrice(ctx context.Context, latest entity.Candle, previous *entity.Candle) error {
	m.published = append(m.published, publishedPrice{latest: latest, previous: previous})
	return m.err
}

func sampleCandles(base time.Time) []entity.Candle {
	return []entity.Candle{
		{Time: base, Close: decimal.RequireFromString("3.45"), Volume: 142000},
		{Time: base.AddDate(0, 0, -1), Close: decimal.RequireFromString("3.33"), Volume: 100000},
	}
}

func TestIngestUsecase_ingestOne(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	testCases := []struct {
		name        string
		marketErr   error
		upsertErr   error
		expectedErr error
	}{
		{name: "success: data fetch and save succeed"},
		{name: "error: MarketRepository returns error", marketErr: ErrMarketAPI, expectedErr: ErrMarketAPI},
		{name: "error: CandleRepository returns error", upsertErr: errDB, expectedErr: errDB},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			var captured []entity.Candle
			market := &mockMarketRepository{
				GetTimeSeriesFunc: func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
					if tc.marketErr != nil {
						return nil, tc.marketErr
					}
					return sampleCandles(base), nil
				},
			}
			repo := &mockCandleRepo{
				UpsertBatchFunc: func(ctx context.Context, candles []entity.Candle) error {
					captured = candles
					return tc.upsertErr
				},
			}

			uc := NewIngestUsecase(market, repo, &mockRateLimiter{}, nil, "1day")
			_, err := uc.ingestOne(ctx, "AAPL", "1day", 200)

			if tc.expectedErr != nil {
				assert.ErrorIs(t, err, tc.expectedErr)
				return
			}
			require.NoError(t, err)
			require.Len(t, captured, 2)
			for _, c := range captured {
				assert.Equal(t, "AAPL", c.Symbol)
				assert.Equal(t, "1day", c.Interval)
			}
		})
	}
}

func TestIngestUsecase_IngestAll(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	market := &mockMarketRepository{
		GetTimeSeriesFunc: func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
			if symbol == "INVALID" {
				return nil, ErrMarketAPI
			}
			return sampleCandles(base), nil
		},
	}
	pub := &mockPublisher{}
	rl := &mockRateLimiter{}
	uc := NewIngestUsecase(market, &mockCandleRepo{}, rl, pub, "1day")

	err := uc.IngestAll(ctx, []string{"AAPL", "INVALID", "GOOG"})
	require.NoError(t, err, "per-symbol failures must not abort the run")

	// 3 symbols × 3 intervals
	assert.Equal(t, 9, market.GetTimeSeriesCalls)
	assert.Equal(t, 9, rl.WaitCalls)

	// only the live interval of successful symbols is published
	require.Len(t, pub.published, 2)
	assert.Equal(t, "AAPL", pub.published[0].latest.Symbol)
	assert.Equal(t, "GOOG", pub.published[1].latest.Symbol)
	assert.True(t, decimal.RequireFromString("3.45").Equal(pub.published[0].latest.Close))
	require.NotNil(t, pub.published[0].previous)
	assert.True(t, decimal.RequireFromString("3.33").Equal(pub.published[0].previous.Close))
}

func TestIngestUsecase_IngestAll_LiveIntervalFirst(t *testing.T) {
	market := &mockMarketRepository{
		GetTimeSeriesFunc: func(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
			return nil, nil
		},
	}
	uc := NewIngestUsecase(market, &mockCandleRepo{}, &mockRateLimiter{}, nil, "1min")

	require.NoError(t, uc.IngestAll(context.Background(), []string{"AAPL"}))
	assert.Equal(t, []string{"1min", "1day", "1week", "1month"}, market.calledIntervals)
}

func TestIngestUsecase_IngestAll_RateLimiterCancelled(t *testing.T) {
	rl := &mockRateLimiter{err: context.Canceled}
	market := &mockMarketRepository{}
	uc := NewIngestUsecase(market, &mockCandleRepo{}, rl, nil, "1day")

	err := uc.IngestAll(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, market.GetTimeSeriesCalls)
}

func TestLatestPair(t *testing.T) {
	base := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)

	_, _, ok := LatestPair(nil)
	assert.False(t, ok)

	single := []entity.Candle{{Time: base}}
	latest, prev, ok := LatestPair(single)
	assert.True(t, ok)
	assert.Equal(t, base, latest.Time)
	assert.Nil(t, prev)

	unordered := []entity.Candle{{Time: base.AddDate(0, 0, -2)}, {Time: base}, {Time: base.AddDate(0, 0, -1)}}
	latest, prev, ok = LatestPair(unordered)
	assert.True(t, ok)
	assert.Equal(t, base, latest.Time)
	require.NotNil(t, prev)
	assert.Equal(t, base.AddDate(0, 0, -1), prev.Time)
}
