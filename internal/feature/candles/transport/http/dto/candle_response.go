// Package dto defines the candles HTTP payloads.
package dto

import (
	"time"

	"github.com/shopspring/decimal"

	"stock_alerts/internal/feature/candles/domain/entity"
)

// CandleResponse keeps prices as decimal strings so clients see the stored
// precision that alert thresholds are compared against.
type CandleResponse struct {
	Time   time.Time       `json:"time"`
	Open   decimal.Decimal `json:"open"`
	High   decimal.Decimal `json:"high"`
	Low    decimal.Decimal `json:"low"`
	Close  decimal.Decimal `json:"close"`
	Volume int64           `json:"volume"`
}

type SeriesResponse struct {
	Symbol   string           `json:"symbol"`
	Interval string           `json:"interval"`
	Candles  []CandleResponse `json:"candles"`
}

func NewSeriesResponse(symbol, interval string, cs []entity.Candle) SeriesResponse {
	out := SeriesResponse{Symbol: symbol, Interval: interval, Candles: make([]CandleResponse, 0, len(cs))}
	for _, x := range cs {
		out.Candles = append(out.Candles, CandleResponse{
			Time:   x.Time.UTC(),
			Open:   x.Open,
			High:   x.High,
			Low:    x.Low,
			Close:  x.Close,
			Volume: x.Volume,
		})
	}
	return out
}
