// Package entity defines the domain models for the candles feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Candle represents OHLCV (Open, High, Low, Close, Volume) candlestick data
// for a stock symbol at a specific time interval.
// A candle is immutable once produced; the latest candle of a symbol is the one
// with the greatest Time.
type Candle struct {
	Symbol   string          // Stock ticker symbol (e.g., "AAPL", "7203.T")
	Interval string          // Time interval (e.g., "1min", "1day", "1week")
	Time     time.Time       // Timestamp for the start of this candle period
	Open     decimal.Decimal // Opening price
	High     decimal.Decimal // Highest price during this period
	Low      decimal.Decimal // Lowest price during this period
	Close    decimal.Decimal // Closing price
	Volume   int64           // Trading volume
}
