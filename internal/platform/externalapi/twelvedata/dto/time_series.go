// Package dto defines the wire format of the Twelve Data time_series endpoint.
package dto

import (
	"fmt"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"stock_alerts/internal/feature/candles/domain/entity"
)

// TimeSeriesResponse is the body of GET /time_series. On failure the API
// answers 200 with status "error" and a numeric code.
type TimeSeriesResponse struct {
	Status  string            `json:"status"`
	Code    int               `json:"code,omitempty"`
	Message string            `json:"message,omitempty"`
	Meta    TimeSeriesMeta    `json:"meta"`
	Values  []TimeSeriesValue `json:"values"`
}

type TimeSeriesMeta struct {
	Symbol   string `json:"symbol"`
	Interval string `json:"interval"`
	Exchange string `json:"exchange,omitempty"`
}

// TimeSeriesValue は1本分。数値はすべて文字列で届きます。
type TimeSeriesValue struct {
	Datetime string `json:"datetime"`
	Open     string `json:"open"`
	High     string `json:"high"`
	Low      string `json:"low"`
	Close    string `json:"close"`
	Volume   string `json:"volume"`
}

const (
	layoutIntraday = "2006-01-02 15:04:05"
	layoutDaily    = "2006-01-02"
)

// Candle converts v, reading datetime in loc. A missing volume (FX pairs) is 0.
func (v TimeSeriesValue) Candle(loc *time.Location) (entity.Candle, error) {
	tm, err := time.ParseInLocation(layoutIntraday, v.Datetime, loc)
	if err != nil {
		if tm, err = time.ParseInLocation(layoutDaily, v.Datetime, loc); err != nil {
			return entity.Candle{}, fmt.Errorf("parse time %q: %w", v.Datetime, err)
		}
	}

	var c entity.Candle
	c.Time = tm.UTC()
	for _, f := range []struct {
		name string
		raw  string
		dst  *decimal.Decimal
	}{
		{"open", v.Open, &c.Open},
		{"high", v.High, &c.High},
		{"low", v.Low, &c.Low},
		{"close", v.Close, &c.Close},
	} {
		d, err := decimal.NewFromString(f.raw)
		if err != nil {
			return entity.Candle{}, fmt.Errorf("parse %s %q: %w", f.name, f.raw, err)
		}
		*f.dst = d
	}

	if v.Volume != "" {
		vol, err := strconv.ParseInt(v.Volume, 10, 64)
		if err != nil {
			return entity.Candle{}, fmt.Errorf("parse volume %q: %w", v.Volume, err)
		}
		c.Volume = vol
	}
	return c, nil
}
