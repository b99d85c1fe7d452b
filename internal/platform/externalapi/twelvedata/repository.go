package twelvedata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/candles/usecase"
	"stock_alerts/internal/platform/externalapi/twelvedata/dto"
)

// ErrRateLimited is returned when the API reports the credit quota as spent.
var ErrRateLimited = errors.New("twelvedata: rate limited")

// APIError は status:"error" 応答です。
type APIError struct {
	Code    int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("twelvedata %d: %s", e.Code, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrRateLimited && e.Code == http.StatusTooManyRequests
}

// TwelveDataMarket is the MarketRepository backed by the Twelve Data REST API.
type TwelveDataMarket struct {
	cfg    Config
	client *http.Client
	loc    *time.Location
}

var _ usecase.MarketRepository = (*TwelveDataMarket)(nil)

// NewTwelveDataMarket asks the API for UTC datetimes so stored candles never
// depend on the exchange's zone.
func NewTwelveDataMarket(cfg Config, client *http.Client) *TwelveDataMarket {
	return &TwelveDataMarket{cfg: cfg, client: client, loc: time.UTC}
}

// GetTimeSeries returns the candles of symbol in the order the API sends them (newest first).
func (t *TwelveDataMarket) GetTimeSeries(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	var body dto.TimeSeriesResponse
	if err := t.get(ctx, "/time_series", t.timeSeriesQuery(symbol, interval, outputsize), &body); err != nil {
		return nil, fmt.Errorf("time_series %s %s: %w", symbol, interval, err)
	}
	if body.Status == "error" {
		return nil, &APIError{Code: body.Code, Message: body.Message}
	}

	candles := make([]entity.Candle, 0, len(body.Values))
	for _, v := range body.Values {
		c, err := v.Candle(t.loc)
		if err != nil {
			return nil, fmt.Errorf("time_series %s %s: %w", symbol, interval, err)
		}
		candles = append(candles, c)
	}
	return candles, nil
}

func (t *TwelveDataMarket) timeSeriesQuery(symbol, interval string, outputsize int) url.Values {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("interval", interval)
	q.Set("outputsize", strconv.Itoa(outputsize))
	q.Set("timezone", "UTC")
	q.Set("apikey", t.cfg.TwelveDataAPIKey)
	return q
}

func (t *TwelveDataMarket) get(ctx context.Context, path string, q url.Values, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, t.cfg.BaseURL+path+"?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	res, err := t.client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			slog.Warn("failed to close response body", "error", err)
		}
	}()

	switch {
	case res.StatusCode == http.StatusTooManyRequests:
		return ErrRateLimited
	case res.StatusCode >= 400:
		return fmt.Errorf("twelvedata http %d", res.StatusCode)
	}
	return json.NewDecoder(res.Body).Decode(out)
}
