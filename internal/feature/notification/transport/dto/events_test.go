package dto

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	candle "stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/notification/domain/entity"
)

func TestNewPriceEvent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	latest := candle.Candle{Symbol: "APPL", Time: ts, Close: decimal.RequireFromString("3.45"), Volume: 142000}

	t.Run("with previous", func(t *testing.T) {
		prev := candle.Candle{Symbol: "APPL", Time: ts.Add(-24 * time.Hour), Close: decimal.RequireFromString("3.33")}
		ev := NewPriceEvent("price:APPL", latest, &prev)

		b, err := json.Marshal(ev)
		require.NoError(t, err)
		assert.JSONEq(t, `{
			"topic": "price:APPL",
			"symbol": "APPL",
			"price": 3.45,
			"change": 0.12,
			"changePercentage": 3.6,
			"volume": 142000,
			"timestamp": "2024-03-01T00:00:00Z"
		}`, string(b))
	})

	t.Run("without previous", func(t *testing.T) {
		ev := NewPriceEvent("price:APPL", latest, nil)
		assert.Zero(t, ev.Change)
		assert.Zero(t, ev.ChangePercentage)
		assert.Equal(t, 3.45, ev.Price)
	})
}

func TestNewAlertEvent(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 0, 0, 0, time.FixedZone("JST", 9*3600))
	ev := NewAlertEvent("alerts:7", entity.Notification{
		ID:        "id-1",
		Kind:      entity.KindPriceAlert,
		Title:     "Alert Triggered: Premium Apples",
		Message:   "APPL is now 3.20",
		Symbol:    "APPL",
		Priority:  entity.PriorityLow,
		UserID:    7,
		Timestamp: ts,
	})

	b, err := json.Marshal(ev)
	require.NoError(t, err)
	assert.JSONEq(t, `{
		"topic": "alerts:7",
		"id": "id-1",
		"kind": "PriceAlert",
		"title": "Alert Triggered: Premium Apples",
		"message": "APPL is now 3.20",
		"symbol": "APPL",
		"priority": "low",
		"userId": 7,
		"timestamp": "2024-03-01T00:00:00Z"
	}`, string(b))
}
