// Package dto はクライアントへ配信するイベントのワイヤー形式を定義します。
package dto

import (
	"time"

	candle "stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/notification/domain/entity"
)

// PriceEvent is delivered on price:<symbol> and price:*.
type PriceEvent struct {
	Topic            string    `json:"topic"`
	Symbol           string    `json:"symbol"`
	Price            float64   `json:"price"`
	Change           float64   `json:"change"`
	ChangePercentage float64   `json:"changePercentage"`
	Volume           int64     `json:"volume"`
	Timestamp        time.Time `json:"timestamp"`
}

// AlertEvent is delivered on alerts:<userId>.
type AlertEvent struct {
	Topic     string    `json:"topic"`
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Symbol    string    `json:"symbol,omitempty"`
	Priority  string    `json:"priority"`
	UserID    uint      `json:"userId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewPriceEvent builds the event for the newest candle of a symbol.
// change and changePercentage are 0 without a previous candle.
func NewPriceEvent(topic string, latest candle.Candle, previous *candle.Candle) PriceEvent {
	ev := PriceEvent{
		Topic:     topic,
		Symbol:    latest.Symbol,
		Price:     latest.Close.InexactFloat64(),
		Volume:    latest.Volume,
		Timestamp: latest.Time.UTC(),
	}
	if previous != nil && !previous.Close.IsZero() {
		change := latest.Close.Sub(previous.Close)
		ev.Change = change.InexactFloat64()
		ev.ChangePercentage = change.Div(previous.Close).Shift(2).Round(2).InexactFloat64()
	}
	return ev
}

func NewAlertEvent(topic string, n entity.Notification) AlertEvent {
	return AlertEvent{
		Topic:     topic,
		ID:        n.ID,
		Kind:      string(n.Kind),
		Title:     n.Title,
		Message:   n.Message,
		Symbol:    n.Symbol,
		Priority:  string(n.Priority),
		UserID:    n.UserID,
		Timestamp: n.Timestamp.UTC(),
	}
}
