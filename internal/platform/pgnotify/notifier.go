// Package pgnotify carries price events between processes over Postgres
// LISTEN/NOTIFY. The ingest job notifies; the server listens and republishes
// on its broker.
package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"

	"gorm.io/gorm"

	candle "stock_alerts/internal/feature/candles/domain/entity"
	candleuc "stock_alerts/internal/feature/candles/usecase"
	"stock_alerts/internal/feature/notification/transport/dto"
	"stock_alerts/internal/feature/realtime/broker"
)

// maxPayload は Postgres の NOTIFY ペイロード上限 (8000 bytes) 未満に収める。
const maxPayload = 7999

// Notifier sends each price event as a JSON pg_notify payload.
type Notifier struct {
	db      *gorm.DB
	channel string
}

var _ candleuc.PricePublisher = (*Notifier)(nil)

func NewNotifier(db *gorm.DB, channel string) *Notifier {
	return &Notifier{db: db, channel: channel}
}

func (n *Notifier) PublishPrice(ctx context.Context, latest candle.Candle, previous *candle.Candle) error {
	payload, err := encode(latest, previous)
	if err != nil {
		return err
	}
	if err := n.db.WithContext(ctx).Exec("SELECT pg_notify(?, ?)", n.channel, payload).Error; err != nil {
		return fmt.Errorf("pg_notify %s: %w", n.channel, err)
	}
	return nil
}

func encode(latest candle.Candle, previous *candle.Candle) (string, error) {
	ev := dto.NewPriceEvent(broker.PriceTopic(latest.Symbol), latest, previous)
	b, err := json.Marshal(ev)
	if err != nil {
		return "", err
	}
	if len(b) > maxPayload {
		return "", fmt.Errorf("price event for %s is %d bytes, exceeds NOTIFY limit", latest.Symbol, len(b))
	}
	return string(b), nil
}
