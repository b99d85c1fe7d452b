// Package usecase turns domain events into wire notifications and hands them
// to the broker.
package usecase

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	alert "stock_alerts/internal/feature/alerts/domain/entity"
	alertuc "stock_alerts/internal/feature/alerts/usecase"
	candle "stock_alerts/internal/feature/candles/domain/entity"
	candleuc "stock_alerts/internal/feature/candles/usecase"
	"stock_alerts/internal/feature/notification/domain/entity"
	"stock_alerts/internal/feature/notification/transport/dto"
	"stock_alerts/internal/feature/realtime/broker"
)

// Publisher is the broker capability used here. Publishing to a topic with no
// subscribers succeeds and delivers nothing.
type Publisher interface {
	Publish(topic string, event any) error
}

// SymbolResolver returns the display name of an instrument code.
type SymbolResolver interface {
	ResolveName(ctx context.Context, code string) string
}

// Dispatcher は発火したアラートを通知に変換し alerts:<userId> へ配信します。
type Dispatcher struct {
	pub           Publisher
	symbols       SymbolResolver
	lookupTimeout time.Duration
	now           func() time.Time
	newID         func() string
}

// DefaultLookupTimeout bounds the symbol name lookup of one notification.
const DefaultLookupTimeout = 5 * time.Second

var _ alertuc.Dispatcher = (*Dispatcher)(nil)

func NewDispatcher(pub Publisher, symbols SymbolResolver) *Dispatcher {
	return &Dispatcher{
		pub:           pub,
		symbols:       symbols,
		lookupTimeout: DefaultLookupTimeout,
		now:           time.Now,
		newID:         uuid.NewString,
	}
}

// WithLookupTimeout sets the bound of the symbol name lookup. timeout <= 0 keeps the default.
func (d *Dispatcher) WithLookupTimeout(timeout time.Duration) *Dispatcher {
	if timeout > 0 {
		d.lookupTimeout = timeout
	}
	return d
}

// Dispatch publishes the notification of a triggered alert. Delivery failures
// are only logged.
func (d *Dispatcher) Dispatch(ctx context.Context, a alert.Alert, decision alert.Decision) {
	n := d.Build(ctx, a, decision)
	topic := broker.AlertTopic(a.UserID)
	if err := d.pub.Publish(topic, dto.NewAlertEvent(topic, n)); err != nil {
		slog.Warn("failed to publish alert notification", "alert_id", a.ID, "topic", topic, "error", err)
	}
}

// Build creates the notification for a triggered alert.
func (d *Dispatcher) Build(ctx context.Context, a alert.Alert, decision alert.Decision) entity.Notification {
	name := a.InstrumentID
	if d.symbols != nil {
		// 名前解決は lookupTimeout で打ち切る
		lookupCtx, cancel := context.WithTimeout(ctx, d.lookupTimeout)
		name = d.symbols.ResolveName(lookupCtx, a.InstrumentID)
		cancel()
	}
	ts := d.now()
	if a.LastTriggeredAt != nil {
		ts = *a.LastTriggeredAt
	}
	return entity.Notification{
		ID:        d.newID(),
		Kind:      notificationKind(a.Kind),
		Title:     "Alert Triggered: " + name,
		Message:   decision.Message,
		Symbol:    a.InstrumentID,
		Priority:  PriorityOf(a.Kind, a.Threshold),
		UserID:    a.UserID,
		Timestamp: ts,
	}
}

func notificationKind(k alert.Kind) entity.Kind {
	if k == alert.KindVolumeSpike {
		return entity.KindVolumeAlert
	}
	return entity.KindPriceAlert
}

var (
	priceHigh, priceMedium   = decimal.NewFromInt(10), decimal.NewFromInt(5)
	pctHigh, pctMedium       = decimal.NewFromInt(20), decimal.NewFromInt(10)
	volumeHigh, volumeMedium = decimal.NewFromInt(100), decimal.NewFromInt(50)
)

// PriorityOf maps an alert kind and threshold to a notification priority.
//
//	price above/below   > 10 high, > 5 medium
//	percent change 24h  > 20 high, > 10 medium
//	volume spike        > 100 high, > 50 medium
func PriorityOf(kind alert.Kind, threshold decimal.Decimal) entity.Priority {
	var high, medium decimal.Decimal
	switch kind {
	case alert.KindPriceAbove, alert.KindPriceBelow:
		high, medium = priceHigh, priceMedium
	case alert.KindPercentChange24h:
		high, medium = pctHigh, pctMedium
	case alert.KindVolumeSpike:
		high, medium = volumeHigh, volumeMedium
	default:
		return entity.PriorityLow
	}
	switch {
	case threshold.GreaterThan(high):
		return entity.PriorityHigh
	case threshold.GreaterThan(medium):
		return entity.PriorityMedium
	}
	return entity.PriorityLow
}

// PriceNotifier publishes the newest candle of a symbol to price:<symbol>.
// The broker also fans it out to price:*.
type PriceNotifier struct {
	pub Publisher
}

var _ candleuc.PricePublisher = (*PriceNotifier)(nil)

func NewPriceNotifier(pub Publisher) *PriceNotifier {
	return &PriceNotifier{pub: pub}
}

func (p *PriceNotifier) PublishPrice(ctx context.Context, latest candle.Candle, previous *candle.Candle) error {
	topic := broker.PriceTopic(latest.Symbol)
	return p.pub.Publish(topic, dto.NewPriceEvent(topic, latest, previous))
}

// PublishEvent republishes an already-built price event, e.g. one received
// from another process.
func (p *PriceNotifier) PublishEvent(ev dto.PriceEvent) error {
	topic := broker.PriceTopic(ev.Symbol)
	ev.Topic = topic
	return p.pub.Publish(topic, ev)
}
