package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	alert "stock_alerts/internal/feature/alerts/domain/entity"
	candle "stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/notification/domain/entity"
	"stock_alerts/internal/feature/notification/transport/dto"
)

type published struct {
	topic string
	event any
}

type mockPublisher struct {
	calls []published
	err   error
}

func (m *mockPublisher) Publish(topic string, event any) error {
	m.calls = append(m.calls, published{topic: topic, event: event})
	return m.err
}

type mockResolver map[string]string

func (m mockResolver) ResolveName(ctx context.Context, code string) string {
	if name, ok := m[code]; ok {
		return name
	}
	return code
}

func TestPriorityOf(t *testing.T) {
	tests := []struct {
		kind      alert.Kind
		threshold string
		want      entity.Priority
	}{
		{alert.KindPriceAbove, "10.01", entity.PriorityHigh},
		{alert.KindPriceAbove, "10", entity.PriorityMedium},
		{alert.KindPriceBelow, "5.5", entity.PriorityMedium},
		{alert.KindPriceBelow, "5", entity.PriorityLow},
		{alert.KindPercentChange24h, "25", entity.PriorityHigh},
		{alert.KindPercentChange24h, "20", entity.PriorityMedium},
		{alert.KindPercentChange24h, "10", entity.PriorityLow},
		{alert.KindVolumeSpike, "150", entity.PriorityHigh},
		{alert.KindVolumeSpike, "100", entity.PriorityMedium},
		{alert.KindVolumeSpike, "50", entity.PriorityLow},
		{"unknown", "1000", entity.PriorityLow},
	}
	for _, tt := range tests {
		t.Run(string(tt.kind)+"/"+tt.threshold, func(t *testing.T) {
			assert.Equal(t, tt.want, PriorityOf(tt.kind, decimal.RequireFromString(tt.threshold)))
		})
	}
}

func TestDispatcher_Dispatch(t *testing.T) {
	triggeredAt := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	pub := &mockPublisher{}
	d := NewDispatcher(pub, mockResolver{"APPL": "Premium Apples"})
	d.newID = func() string { return "fixed-id" }

	a := alert.Alert{
		ID: 3, UserID: 42, InstrumentID: "APPL", Kind: alert.KindPriceAbove,
		Threshold: decimal.RequireFromString("3.00"), Active: true, Triggered: true, LastTriggeredAt: &triggeredAt,
	}
	d.Dispatch(context.Background(), a, alert.Decision{ShouldTrigger: true, Message: "APPL is now 3.20, above your target of 3.00"})

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "alerts:42", pub.calls[0].topic)
	assert.Equal(t, dto.AlertEvent{
		Topic:     "alerts:42",
		ID:        "fixed-id",
		Kind:      "PriceAlert",
		Title:     "Alert Triggered: Premium Apples",
		Message:   "APPL is now 3.20, above your target of 3.00",
		Symbol:    "APPL",
		Priority:  "low",
		UserID:    42,
		Timestamp: triggeredAt,
	}, pub.calls[0].event)
}

func TestDispatcher_Build(t *testing.T) {
	now := time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC)
	d := NewDispatcher(&mockPublisher{}, nil)
	d.now = func() time.Time { return now }

	n := d.Build(context.Background(), alert.Alert{
		UserID: 1, InstrumentID: "PEAR", Kind: alert.KindVolumeSpike, Threshold: decimal.NewFromInt(120),
	}, alert.Decision{Message: "spike"})

	assert.Equal(t, entity.KindVolumeAlert, n.Kind)
	assert.Equal(t, entity.PriorityHigh, n.Priority)
	assert.Equal(t, "Alert Triggered: PEAR", n.Title)
	assert.Equal(t, now, n.Timestamp)
	assert.NotEmpty(t, n.ID)
}

// blockingResolver は ctx が終わるまで応答しない名前解決です。
type blockingResolver struct{}

func (blockingResolver) ResolveName(ctx context.Context, code string) string {
	<-ctx.Done()
	return code
}

func TestDispatcher_HungLookupFallsBackToCode(t *testing.T) {
	pub := &mockPublisher{}
	d := NewDispatcher(pub, blockingResolver{}).WithLookupTimeout(20 * time.Millisecond)

	done := make(chan entity.Notification, 1)
	go func() {
		done <- d.Build(context.Background(), alert.Alert{UserID: 1, InstrumentID: "BANA", Kind: alert.KindPriceBelow}, alert.Decision{})
	}()

	select {
	case n := <-done:
		assert.Equal(t, "Alert Triggered: BANA", n.Title)
	case <-time.After(2 * time.Second):
		t.Fatal("Build did not return after the lookup timeout")
	}
}

func TestDispatcher_WithLookupTimeout(t *testing.T) {
	d := NewDispatcher(&mockPublisher{}, nil)
	assert.Equal(t, DefaultLookupTimeout, d.lookupTimeout)
	assert.Equal(t, DefaultLookupTimeout, d.WithLookupTimeout(0).lookupTimeout)
	assert.Equal(t, time.Second, d.WithLookupTimeout(time.Second).lookupTimeout)
}

func TestDispatcher_PublishFailureIsContained(t *testing.T) {
	pub := &mockPublisher{err: errors.New("broker closed")}
	d := NewDispatcher(pub, nil)

	assert.NotPanics(t, func() {
		d.Dispatch(context.Background(), alert.Alert{UserID: 1, InstrumentID: "APPL", Kind: alert.KindPriceAbove}, alert.Decision{})
	})
	assert.Len(t, pub.calls, 1)
}

func TestPriceNotifier(t *testing.T) {
	ts := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	pub := &mockPublisher{}
	p := NewPriceNotifier(pub)

	latest := candle.Candle{Symbol: "APPL", Time: ts, Close: decimal.RequireFromString("2.20"), Volume: 10}
	prev := candle.Candle{Symbol: "APPL", Time: ts.Add(-24 * time.Hour), Close: decimal.RequireFromString("2.00")}
	require.NoError(t, p.PublishPrice(context.Background(), latest, &prev))

	require.Len(t, pub.calls, 1)
	assert.Equal(t, "price:APPL", pub.calls[0].topic)
	ev := pub.calls[0].event.(dto.PriceEvent)
	assert.Equal(t, 2.2, ev.Price)
	assert.Equal(t, 10.0, ev.ChangePercentage)

	require.NoError(t, p.PublishEvent(dto.PriceEvent{Topic: "bogus", Symbol: "MSFT", Price: 1}))
	assert.Equal(t, "price:MSFT", pub.calls[1].topic)
	assert.Equal(t, "price:MSFT", pub.calls[1].event.(dto.PriceEvent).Topic)
}
