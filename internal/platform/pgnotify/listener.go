package pgnotify

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/lib/pq"

	"stock_alerts/internal/feature/notification/transport/dto"
)

const (
	minReconnect = 10 * time.Second
	maxReconnect = time.Minute
	pingEvery    = 90 * time.Second
)

// EventHandler receives every decoded price event.
type EventHandler func(ev dto.PriceEvent) error

// Listener subscribes to a NOTIFY channel with lib/pq and hands each payload to handle.
type Listener struct {
	dsn     string
	channel string
	handle  EventHandler
	logger  *slog.Logger
}

func NewListener(dsn, channel string, handle EventHandler) *Listener {
	return &Listener{
		dsn:     dsn,
		channel: channel,
		handle:  handle,
		logger:  slog.Default().With("component", "pgnotify", "channel", channel),
	}
}

// Run listens until ctx is cancelled. It returns an error only when the
// initial LISTEN fails; later connection loss is retried by pq.Listener.
func (l *Listener) Run(ctx context.Context) error {
	listener := pq.NewListener(l.dsn, minReconnect, maxReconnect, func(ev pq.ListenerEventType, err error) {
		if err != nil {
			l.logger.Warn("postgres listener event", "event", ev, "error", err)
		}
	})
	defer func() {
		if err := listener.Close(); err != nil {
			l.logger.Warn("failed to close listener", "error", err)
		}
	}()

	if err := listener.Listen(l.channel); err != nil {
		return fmt.Errorf("listen %s: %w", l.channel, err)
	}
	l.logger.Info("listening for price updates")

	ticker := time.NewTicker(pingEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return nil
		case n := <-listener.Notify:
			// nil は再接続の合図。切断中の通知は失われている
			if n == nil {
				l.logger.Info("listener reconnected")
				continue
			}
			l.dispatch(n.Extra)
		case <-ticker.C:
			go func() {
				if err := listener.Ping(); err != nil {
					l.logger.Warn("listener ping failed", "error", err)
				}
			}()
		}
	}
}

// dispatch decodes one payload. Malformed payloads are logged and skipped.
func (l *Listener) dispatch(payload string) {
	var ev dto.PriceEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		l.logger.Warn("invalid price payload", "error", err)
		return
	}
	if ev.Symbol == "" {
		l.logger.Warn("price payload without symbol")
		return
	}
	if err := l.handle(ev); err != nil {
		l.logger.Warn("failed to republish price", "symbol", ev.Symbol, "error", err)
	}
}
