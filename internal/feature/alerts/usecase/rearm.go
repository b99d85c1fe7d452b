package usecase

import (
	"context"
	"log/slog"
	"time"
)

// DefaultRearmAfter は triggered のアラートを自動で再有効化するまでの期間です。
const DefaultRearmAfter = 30 * 24 * time.Hour

// RearmStore resets triggered alerts.
type RearmStore interface {
	Rearm(ctx context.Context, id uint) error
	RearmStale(ctx context.Context, cutoff time.Time) (int64, error)
}

// RearmUsecase は triggered のアラートを再び評価対象に戻します。
type RearmUsecase struct {
	store RearmStore
	after time.Duration
	now   func() time.Time
}

func NewRearmUsecase(store RearmStore, after time.Duration) *RearmUsecase {
	if after <= 0 {
		after = DefaultRearmAfter
	}
	return &RearmUsecase{store: store, after: after, now: time.Now}
}

// Acknowledge re-arms one alert. It returns domain.ErrAlertNotFound for an unknown id.
func (u *RearmUsecase) Acknowledge(ctx context.Context, id uint) error {
	return u.store.Rearm(ctx, id)
}

// RearmStale re-arms every alert that triggered longer ago than the configured period.
func (u *RearmUsecase) RearmStale(ctx context.Context) (int64, error) {
	n, err := u.store.RearmStale(ctx, u.now().Add(-u.after))
	if err != nil {
		return 0, err
	}
	if n > 0 {
		slog.Info("re-armed stale alerts", "count", n, "after", u.after)
	}
	return n, nil
}
