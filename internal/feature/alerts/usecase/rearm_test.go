package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stock_alerts/internal/feature/alerts/domain"
)

type mockRearmStore struct {
	RearmFunc      func(ctx context.Context, id uint) error
	RearmStaleFunc func(ctx context.Context, cutoff time.Time) (int64, error)
}

func (m *mockRearmStore) Rearm(ctx context.Context, id uint) error {
	return m.RearmFunc(ctx, id)
}

func (m *mockRearmStore) RearmStale(ctx context.Context, cutoff time.Time) (int64, error) {
	return m.RearmStaleFunc(ctx, cutoff)
}

func TestRearmUsecase_RearmStale(t *testing.T) {
	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)

	t.Run("cutoff is now minus the period", func(t *testing.T) {
		var got time.Time
		store := &mockRearmStore{RearmStaleFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			got = cutoff
			return 3, nil
		}}
		u := NewRearmUsecase(store, 48*time.Hour)
		u.now = func() time.Time { return now }

		n, err := u.RearmStale(context.Background())
		require.NoError(t, err)
		assert.Equal(t, int64(3), n)
		assert.True(t, got.Equal(now.Add(-48*time.Hour)))
	})

	t.Run("zero period falls back to 30 days", func(t *testing.T) {
		var got time.Time
		store := &mockRearmStore{RearmStaleFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			got = cutoff
			return 0, nil
		}}
		u := NewRearmUsecase(store, 0)
		u.now = func() time.Time { return now }

		_, err := u.RearmStale(context.Background())
		require.NoError(t, err)
		assert.True(t, got.Equal(now.Add(-30*24*time.Hour)))
	})

	t.Run("store error", func(t *testing.T) {
		dbErr := errors.New("db down")
		store := &mockRearmStore{RearmStaleFunc: func(ctx context.Context, cutoff time.Time) (int64, error) {
			return 0, dbErr
		}}
		_, err := NewRearmUsecase(store, time.Hour).RearmStale(context.Background())
		assert.ErrorIs(t, err, dbErr)
	})
}

func TestRearmUsecase_Acknowledge(t *testing.T) {
	store := &mockRearmStore{RearmFunc: func(ctx context.Context, id uint) error {
		if id == 1 {
			return nil
		}
		return domain.ErrAlertNotFound
	}}
	u := NewRearmUsecase(store, time.Hour)

	assert.NoError(t, u.Acknowledge(context.Background(), 1))
	assert.ErrorIs(t, u.Acknowledge(context.Background(), 2), domain.ErrAlertNotFound)
}
