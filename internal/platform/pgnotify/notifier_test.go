package pgnotify

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	candle "stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/notification/transport/dto"
)

type notifyCall struct{ channel, payload string }

var (
	registerOnce sync.Once
	notifyMu     sync.Mutex
	notified     []notifyCall
)

// setupNotifyDB は pg_notify を記録する SQLite 関数を登録した DB を返します。
func setupNotifyDB(t *testing.T) *gorm.DB {
	t.Helper()

	registerOnce.Do(func() {
		sql.Register("sqlite3_pgnotify", &sqlite3.SQLiteDriver{
			ConnectHook: func(conn *sqlite3.SQLiteConn) error {
				return conn.RegisterFunc("pg_notify", func(channel, payload string) int64 {
					notifyMu.Lock()
					defer notifyMu.Unlock()
					notified = append(notified, notifyCall{channel, payload})
					return 0
				}, false)
			},
		})
	})

	db, err := gorm.Open(sqlite.New(sqlite.Config{DriverName: "sqlite3_pgnotify", DSN: ":memory:"}), &gorm.Config{})
	require.NoError(t, err)
	return db
}

func TestNotifier_PublishPrice(t *testing.T) {
	db := setupNotifyDB(t)
	n := NewNotifier(db, "price_updates")

	latest := candle.Candle{
		Symbol: "APPL",
		Time:   time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC),
		Close:  decimal.RequireFromString("3.30"),
		Volume: 1200,
	}
	prev := candle.Candle{Symbol: "APPL", Close: decimal.RequireFromString("3.00")}

	require.NoError(t, n.PublishPrice(context.Background(), latest, &prev))

	notifyMu.Lock()
	defer notifyMu.Unlock()
	require.NotEmpty(t, notified)
	call := notified[len(notified)-1]
	assert.Equal(t, "price_updates", call.channel)

	var ev dto.PriceEvent
	require.NoError(t, json.Unmarshal([]byte(call.payload), &ev))
	assert.Equal(t, "price:APPL", ev.Topic)
	assert.Equal(t, "APPL", ev.Symbol)
	assert.InDelta(t, 3.30, ev.Price, 1e-9)
	assert.InDelta(t, 0.30, ev.Change, 1e-9)
	assert.InDelta(t, 10.0, ev.ChangePercentage, 1e-9)
	assert.Equal(t, int64(1200), ev.Volume)
}

func TestEncode_TooLarge(t *testing.T) {
	t.Parallel()

	_, err := encode(candle.Candle{Symbol: strings.Repeat("X", maxPayload)}, nil)
	assert.Error(t, err)
}
