// Package adapters provides the gorm-backed repository for candles and the
// market data gateway consumed by the alert evaluator.
package adapters

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_alerts/internal/feature/candles/domain/entity"
	"stock_alerts/internal/feature/candles/usecase"
)

// DefaultGatewayInterval is the candle interval the gateway reads when none is configured.
const DefaultGatewayInterval = "1day"

type candleGorm struct {
	db       *gorm.DB
	interval string
}

var _ usecase.CandleRepository = (*candleGorm)(nil)

// NewCandleRepository returns a candle repository. interval selects the candle
// series used by Latest / PointAtOrBefore / AverageVolume.
func NewCandleRepository(db *gorm.DB, interval string) *candleGorm {
	if interval == "" {
		interval = DefaultGatewayInterval
	}
	return &candleGorm{db: db, interval: interval}
}

type CandleModel struct {
	ID       uint      `gorm:"primaryKey"`
	Symbol   string    `gorm:"size:32;not null;uniqueIndex:candle_sym_int_time,priority:1"`
	Interval string    `gorm:"size:16;not null;uniqueIndex:candle_sym_int_time,priority:2"`
	Time     time.Time `gorm:"not null;uniqueIndex:candle_sym_int_time,priority:3"`

	Open   decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	High   decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Low    decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Close  decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Volume int64           `gorm:"not null;default:0"`
}

func (CandleModel) TableName() string {
	return "candles"
}

func toModel(e entity.Candle) CandleModel {
	return CandleModel{
		Symbol:   e.Symbol,
		Interval: e.Interval,
		Time:     e.Time,
		Open:     e.Open,
		High:     e.High,
		Low:      e.Low,
		Close:    e.Close,
		Volume:   e.Volume,
	}
}

func toEntity(m CandleModel) entity.Candle {
	return entity.Candle{
		Symbol:   m.Symbol,
		Interval: m.Interval,
		Time:     m.Time,
		Open:     m.Open,
		High:     m.High,
		Low:      m.Low,
		Close:    m.Close,
		Volume:   m.Volume,
	}
}

func (r *candleGorm) UpsertBatch(ctx context.Context, candles []entity.Candle) error {
	if len(candles) == 0 {
		return nil
	}
	ms := make([]CandleModel, 0, len(candles))
	for _, e := range candles {
		ms = append(ms, toModel(e))
	}

	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "symbol"}, {Name: "interval"}, {Name: "time"}},
		DoUpdates: clause.AssignmentColumns([]string{"open", "high", "low", "close", "volume"}),
	}).Create(&ms).Error
}

func (r *candleGorm) Find(ctx context.Context, symbol, interval string, outputsize int) ([]entity.Candle, error) {
	var rows []CandleModel
	q := r.series(ctx, symbol, interval).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true})
	if outputsize > 0 {
		q = q.Limit(outputsize)
	}
	if err := q.Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]entity.Candle, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// Latest returns the candle with the greatest timestamp, or nil when the symbol has no data.
func (r *candleGorm) Latest(ctx context.Context, symbol string) (*entity.Candle, error) {
	q := r.series(ctx, symbol, r.interval).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true})
	return first(q)
}

// PointAtOrBefore returns the most recent candle whose timestamp is <= ts, or nil.
func (r *candleGorm) PointAtOrBefore(ctx context.Context, symbol string, ts time.Time) (*entity.Candle, error) {
	q := r.series(ctx, symbol, r.interval).
		Where(clause.Lte{Column: clause.Column{Name: "time"}, Value: ts}).
		Order(clause.OrderByColumn{Column: clause.Column{Name: "time"}, Desc: true})
	return first(q)
}

// AverageVolume returns the mean volume of candles at or after since, or nil
// when the window holds no data points.
func (r *candleGorm) AverageVolume(ctx context.Context, symbol string, since time.Time) (*decimal.Decimal, error) {
	var avg sql.NullFloat64
	err := r.series(ctx, symbol, r.interval).
		Model(&CandleModel{}).
		Where(clause.Gte{Column: clause.Column{Name: "time"}, Value: since}).
		Select("AVG(volume)").
		Row().
		Scan(&avg)
	if err != nil {
		return nil, err
	}
	if !avg.Valid {
		return nil, nil
	}
	d := decimal.NewFromFloat(avg.Float64)
	return &d, nil
}

func (r *candleGorm) series(ctx context.Context, symbol, interval string) *gorm.DB {
	return r.db.WithContext(ctx).Where(map[string]any{"symbol": symbol, "interval": interval})
}

func first(q *gorm.DB) (*entity.Candle, error) {
	var m CandleModel
	if err := q.Take(&m).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	c := toEntity(m)
	return &c, nil
}
