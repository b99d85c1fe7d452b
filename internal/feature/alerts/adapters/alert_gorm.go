// Package adapters provides the gorm-backed AlertStore.
package adapters

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"stock_alerts/internal/feature/alerts/domain"
	"stock_alerts/internal/feature/alerts/domain/entity"
	"stock_alerts/internal/feature/alerts/usecase"
)

type alertGorm struct {
	db *gorm.DB
}

var (
	_ usecase.AlertStore      = (*alertGorm)(nil)
	_ usecase.RearmStore      = (*alertGorm)(nil)
	_ usecase.AlertRepository = (*alertGorm)(nil)
)

func NewAlertRepository(db *gorm.DB) *alertGorm {
	return &alertGorm{db: db}
}

// AlertModel はアラートテーブルの行です。
// bool 列に default を付けないこと: gorm はゼロ値を INSERT から省くため false が保存できなくなる。
type AlertModel struct {
	ID              uint            `gorm:"primaryKey"`
	UserID          uint            `gorm:"not null;index"`
	InstrumentID    string          `gorm:"size:32;not null;index"`
	Kind            string          `gorm:"size:32;not null"`
	Threshold       decimal.Decimal `gorm:"type:numeric(20,8);not null"`
	Active          bool            `gorm:"not null"`
	Triggered       bool            `gorm:"not null;index"`
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

func (AlertModel) TableName() string {
	return "alerts"
}

func toEntity(m AlertModel) entity.Alert {
	return entity.Alert{
		ID:              m.ID,
		UserID:          m.UserID,
		InstrumentID:    m.InstrumentID,
		Kind:            entity.Kind(m.Kind),
		Threshold:       m.Threshold,
		Active:          m.Active,
		Triggered:       m.Triggered,
		LastTriggeredAt: m.LastTriggeredAt,
		CreatedAt:       m.CreatedAt,
	}
}

func toModel(e entity.Alert) AlertModel {
	return AlertModel{
		ID:              e.ID,
		UserID:          e.UserID,
		InstrumentID:    e.InstrumentID,
		Kind:            string(e.Kind),
		Threshold:       e.Threshold,
		Active:          e.Active,
		Triggered:       e.Triggered,
		LastTriggeredAt: e.LastTriggeredAt,
		CreatedAt:       e.CreatedAt,
	}
}

// Create inserts a new alert and fills in its generated ID and CreatedAt.
func (r *alertGorm) Create(ctx context.Context, a *entity.Alert) error {
	m := toModel(*a)
	if err := r.db.WithContext(ctx).Create(&m).Error; err != nil {
		return err
	}
	a.ID = m.ID
	a.CreatedAt = m.CreatedAt
	return nil
}

// ListByUser returns the alerts owned by userID in id order.
func (r *alertGorm) ListByUser(ctx context.Context, userID uint) ([]entity.Alert, error) {
	var rows []AlertModel
	err := r.db.WithContext(ctx).
		Where(map[string]any{"user_id": userID}).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]entity.Alert, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// Delete removes the alert only when it belongs to userID.
func (r *alertGorm) Delete(ctx context.Context, id, userID uint) error {
	res := r.db.WithContext(ctx).
		Where(map[string]any{"id": id, "user_id": userID}).
		Delete(&AlertModel{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// ListCandidates returns the armed alerts (active && !triggered) in id order.
func (r *alertGorm) ListCandidates(ctx context.Context) ([]entity.Alert, error) {
	var rows []AlertModel
	err := r.db.WithContext(ctx).
		Where(map[string]any{"active": true, "triggered": false}).
		Order("id").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}
	out := make([]entity.Alert, 0, len(rows))
	for _, m := range rows {
		out = append(out, toEntity(m))
	}
	return out, nil
}

// TryTrigger は triggered=false の行だけを更新する条件付き UPDATE です。
// 更新件数が 1 のときだけ、この呼び出しが遷移を確定させたことになる。
func (r *alertGorm) TryTrigger(ctx context.Context, id uint, now time.Time) (bool, error) {
	res := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Where(map[string]any{"id": id, "active": true, "triggered": false}).
		Updates(map[string]any{"triggered": true, "last_triggered_at": now})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// Rearm resets triggered so the alert is evaluated again. last_triggered_at is kept.
func (r *alertGorm) Rearm(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Where(map[string]any{"id": id}).
		Update("triggered", false)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return domain.ErrAlertNotFound
	}
	return nil
}

// RearmStale re-arms every alert that triggered at or before cutoff and
// returns how many were reset.
func (r *alertGorm) RearmStale(ctx context.Context, cutoff time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&AlertModel{}).
		Where(map[string]any{"triggered": true}).
		Where(clause.Lte{Column: clause.Column{Name: "last_triggered_at"}, Value: cutoff}).
		Update("triggered", false)
	return res.RowsAffected, res.Error
}
