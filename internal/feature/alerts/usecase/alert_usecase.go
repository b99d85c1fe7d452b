package usecase

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/shopspring/decimal"

	"stock_alerts/internal/feature/alerts/domain"
	"stock_alerts/internal/feature/alerts/domain/entity"
)

// AlertRepository persists user-owned alerts.
type AlertRepository interface {
	Create(ctx context.Context, a *entity.Alert) error
	ListByUser(ctx context.Context, userID uint) ([]entity.Alert, error)
	Delete(ctx context.Context, id, userID uint) error
}

var instrumentPattern = regexp.MustCompile(`^[A-Z0-9._-]{1,32}$`)

// NewAlertInput is a request to create an alert.
type NewAlertInput struct {
	InstrumentID string
	Kind         entity.Kind
	Threshold    decimal.Decimal
}

type AlertUsecase struct {
	repo AlertRepository
}

func NewAlertUsecase(repo AlertRepository) *AlertUsecase {
	return &AlertUsecase{repo: repo}
}

// Create validates in and stores an armed alert owned by userID.
// 検証エラーは domain.ErrInvalidAlert をラップして返します。
func (u *AlertUsecase) Create(ctx context.Context, userID uint, in NewAlertInput) (entity.Alert, error) {
	if err := validate(&in); err != nil {
		return entity.Alert{}, err
	}
	a := entity.Alert{
		UserID:       userID,
		InstrumentID: in.InstrumentID,
		Kind:         in.Kind,
		Threshold:    in.Threshold,
		Active:       true,
	}
	if err := u.repo.Create(ctx, &a); err != nil {
		return entity.Alert{}, err
	}
	return a, nil
}

func (u *AlertUsecase) List(ctx context.Context, userID uint) ([]entity.Alert, error) {
	return u.repo.ListByUser(ctx, userID)
}

func (u *AlertUsecase) Delete(ctx context.Context, userID, id uint) error {
	return u.repo.Delete(ctx, id, userID)
}

func validate(in *NewAlertInput) error {
	in.InstrumentID = strings.ToUpper(strings.TrimSpace(in.InstrumentID))
	if !instrumentPattern.MatchString(in.InstrumentID) {
		return fmt.Errorf("%w: instrument %q", domain.ErrInvalidAlert, in.InstrumentID)
	}
	if !in.Kind.Valid() {
		return fmt.Errorf("%w: kind %q", domain.ErrInvalidAlert, in.Kind)
	}
	// percent_change_24h は変化の大きさ、それ以外は正の値のみ意味を持つ
	if !in.Threshold.IsPositive() {
		return fmt.Errorf("%w: threshold must be positive", domain.ErrInvalidAlert)
	}
	return nil
}
