// Package usecase implements alert evaluation: the pure condition check and
// the cycle that commits trigger transitions.
package usecase

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"stock_alerts/internal/feature/alerts/domain"
	"stock_alerts/internal/feature/alerts/domain/entity"
	candle "stock_alerts/internal/feature/candles/domain/entity"
)

const (
	// PercentChangeWindow is how far back the prior point of a percent-change alert lies.
	PercentChangeWindow = 24 * time.Hour
	// VolumeAverageWindow is the trailing window of the volume-spike average.
	VolumeAverageWindow = 7 * 24 * time.Hour
)

// Snapshot is the market data one alert is evaluated against.
// Prior and AvgVolume are only populated for the kinds that need them.
type Snapshot struct {
	Latest    *candle.Candle
	Prior     *candle.Candle   // newest point at or before now minus PercentChangeWindow
	AvgVolume *decimal.Decimal // mean volume over VolumeAverageWindow
}

// Evaluate decides whether alert fires for snap. It has no side effects.
//
// Comparisons use unrounded values; percentages are rounded to two decimals
// only in the message.
func Evaluate(alert entity.Alert, snap Snapshot) (entity.Decision, error) {
	if snap.Latest == nil {
		return insufficient("no price data for %s", alert.InstrumentID), nil
	}
	latest := snap.Latest

	switch alert.Kind {
	case entity.KindPriceAbove:
		if latest.Close.GreaterThan(alert.Threshold) {
			return trigger("%s is now %s, above your target of %s",
				alert.InstrumentID, formatPrice(latest.Close), formatPrice(alert.Threshold)), nil
		}
		return entity.Decision{}, nil

	case entity.KindPriceBelow:
		if latest.Close.LessThan(alert.Threshold) {
			return trigger("%s is now %s, below your target of %s",
				alert.InstrumentID, formatPrice(latest.Close), formatPrice(alert.Threshold)), nil
		}
		return entity.Decision{}, nil

	case entity.KindPercentChange24h:
		if snap.Prior == nil || snap.Prior.Close.IsZero() {
			return insufficient("no price point 24h before for %s", alert.InstrumentID), nil
		}
		prior := snap.Prior.Close
		pct := latest.Close.Sub(prior).Div(prior).Shift(2)
		if pct.Abs().GreaterThanOrEqual(alert.Threshold) {
			return trigger("%s moved %+.2f%% in 24h (%s to %s), threshold %s%%",
				alert.InstrumentID, pct.InexactFloat64(), formatPrice(prior), formatPrice(latest.Close), alert.Threshold.String()), nil
		}
		return entity.Decision{}, nil

	case entity.KindVolumeSpike:
		if snap.AvgVolume == nil || !snap.AvgVolume.IsPositive() {
			return insufficient("no 7-day volume average for %s", alert.InstrumentID), nil
		}
		avg := *snap.AvgVolume
		increase := decimal.NewFromInt(latest.Volume).Sub(avg).Div(avg).Shift(2)
		if increase.GreaterThanOrEqual(alert.Threshold) {
			return trigger("%s volume %d is %.2f%% above its 7-day average of %.0f",
				alert.InstrumentID, latest.Volume, increase.InexactFloat64(), avg.InexactFloat64()), nil
		}
		return entity.Decision{}, nil
	}

	return entity.Decision{}, fmt.Errorf("%w: %q", domain.ErrUnknownKind, alert.Kind)
}

func trigger(format string, args ...any) entity.Decision {
	return entity.Decision{ShouldTrigger: true, Message: fmt.Sprintf(format, args...)}
}

func insufficient(format string, args ...any) entity.Decision {
	return entity.Decision{Insufficient: true, Message: fmt.Sprintf(format, args...)}
}

// formatPrice renders at least two decimals, keeping any extra precision the
// instrument carries.
func formatPrice(d decimal.Decimal) string {
	if d.Exponent() >= -2 {
		return d.StringFixed(2)
	}
	return d.String()
}
