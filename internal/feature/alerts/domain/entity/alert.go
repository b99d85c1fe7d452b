// Package entity defines the domain models for the alerts feature.
package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Kind is the condition an alert watches for.
type Kind string

const (
	KindPriceAbove       Kind = "price_above"
	KindPriceBelow       Kind = "price_below"
	KindPercentChange24h Kind = "percent_change_24h"
	KindVolumeSpike      Kind = "volume_spike"
)

// Valid reports whether k is one of the supported kinds.
func (k Kind) Valid() bool {
	switch k {
	case KindPriceAbove, KindPriceBelow, KindPercentChange24h, KindVolumeSpike:
		return true
	}
	return false
}

// Alert is one user-defined threshold condition on an instrument.
//
// Triggered implies LastTriggeredAt != nil. Only the evaluator sets Triggered,
// and only from false to true; re-arming resets it.
type Alert struct {
	ID              uint
	UserID          uint
	InstrumentID    string // symbol code, e.g. "APPL"
	Kind            Kind
	Threshold       decimal.Decimal
	Active          bool
	Triggered       bool
	LastTriggeredAt *time.Time
	CreatedAt       time.Time
}

// Armed reports whether the alert is eligible for evaluation.
func (a Alert) Armed() bool {
	return a.Active && !a.Triggered
}
