// Package entity defines the domain models for the notification feature.
package entity

import "time"

// Kind は通知の種類です。
type Kind string

const (
	KindPriceAlert  Kind = "PriceAlert"
	KindVolumeAlert Kind = "VolumeAlert"
	KindMarketNews  Kind = "MarketNews"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
)

// Notification is an ephemeral event built from a triggered alert. It is
// never persisted; delivery is fire-and-forget.
type Notification struct {
	ID        string
	Kind      Kind
	Title     string
	Message   string
	Symbol    string
	Priority  Priority
	UserID    uint
	Timestamp time.Time
}
