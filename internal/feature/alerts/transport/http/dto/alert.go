// Package dto はalertsフィーチャーのHTTP入出力を定義します。
package dto

import "github.com/shopspring/decimal"

// CreateAlertRequest is the body of POST /alerts.
type CreateAlertRequest struct {
	InstrumentID string          `json:"instrumentId" binding:"required"`
	Kind         string          `json:"kind" binding:"required"`
	Threshold    decimal.Decimal `json:"threshold"`
}

// AlertResponse はアラート1件のレスポンスDTOです。
type AlertResponse struct {
	ID              uint            `json:"id"`
	InstrumentID    string          `json:"instrumentId"`
	Kind            string          `json:"kind"`
	Threshold       decimal.Decimal `json:"threshold"`
	Active          bool            `json:"active"`
	Triggered       bool            `json:"triggered"`
	LastTriggeredAt *string         `json:"lastTriggeredAt,omitempty"` // RFC3339
	CreatedAt       string          `json:"createdAt"`
}
