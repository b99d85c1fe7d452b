// Package dto defines data transfer objects for the symbollist HTTP API.
package dto

import (
	"stock_alerts/internal/feature/realtime/broker"
	"stock_alerts/internal/feature/symbollist/domain/entity"
)

// SymbolItem is one alertable instrument. PriceTopic is the broker topic a
// client subscribes to for its live prices.
type SymbolItem struct {
	Code       string `json:"code"`
	Name       string `json:"name"`
	Market     string `json:"market"`
	PriceTopic string `json:"priceTopic"`
}

func NewSymbolItem(s entity.Symbol) SymbolItem {
	return SymbolItem{
		Code:       s.Code,
		Name:       s.DisplayName(),
		Market:     s.Market,
		PriceTopic: broker.PriceTopic(s.Code),
	}
}
