package broker

import (
	"fmt"
	"strconv"
	"strings"
)

const (
	PricePrefix = "price:"
	AlertPrefix = "alerts:"

	// PriceBroadcastTopic receives every price event of every symbol.
	PriceBroadcastTopic = "price:*"

	maxSymbolLen = 32
)

// PriceTopic returns the topic of symbol's price stream.
func PriceTopic(symbol string) string {
	return PricePrefix + symbol
}

// AlertTopic returns the topic of userID's alert stream.
func AlertTopic(userID uint) string {
	return AlertPrefix + strconv.FormatUint(uint64(userID), 10)
}

// topicKind は検証済みトピックの種類です。
type topicKind int

const (
	topicPrice topicKind = iota + 1
	topicPriceBroadcast
	topicAlerts
)

// parseTopic validates name and, for alert topics, returns the owner id.
func parseTopic(name string) (topicKind, uint, error) {
	switch {
	case name == PriceBroadcastTopic:
		return topicPriceBroadcast, 0, nil
	case strings.HasPrefix(name, PricePrefix):
		if !validSymbol(strings.TrimPrefix(name, PricePrefix)) {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTopic, name)
		}
		return topicPrice, 0, nil
	case strings.HasPrefix(name, AlertPrefix):
		uid, err := strconv.ParseUint(strings.TrimPrefix(name, AlertPrefix), 10, 64)
		if err != nil || uid == 0 {
			return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTopic, name)
		}
		return topicAlerts, uint(uid), nil
	}
	return 0, 0, fmt.Errorf("%w: %q", ErrInvalidTopic, name)
}

// validSymbol accepts ticker codes such as "AAPL", "7203.T" or "BRK-B".
func validSymbol(s string) bool {
	if s == "" || len(s) > maxSymbolLen {
		return false
	}
	for _, r := range s {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9':
		case r == '.' || r == '-' || r == '_':
		default:
			return false
		}
	}
	return true
}
