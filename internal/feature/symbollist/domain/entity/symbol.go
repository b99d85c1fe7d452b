// Package entity defines the domain models for the symbollist feature.
package entity

import (
	"strings"
	"time"
)

// Symbol is one instrument that alerts can watch. Code is the instrument id
// used by alerts and by price topics. Only active symbols are ingested.
type Symbol struct {
	ID        uint      `gorm:"primaryKey"`
	Code      string    `gorm:"size:20;not null;uniqueIndex"`
	Name      string    `gorm:"size:255;not null"`
	Market    string    `gorm:"size:100;not null;index"`
	IsActive  bool      `gorm:"not null;default:true"`
	SortKey   int       `gorm:"not null;default:0"`
	UpdatedAt time.Time `gorm:"autoUpdateTime"`
}

// DisplayName は通知タイトル用の名前。Name が空ならコード。
func (s Symbol) DisplayName() string {
	if n := strings.TrimSpace(s.Name); n != "" {
		return n
	}
	return s.Code
}
