package models

import (
	"time"

	"gorm.io/gorm"
)

// CurrentCoin is a singleton pointer naming the alt currently held.
// Since tracks when the position was opened, for stuck-loss reasoning.
type CurrentCoin struct {
	gorm.Model
	Symbol string    `gorm:"unique;not null"`
	Since  time.Time `gorm:"not null"`
}
