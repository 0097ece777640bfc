package models

import (
	"time"

	"gorm.io/gorm"
)

// CoinValue is a periodic snapshot of a held balance's valuation in
// the bridge asset and in BTC.
type CoinValue struct {
	gorm.Model
	CoinSymbol string    `gorm:"not null"`
	Balance    float64   `gorm:"not null"`
	USDValue   float64   `gorm:"not null"`
	BTCValue   float64   `gorm:"not null"`
	Datetime   time.Time `gorm:"not null;index"`
}
