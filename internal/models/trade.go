package models

import "gorm.io/gorm"

// TradeState is the lifecycle of one order leg. Transitions are
// monotonic: STARTING -> ORDERED -> COMPLETE, never backward.
type TradeState string

const (
	TradeStateStarting TradeState = "STARTING"
	TradeStateOrdered  TradeState = "ORDERED"
	TradeStateComplete TradeState = "COMPLETE"
)

// Trade is an immutable record of one order leg of a jump.
type Trade struct {
	gorm.Model
	AltCoinSymbol   string     `gorm:"not null"`
	CryptoCoinSymbol string    `gorm:"not null"` // the bridge
	Selling         bool       `gorm:"not null"`
	AltAmount       float64    `gorm:"not null"`
	CryptoAmount    float64    `gorm:"not null"`
	State           TradeState `gorm:"not null"`
}
