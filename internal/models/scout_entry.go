package models

import "gorm.io/gorm"

// ScoutEntry is a diagnostic log row for one evaluated candidate pair
// during a scout cycle. Used for offline analysis; never consulted by
// the scout engine itself.
type ScoutEntry struct {
	gorm.Model
	FromCoinSymbol  string  `gorm:"not null"`
	ToCoinSymbol    string  `gorm:"not null"`
	RememberedRatio float64 `gorm:"not null"`
	CurrentPrice    float64 `gorm:"not null"`
	OtherPrice      float64 `gorm:"not null"`
}
