package models

import "gorm.io/gorm"

// Coin represents a tradable alt asset. Created at boot from the
// supported-coin list; mutated only by operator toggling Enabled.
// A disabled coin is excluded from pair traversal but its row persists.
type Coin struct {
	gorm.Model
	Symbol  string `gorm:"uniqueIndex;not null"`
	Enabled bool   `gorm:"default:true;not null"`
}
