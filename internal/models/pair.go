package models

import "gorm.io/gorm"

// Pair is an ordered directed edge (FromCoinSymbol -> ToCoinSymbol)
// between two distinct coins. Ratio is nullable (zero value) until
// initialized; once set it must be strictly positive. The complete set
// of pairs forms a complete directed graph on enabled coins.
type Pair struct {
	gorm.Model
	FromCoinSymbol string   `gorm:"uniqueIndex:idx_from_to;not null"`
	ToCoinSymbol   string   `gorm:"uniqueIndex:idx_from_to;not null"`
	Ratio          *float64 // nil means uninitialized
}

// Name renders the pair as "FROM/TO" for logging.
func (p Pair) Name() string {
	return p.FromCoinSymbol + "/" + p.ToCoinSymbol
}
