package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Position is a user's holding in one symbol, valued at weighted-average
// cost. TotalInvested is maintained incrementally, not recomputed from
// Quantity × AveragePrice on buys.
type Position struct {
	UserID        string
	Symbol        string
	Quantity      int64
	AveragePrice  decimal.Decimal
	TotalInvested decimal.Decimal
	UpdatedAt     time.Time
}

// Clone returns a copy.
func (p *Position) Clone() *Position {
	c := *p
	return &c
}
