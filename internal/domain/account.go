package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Account holds a user's virtual cash balance. One per user.
type Account struct {
	UserID    string
	Balance   decimal.Decimal
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Clone returns a copy.
func (a *Account) Clone() *Account {
	c := *a
	return &c
}
