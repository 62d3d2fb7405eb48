package domain

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// MinPrice is the smallest accepted order price (one cent).
var MinPrice = decimal.New(1, -2)

// ValidatePrice checks that p is at least MinPrice.
func ValidatePrice(p decimal.Decimal) error {
	if p.LessThan(MinPrice) {
		return &ValidationError{Message: "price must be >= 0.01"}
	}
	return nil
}

// ParsePrice parses an order price from its decimal text form.
func ParsePrice(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, &ValidationError{Message: "price must be a decimal number"}
	}
	if err := ValidatePrice(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseMoney parses a non-negative monetary amount such as a configured
// starting balance. Amounts are kept exact; no float conversion happens.
func ParseMoney(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid monetary amount %q: %w", s, err)
	}
	if d.IsNegative() {
		return decimal.Zero, fmt.Errorf("monetary amount %q must be >= 0", s)
	}
	return d, nil
}

// Notional returns price × quantity.
func Notional(price decimal.Decimal, quantity int64) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(quantity))
}
