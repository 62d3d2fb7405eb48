package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"pgregory.net/rapid"
)

// Property: notional amounts are exact. Summing n fills of price p equals
// p × n with no drift, for any cent-denominated price.
func TestProperty_NotionalIsExact(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(1, 10_000_000).Draw(t, "cents")
		qty := rapid.Int64Range(1, 500).Draw(t, "qty")
		price := decimal.New(cents, -2)

		sum := decimal.Zero
		for i := int64(0); i < qty; i++ {
			sum = sum.Add(price)
		}
		if !sum.Equal(Notional(price, qty)) {
			t.Fatalf("repeated addition %s != notional %s", sum, Notional(price, qty))
		}
	})
}

// Property: every cent amount from 0.01 up passes price validation and
// every amount below it fails.
func TestProperty_PriceFloor(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		cents := rapid.Int64Range(-1_000_000, 1_000_000).Draw(t, "cents")
		err := ValidatePrice(decimal.New(cents, -2))
		if cents >= 1 && err != nil {
			t.Fatalf("price %d cents rejected: %v", cents, err)
		}
		if cents < 1 && err == nil {
			t.Fatalf("price %d cents accepted", cents)
		}
	})
}
