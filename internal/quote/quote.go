// Package quote provides live market prices for portfolio valuation.
package quote

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Quote is the latest known price of a symbol.
type Quote struct {
	Symbol string
	Price  decimal.Decimal
	AsOf   time.Time
}

// Provider fetches the latest quote for a symbol. Implementations return
// domain.ErrQuoteNotFound for unknown symbols and a *domain.DependencyError
// when the upstream cannot be reached.
type Provider interface {
	GetQuote(ctx context.Context, symbol string) (Quote, error)
}
