package quote

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

// Static serves prices from memory. It backs local runs and tests.
type Static struct {
	mu     sync.RWMutex
	quotes map[string]Quote
}

var _ Provider = (*Static)(nil)

// NewStatic creates a Static provider with the given prices, all stamped
// with asOf.
func NewStatic(prices map[string]decimal.Decimal, asOf time.Time) *Static {
	s := &Static{quotes: make(map[string]Quote, len(prices))}
	for sym, p := range prices {
		s.quotes[sym] = Quote{Symbol: sym, Price: p, AsOf: asOf}
	}
	return s
}

// Set replaces the price of symbol.
func (s *Static) Set(symbol string, price decimal.Decimal, asOf time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[symbol] = Quote{Symbol: symbol, Price: price, AsOf: asOf}
}

func (s *Static) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if err := ctx.Err(); err != nil {
		return Quote{}, domain.Unavailable("quotes", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	q, ok := s.quotes[symbol]
	if !ok {
		return Quote{}, domain.ErrQuoteNotFound
	}
	return q, nil
}

// ParseStatic parses a "SYMBOL=PRICE,SYMBOL=PRICE" list. Symbols are
// normalized; an empty string yields an empty map.
func ParseStatic(s string) (map[string]decimal.Decimal, error) {
	prices := make(map[string]decimal.Decimal)
	for _, pair := range strings.Split(s, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		sym, raw, ok := strings.Cut(pair, "=")
		if !ok {
			return nil, fmt.Errorf("invalid quote %q: want SYMBOL=PRICE", pair)
		}
		symbol, err := domain.NormalizeSymbol(sym)
		if err != nil {
			return nil, fmt.Errorf("invalid quote %q: %w", pair, err)
		}
		price, err := decimal.NewFromString(strings.TrimSpace(raw))
		if err != nil {
			return nil, fmt.Errorf("invalid quote %q: %w", pair, err)
		}
		if err := domain.ValidatePrice(price); err != nil {
			return nil, fmt.Errorf("invalid quote %q: %w", pair, err)
		}
		prices[symbol] = price
	}
	return prices, nil
}
