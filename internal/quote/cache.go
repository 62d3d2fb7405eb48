package quote

import (
	"context"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache keeps recent quotes from another Provider for a fixed TTL. Errors
// are not cached.
type Cache struct {
	next Provider
	lru  *expirable.LRU[string, Quote]
}

var _ Provider = (*Cache)(nil)

// NewCache wraps next with an LRU of at most size symbols.
func NewCache(next Provider, size int, ttl time.Duration) *Cache {
	return &Cache{
		next: next,
		lru:  expirable.NewLRU[string, Quote](size, nil, ttl),
	}
}

func (c *Cache) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	if q, ok := c.lru.Get(symbol); ok {
		return q, nil
	}
	q, err := c.next.GetQuote(ctx, symbol)
	if err != nil {
		return Quote{}, err
	}
	c.lru.Add(symbol, q)
	return q, nil
}
