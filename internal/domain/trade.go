package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Trade is the reporting view of an executed order.
type Trade struct {
	OrderID    string
	Symbol     string
	Side       OrderSide
	Quantity   int64
	Price      decimal.Decimal
	Total      decimal.Decimal
	ExecutedAt time.Time
}

// TradeFromOrder builds a Trade from an executed order. It reports false
// for orders that were never executed.
func TradeFromOrder(o *Order) (Trade, bool) {
	if o.Status != OrderStatusExecuted || o.ExecutedAt == nil {
		return Trade{}, false
	}
	return Trade{
		OrderID:    o.ID,
		Symbol:     o.Symbol,
		Side:       o.Side,
		Quantity:   o.Quantity,
		Price:      o.Price,
		Total:      o.Total(),
		ExecutedAt: *o.ExecutedAt,
	}, true
}
