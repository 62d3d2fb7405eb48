package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// OrderSide indicates whether an order buys or sells.
type OrderSide string

const (
	OrderSideBuy  OrderSide = "BUY"
	OrderSideSell OrderSide = "SELL"
)

// Valid reports whether s is a known side.
func (s OrderSide) Valid() bool {
	return s == OrderSideBuy || s == OrderSideSell
}

// OrderStatus represents the lifecycle state of an order.
type OrderStatus string

const (
	OrderStatusOpen     OrderStatus = "OPEN"
	OrderStatusExecuted OrderStatus = "EXECUTED"
	OrderStatusCanceled OrderStatus = "CANCELED"
)

// Terminal reports whether no further transition is possible from s.
func (s OrderStatus) Terminal() bool {
	return s == OrderStatusExecuted || s == OrderStatusCanceled
}

// Order is a user's instruction to buy or sell a quantity of a symbol at a
// target price. Orders never partially fill.
type Order struct {
	ID         string
	UserID     string
	Symbol     string
	Side       OrderSide
	Price      decimal.Decimal
	Quantity   int64
	Status     OrderStatus
	CreatedAt  time.Time
	ExecutedAt *time.Time // nil until executed
}

// CanTransition reports whether the order may move to the given status.
// OPEN→EXECUTED and OPEN→CANCELED are the only legal transitions.
func (o *Order) CanTransition(to OrderStatus) bool {
	return o.Status == OrderStatusOpen && to.Terminal()
}

// Total is the cash amount the order moves when executed.
func (o *Order) Total() decimal.Decimal {
	return Notional(o.Price, o.Quantity)
}

// Clone returns a deep copy.
func (o *Order) Clone() *Order {
	c := *o
	if o.ExecutedAt != nil {
		t := *o.ExecutedAt
		c.ExecutedAt = &t
	}
	return &c
}
