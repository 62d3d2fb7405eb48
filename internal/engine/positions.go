package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

// PositionBook applies fills to per-user, per-symbol holdings using
// weighted-average cost. The average price moves only on buys; a sell
// shrinks TotalInvested to AveragePrice × remaining quantity.
type PositionBook struct {
	now func() time.Time
}

// NewPositionBook creates a PositionBook stamping writes with now.
func NewPositionBook(now func() time.Time) *PositionBook {
	return &PositionBook{now: now}
}

// ApplyFill applies one executed fill to the (userID, symbol) position and
// returns the resulting position, or nil when a sell closed it.
func (b *PositionBook) ApplyFill(
	tx store.Tx,
	userID, symbol string,
	side domain.OrderSide,
	quantity int64,
	price decimal.Decimal,
) (*domain.Position, error) {
	if quantity < 1 {
		return nil, &domain.ValidationError{Message: "fill quantity must be >= 1"}
	}

	pos, err := tx.GetPosition(userID, symbol)
	missing := errors.Is(err, domain.ErrPositionNotFound)
	if err != nil && !missing {
		return nil, err
	}

	switch side {
	case domain.OrderSideBuy:
		if missing {
			pos = &domain.Position{
				UserID:        userID,
				Symbol:        symbol,
				Quantity:      quantity,
				AveragePrice:  price,
				TotalInvested: domain.Notional(price, quantity),
			}
		} else {
			newQuantity := pos.Quantity + quantity
			newInvested := pos.TotalInvested.Add(domain.Notional(price, quantity))
			pos.Quantity = newQuantity
			pos.TotalInvested = newInvested
			pos.AveragePrice = newInvested.Div(decimal.NewFromInt(newQuantity))
		}

	case domain.OrderSideSell:
		if missing || pos.Quantity < quantity {
			return nil, domain.ErrInsufficientHoldings
		}
		newQuantity := pos.Quantity - quantity
		if newQuantity <= 0 {
			return nil, tx.DeletePosition(userID, symbol)
		}
		pos.Quantity = newQuantity
		pos.TotalInvested = pos.AveragePrice.Mul(decimal.NewFromInt(newQuantity))

	default:
		return nil, &domain.ValidationError{Message: "unknown order side: " + string(side)}
	}

	pos.UpdatedAt = b.now()
	if err := tx.PutPosition(pos); err != nil {
		return nil, err
	}
	return pos, nil
}
