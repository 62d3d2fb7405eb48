package engine

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

// OrderRequest carries the fields needed to create an order.
type OrderRequest struct {
	Ticker   string
	Side     domain.OrderSide
	Price    decimal.Decimal
	Quantity int64
}

// Engine owns the order lifecycle and is the only writer of balances,
// positions and order status. Every operation runs in one store
// transaction scoped to the calling user.
type Engine struct {
	store          store.Store
	ledger         *Ledger
	book           *PositionBook
	defaultBalance decimal.Decimal
	now            func() time.Time
	newID          func() string
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock replaces the wall clock used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithIDGenerator replaces the order id generator.
func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

// New creates an Engine over s. New accounts start with defaultBalance.
func New(s store.Store, defaultBalance decimal.Decimal, opts ...Option) *Engine {
	e := &Engine{
		store:          s,
		defaultBalance: defaultBalance,
		now:            func() time.Time { return time.Now().UTC() },
		newID:          func() string { return uuid.New().String() },
	}
	for _, opt := range opts {
		opt(e)
	}
	e.ledger = NewLedger(e.now)
	e.book = NewPositionBook(e.now)
	return e
}

// OpenAccount creates the user's account with the default balance.
func (e *Engine) OpenAccount(ctx context.Context, userID string) (*domain.Account, error) {
	var acct *domain.Account
	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		a, err := e.ledger.Open(tx, userID, e.defaultBalance)
		acct = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// Account returns the user's account.
func (e *Engine) Account(ctx context.Context, userID string) (*domain.Account, error) {
	var acct *domain.Account
	err := e.store.View(ctx, func(tx store.Tx) error {
		a, err := tx.GetAccount(userID)
		acct = a
		return err
	})
	if err != nil {
		return nil, err
	}
	return acct, nil
}

// validate checks the request shape and returns the normalized symbol.
func validate(req OrderRequest) (string, error) {
	symbol, err := domain.NormalizeSymbol(req.Ticker)
	if err != nil {
		return "", err
	}
	if !req.Side.Valid() {
		return "", &domain.ValidationError{Message: "order_type must be BUY or SELL"}
	}
	if err := domain.ValidatePrice(req.Price); err != nil {
		return "", err
	}
	if req.Quantity < 1 {
		return "", &domain.ValidationError{Message: "quantity must be >= 1"}
	}
	return symbol, nil
}

// CreateOrder validates the request, checks that the user can currently
// afford it, and stores it as OPEN. Nothing is reserved: execution checks
// again.
func (e *Engine) CreateOrder(ctx context.Context, userID string, req OrderRequest) (*domain.Order, error) {
	symbol, err := validate(req)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		ID:       e.newID(),
		UserID:   userID,
		Symbol:   symbol,
		Side:     req.Side,
		Price:    req.Price,
		Quantity: req.Quantity,
		Status:   domain.OrderStatusOpen,
	}

	err = e.store.Update(ctx, userID, func(tx store.Tx) error {
		switch order.Side {
		case domain.OrderSideBuy:
			balance, err := e.ledger.Balance(tx, userID)
			if err != nil {
				return err
			}
			if balance.LessThan(order.Total()) {
				return domain.ErrInsufficientFunds
			}
		case domain.OrderSideSell:
			pos, err := tx.GetPosition(userID, symbol)
			if errors.Is(err, domain.ErrPositionNotFound) {
				return domain.ErrInsufficientHoldings
			}
			if err != nil {
				return err
			}
			if pos.Quantity < order.Quantity {
				return domain.ErrInsufficientHoldings
			}
		}
		order.CreatedAt = e.now()
		return tx.CreateOrder(order)
	})
	if err != nil {
		return nil, err
	}
	return order, nil
}

// ListOrders returns the user's orders, newest first.
func (e *Engine) ListOrders(ctx context.Context, userID string) ([]*domain.Order, error) {
	var orders []*domain.Order
	err := e.store.View(ctx, func(tx store.Tx) error {
		var err error
		orders, err = tx.ListOrders(userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// ownedOrder loads an order and checks that userID owns it.
func ownedOrder(tx store.Tx, userID, orderID string) (*domain.Order, error) {
	o, err := tx.GetOrder(orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrOrderForbidden
	}
	return o, nil
}

// ExecuteOrder fills an OPEN order at its own price. The cash movement,
// the position change and the status change commit together. A BUY needs
// the balance to cover the total; a SELL needs the position to still hold
// the quantity.
func (e *Engine) ExecuteOrder(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	var executed *domain.Order
	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		o, err := ownedOrder(tx, userID, orderID)
		if err != nil {
			return err
		}
		if !o.CanTransition(domain.OrderStatusExecuted) {
			return domain.ErrInvalidOrderState
		}

		total := o.Total()
		balance, err := e.ledger.Balance(tx, userID)
		if err != nil {
			return err
		}
		switch o.Side {
		case domain.OrderSideBuy:
			if balance.LessThan(total) {
				return domain.ErrInsufficientFunds
			}
			balance = balance.Sub(total)
		case domain.OrderSideSell:
			balance = balance.Add(total)
		}
		if err := e.ledger.SetBalance(tx, userID, balance); err != nil {
			return err
		}
		if _, err := e.book.ApplyFill(tx, userID, o.Symbol, o.Side, o.Quantity, o.Price); err != nil {
			return err
		}

		at := e.now()
		o.Status = domain.OrderStatusExecuted
		o.ExecutedAt = &at
		if err := tx.UpdateOrder(o, domain.OrderStatusOpen); err != nil {
			return err
		}
		executed = o
		return nil
	})
	if err != nil {
		return nil, stateError(err)
	}
	return executed, nil
}

// CancelOrder cancels an OPEN order. With del set the order record is
// removed and the returned order is nil.
func (e *Engine) CancelOrder(ctx context.Context, userID, orderID string, del bool) (*domain.Order, error) {
	var canceled *domain.Order
	err := e.store.Update(ctx, userID, func(tx store.Tx) error {
		o, err := ownedOrder(tx, userID, orderID)
		if err != nil {
			return err
		}
		if !o.CanTransition(domain.OrderStatusCanceled) {
			return domain.ErrInvalidOrderState
		}
		if del {
			return tx.DeleteOrder(o.ID, domain.OrderStatusOpen)
		}
		o.Status = domain.OrderStatusCanceled
		if err := tx.UpdateOrder(o, domain.OrderStatusOpen); err != nil {
			return err
		}
		canceled = o
		return nil
	})
	if err != nil {
		return nil, stateError(err)
	}
	return canceled, nil
}

// stateError reports a lost conditional write as an invalid state: another
// call moved the order out of OPEN first.
func stateError(err error) error {
	if errors.Is(err, domain.ErrStatusConflict) {
		return domain.ErrInvalidOrderState
	}
	return err
}
