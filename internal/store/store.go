package store

import (
	"context"
	"errors"
	"sort"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

// ErrReadOnly is returned when a write is attempted inside View.
var ErrReadOnly = errors.New("store: write in read-only transaction")

// Tx is a unit of work against the backing store. Values returned by a Tx
// are copies; changes reach the store only when written back through the
// same Tx and the enclosing Update commits.
type Tx interface {
	// GetAccount returns domain.ErrAccountNotFound if the user has no account.
	GetAccount(userID string) (*domain.Account, error)
	PutAccount(a *domain.Account) error

	// GetPosition returns domain.ErrPositionNotFound if there is no holding.
	GetPosition(userID, symbol string) (*domain.Position, error)
	PutPosition(p *domain.Position) error
	DeletePosition(userID, symbol string) error
	// ListPositions returns the user's positions ordered by symbol.
	ListPositions(userID string) ([]*domain.Position, error)

	// GetOrder returns domain.ErrOrderNotFound if no order has the id.
	GetOrder(id string) (*domain.Order, error)
	CreateOrder(o *domain.Order) error
	// UpdateOrder overwrites the order only if its stored status equals
	// expected, and returns domain.ErrStatusConflict otherwise.
	UpdateOrder(o *domain.Order, expected domain.OrderStatus) error
	// DeleteOrder removes the order under the same condition as UpdateOrder.
	DeleteOrder(id string, expected domain.OrderStatus) error
	// ListOrders returns the user's orders, newest created first.
	ListOrders(userID string) ([]*domain.Order, error)
	// ListExecutedOrders returns the user's executed orders, most recently
	// executed first.
	ListExecutedOrders(userID string) ([]*domain.Order, error)
}

// Store is the persistence boundary of the trading engine.
type Store interface {
	// View runs fn with read-only access.
	View(ctx context.Context, fn func(Tx) error) error
	// Update runs fn in a read-write transaction scoped to userID. Writers
	// for the same user are serialized. If fn returns an error nothing it
	// wrote is kept.
	Update(ctx context.Context, userID string, fn func(Tx) error) error
	Close() error
}

// sortOrdersByCreated orders newest created first, breaking ties by id.
func sortOrdersByCreated(orders []*domain.Order) {
	sort.Slice(orders, func(i, j int) bool {
		a, b := orders[i], orders[j]
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID > b.ID
	})
}

// executedOnly filters orders down to executed ones sorted by execution
// time, newest first.
func executedOnly(orders []*domain.Order) []*domain.Order {
	out := make([]*domain.Order, 0, len(orders))
	for _, o := range orders {
		if o.Status == domain.OrderStatusExecuted && o.ExecutedAt != nil {
			out = append(out, o)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if !a.ExecutedAt.Equal(*b.ExecutedAt) {
			return a.ExecutedAt.After(*b.ExecutedAt)
		}
		return a.ID > b.ID
	})
	return out
}

func sortPositions(positions []*domain.Position) {
	sort.Slice(positions, func(i, j int) bool {
		return positions[i].Symbol < positions[j].Symbol
	})
}

// ErrDuplicateOrder is returned when an order id is created twice.
var ErrDuplicateOrder = errors.New("store: duplicate order id")
