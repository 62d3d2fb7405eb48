package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

// tb is the subset of testing.TB that *rapid.T also provides.
type tb interface {
	Helper()
	Fatalf(format string, args ...any)
}

// testClock ticks one second per reading so timestamps are distinct and
// ordered.
type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func newTestClock() *testClock {
	return &testClock{t: time.Date(2025, 1, 2, 9, 0, 0, 0, time.UTC)}
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(time.Second)
	return c.t
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func newTestEngine(t tb) *Engine {
	t.Helper()
	return New(store.NewMemory(), dec("10000"), WithClock(newTestClock().Now))
}

func openAccount(t tb, e *Engine, userID string) {
	t.Helper()
	if _, err := e.OpenAccount(context.Background(), userID); err != nil {
		t.Fatalf("open account %s: %v", userID, err)
	}
}

func setBalance(t tb, e *Engine, userID string, balance decimal.Decimal) {
	t.Helper()
	err := e.store.Update(context.Background(), userID, func(tx store.Tx) error {
		return e.ledger.SetBalance(tx, userID, balance)
	})
	if err != nil {
		t.Fatalf("set balance: %v", err)
	}
}

func balanceOf(t tb, e *Engine, userID string) decimal.Decimal {
	t.Helper()
	a, err := e.Account(context.Background(), userID)
	if err != nil {
		t.Fatalf("get account: %v", err)
	}
	return a.Balance
}

func positionOf(t tb, e *Engine, userID, symbol string) *domain.Position {
	t.Helper()
	var pos *domain.Position
	err := e.store.View(context.Background(), func(tx store.Tx) error {
		p, err := tx.GetPosition(userID, symbol)
		if errors.Is(err, domain.ErrPositionNotFound) {
			return nil
		}
		pos = p
		return err
	})
	if err != nil {
		t.Fatalf("get position: %v", err)
	}
	return pos
}

func mustCreate(t tb, e *Engine, userID string, side domain.OrderSide, ticker, price string, qty int64) *domain.Order {
	t.Helper()
	o, err := e.CreateOrder(context.Background(), userID, OrderRequest{
		Ticker:   ticker,
		Side:     side,
		Price:    dec(price),
		Quantity: qty,
	})
	if err != nil {
		t.Fatalf("create %s %s: %v", side, ticker, err)
	}
	return o
}

func mustExecute(t tb, e *Engine, userID, orderID string) *domain.Order {
	t.Helper()
	o, err := e.ExecuteOrder(context.Background(), userID, orderID)
	if err != nil {
		t.Fatalf("execute %s: %v", orderID, err)
	}
	return o
}
