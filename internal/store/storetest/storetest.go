// Package storetest holds the behaviour every store.Store implementation
// must share. Backend tests call Run with a constructor for a fresh store.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
	"github.com/shopspring/decimal"
)

// Factory returns an empty store. It should register its own cleanup.
type Factory func(t *testing.T) store.Store

// Run executes the conformance suite against stores built by open.
func Run(t *testing.T, open Factory) {
	tests := []struct {
		name string
		fn   func(t *testing.T, s store.Store)
	}{
		{"AccountRoundTrip", testAccountRoundTrip},
		{"PositionLifecycle", testPositionLifecycle},
		{"OrderCreateAndGet", testOrderCreateAndGet},
		{"ListOrdersNewestFirst", testListOrdersNewestFirst},
		{"ConditionalUpdate", testConditionalUpdate},
		{"ConditionalDelete", testConditionalDelete},
		{"ListExecutedOrders", testListExecutedOrders},
		{"RollbackOnError", testRollbackOnError},
		{"ReadYourWrites", testReadYourWrites},
		{"ViewIsReadOnly", testViewIsReadOnly},
		{"CanceledContext", testCanceledContext},
		{"RacingConditionalUpdates", testRacingConditionalUpdates},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			tc.fn(t, open(t))
		})
	}
}

var base = time.Date(2025, 1, 2, 15, 4, 5, 0, time.UTC)

func newOrder(id, userID string, createdAt time.Time) *domain.Order {
	return &domain.Order{
		ID:        id,
		UserID:    userID,
		Symbol:    "PETR4",
		Side:      domain.OrderSideBuy,
		Price:     decimal.RequireFromString("10.25"),
		Quantity:  100,
		Status:    domain.OrderStatusOpen,
		CreatedAt: createdAt,
	}
}

func update(t *testing.T, s store.Store, userID string, fn func(tx store.Tx) error) {
	t.Helper()
	if err := s.Update(context.Background(), userID, fn); err != nil {
		t.Fatalf("update failed: %v", err)
	}
}

func view(t *testing.T, s store.Store, fn func(tx store.Tx) error) {
	t.Helper()
	if err := s.View(context.Background(), fn); err != nil {
		t.Fatalf("view failed: %v", err)
	}
}

func testAccountRoundTrip(t *testing.T, s store.Store) {
	view(t, s, func(tx store.Tx) error {
		if _, err := tx.GetAccount("user-1"); !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("expected ErrAccountNotFound, got %v", err)
		}
		return nil
	})

	update(t, s, "user-1", func(tx store.Tx) error {
		return tx.PutAccount(&domain.Account{
			UserID:    "user-1",
			Balance:   decimal.RequireFromString("1234.5678"),
			CreatedAt: base,
			UpdatedAt: base,
		})
	})
	update(t, s, "user-1", func(tx store.Tx) error {
		a, err := tx.GetAccount("user-1")
		if err != nil {
			return err
		}
		a.Balance = a.Balance.Sub(decimal.RequireFromString("0.0078"))
		a.UpdatedAt = base.Add(time.Hour)
		return tx.PutAccount(a)
	})

	view(t, s, func(tx store.Tx) error {
		a, err := tx.GetAccount("user-1")
		if err != nil {
			return err
		}
		if !a.Balance.Equal(decimal.RequireFromString("1234.56")) {
			t.Errorf("got balance %s, want 1234.56", a.Balance)
		}
		if !a.CreatedAt.Equal(base) {
			t.Errorf("got created_at %v, want %v", a.CreatedAt, base)
		}
		if !a.UpdatedAt.Equal(base.Add(time.Hour)) {
			t.Errorf("got updated_at %v, want %v", a.UpdatedAt, base.Add(time.Hour))
		}
		return nil
	})
}

func testPositionLifecycle(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		for _, sym := range []string{"VALE3", "ITUB4", "PETR4"} {
			err := tx.PutPosition(&domain.Position{
				UserID:        "user-1",
				Symbol:        sym,
				Quantity:      10,
				AveragePrice:  decimal.RequireFromString("3.3333333333333333"),
				TotalInvested: decimal.RequireFromString("33.33"),
				UpdatedAt:     base,
			})
			if err != nil {
				return err
			}
		}
		return tx.PutPosition(&domain.Position{UserID: "user-2", Symbol: "PETR4", Quantity: 1, UpdatedAt: base})
	})

	view(t, s, func(tx store.Tx) error {
		got, err := tx.ListPositions("user-1")
		if err != nil {
			return err
		}
		if len(got) != 3 {
			t.Fatalf("got %d positions, want 3", len(got))
		}
		want := []string{"ITUB4", "PETR4", "VALE3"}
		for i, p := range got {
			if p.Symbol != want[i] {
				t.Errorf("position %d: got %s, want %s", i, p.Symbol, want[i])
			}
		}
		p, err := tx.GetPosition("user-1", "PETR4")
		if err != nil {
			return err
		}
		if !p.AveragePrice.Equal(decimal.RequireFromString("3.3333333333333333")) {
			t.Errorf("average price lost precision: %s", p.AveragePrice)
		}
		return nil
	})

	update(t, s, "user-1", func(tx store.Tx) error {
		return tx.DeletePosition("user-1", "PETR4")
	})

	view(t, s, func(tx store.Tx) error {
		if _, err := tx.GetPosition("user-1", "PETR4"); !errors.Is(err, domain.ErrPositionNotFound) {
			t.Errorf("expected ErrPositionNotFound after delete, got %v", err)
		}
		if _, err := tx.GetPosition("user-2", "PETR4"); err != nil {
			t.Errorf("other user's position affected: %v", err)
		}
		return nil
	})
}

func testOrderCreateAndGet(t *testing.T, s store.Store) {
	o := newOrder("order-1", "user-1", base)
	update(t, s, "user-1", func(tx store.Tx) error { return tx.CreateOrder(o) })

	err := s.Update(context.Background(), "user-1", func(tx store.Tx) error {
		return tx.CreateOrder(newOrder("order-1", "user-1", base))
	})
	if !errors.Is(err, store.ErrDuplicateOrder) {
		t.Errorf("expected ErrDuplicateOrder, got %v", err)
	}

	view(t, s, func(tx store.Tx) error {
		got, err := tx.GetOrder("order-1")
		if err != nil {
			return err
		}
		if got.UserID != "user-1" || got.Symbol != "PETR4" || got.Side != domain.OrderSideBuy {
			t.Errorf("unexpected order: %+v", got)
		}
		if !got.Price.Equal(o.Price) || got.Quantity != 100 || got.Status != domain.OrderStatusOpen {
			t.Errorf("unexpected order values: %+v", got)
		}
		if !got.CreatedAt.Equal(base) || got.ExecutedAt != nil {
			t.Errorf("unexpected timestamps: %v %v", got.CreatedAt, got.ExecutedAt)
		}
		if _, err := tx.GetOrder("missing"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected ErrOrderNotFound, got %v", err)
		}
		return nil
	})
}

func testListOrdersNewestFirst(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		for i := 0; i < 5; i++ {
			if err := tx.CreateOrder(newOrder(fmt.Sprintf("order-%d", i), "user-1", base.Add(time.Duration(i)*time.Second))); err != nil {
				return err
			}
		}
		// Same timestamp as order-4: ties break by id, descending.
		return tx.CreateOrder(newOrder("order-9", "user-1", base.Add(4*time.Second)))
	})
	update(t, s, "user-2", func(tx store.Tx) error {
		return tx.CreateOrder(newOrder("other", "user-2", base.Add(time.Hour)))
	})

	view(t, s, func(tx store.Tx) error {
		got, err := tx.ListOrders("user-1")
		if err != nil {
			return err
		}
		want := []string{"order-9", "order-4", "order-3", "order-2", "order-1", "order-0"}
		if len(got) != len(want) {
			t.Fatalf("got %d orders, want %d", len(got), len(want))
		}
		for i, o := range got {
			if o.ID != want[i] {
				t.Errorf("position %d: got %s, want %s", i, o.ID, want[i])
			}
		}

		none, err := tx.ListOrders("nobody")
		if err != nil {
			return err
		}
		if none == nil || len(none) != 0 {
			t.Errorf("expected empty non-nil slice, got %v", none)
		}
		return nil
	})
}

func testConditionalUpdate(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		return tx.CreateOrder(newOrder("order-1", "user-1", base))
	})

	executedAt := base.Add(time.Minute)
	update(t, s, "user-1", func(tx store.Tx) error {
		o, err := tx.GetOrder("order-1")
		if err != nil {
			return err
		}
		o.Status = domain.OrderStatusExecuted
		o.ExecutedAt = &executedAt
		return tx.UpdateOrder(o, domain.OrderStatusOpen)
	})

	err := s.Update(context.Background(), "user-1", func(tx store.Tx) error {
		o, err := tx.GetOrder("order-1")
		if err != nil {
			return err
		}
		o.Status = domain.OrderStatusCanceled
		return tx.UpdateOrder(o, domain.OrderStatusOpen)
	})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	err = s.Update(context.Background(), "user-1", func(tx store.Tx) error {
		return tx.UpdateOrder(newOrder("missing", "user-1", base), domain.OrderStatusOpen)
	})
	if !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got %v", err)
	}

	view(t, s, func(tx store.Tx) error {
		o, err := tx.GetOrder("order-1")
		if err != nil {
			return err
		}
		if o.Status != domain.OrderStatusExecuted {
			t.Errorf("got status %s, want EXECUTED", o.Status)
		}
		if o.ExecutedAt == nil || !o.ExecutedAt.Equal(executedAt) {
			t.Errorf("got executed_at %v, want %v", o.ExecutedAt, executedAt)
		}
		return nil
	})
}

func testConditionalDelete(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		if err := tx.CreateOrder(newOrder("open", "user-1", base)); err != nil {
			return err
		}
		done := newOrder("done", "user-1", base.Add(time.Second))
		done.Status = domain.OrderStatusCanceled
		return tx.CreateOrder(done)
	})

	err := s.Update(context.Background(), "user-1", func(tx store.Tx) error {
		return tx.DeleteOrder("done", domain.OrderStatusOpen)
	})
	if !errors.Is(err, domain.ErrStatusConflict) {
		t.Fatalf("expected ErrStatusConflict, got %v", err)
	}

	update(t, s, "user-1", func(tx store.Tx) error {
		return tx.DeleteOrder("open", domain.OrderStatusOpen)
	})

	view(t, s, func(tx store.Tx) error {
		if _, err := tx.GetOrder("open"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("expected deleted order to be gone, got %v", err)
		}
		got, err := tx.ListOrders("user-1")
		if err != nil {
			return err
		}
		if len(got) != 1 || got[0].ID != "done" {
			t.Errorf("expected only 'done' to remain listed, got %d orders", len(got))
		}
		return nil
	})
}

func testListExecutedOrders(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		// Created in one order, executed in the reverse order.
		for i, offset := range []time.Duration{3 * time.Hour, time.Hour, 2 * time.Hour} {
			o := newOrder(fmt.Sprintf("order-%d", i), "user-1", base.Add(time.Duration(i)*time.Second))
			at := base.Add(offset)
			o.Status = domain.OrderStatusExecuted
			o.ExecutedAt = &at
			if err := tx.CreateOrder(o); err != nil {
				return err
			}
		}
		return tx.CreateOrder(newOrder("still-open", "user-1", base.Add(time.Minute)))
	})

	view(t, s, func(tx store.Tx) error {
		got, err := tx.ListExecutedOrders("user-1")
		if err != nil {
			return err
		}
		want := []string{"order-0", "order-2", "order-1"}
		if len(got) != len(want) {
			t.Fatalf("got %d executed orders, want %d", len(got), len(want))
		}
		for i, o := range got {
			if o.ID != want[i] {
				t.Errorf("position %d: got %s, want %s", i, o.ID, want[i])
			}
		}
		return nil
	})
}

func testRollbackOnError(t *testing.T, s store.Store) {
	boom := errors.New("boom")
	err := s.Update(context.Background(), "user-1", func(tx store.Tx) error {
		if err := tx.PutAccount(&domain.Account{UserID: "user-1", Balance: decimal.NewFromInt(5), CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		if err := tx.PutPosition(&domain.Position{UserID: "user-1", Symbol: "PETR4", Quantity: 1, UpdatedAt: base}); err != nil {
			return err
		}
		if err := tx.CreateOrder(newOrder("order-1", "user-1", base)); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected fn error to propagate, got %v", err)
	}

	view(t, s, func(tx store.Tx) error {
		if _, err := tx.GetAccount("user-1"); !errors.Is(err, domain.ErrAccountNotFound) {
			t.Errorf("account survived rollback: %v", err)
		}
		if _, err := tx.GetPosition("user-1", "PETR4"); !errors.Is(err, domain.ErrPositionNotFound) {
			t.Errorf("position survived rollback: %v", err)
		}
		if _, err := tx.GetOrder("order-1"); !errors.Is(err, domain.ErrOrderNotFound) {
			t.Errorf("order survived rollback: %v", err)
		}
		return nil
	})
}

func testReadYourWrites(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		return tx.CreateOrder(newOrder("old", "user-1", base))
	})
	update(t, s, "user-1", func(tx store.Tx) error {
		if err := tx.CreateOrder(newOrder("new", "user-1", base.Add(time.Second))); err != nil {
			return err
		}
		if err := tx.PutPosition(&domain.Position{UserID: "user-1", Symbol: "VALE3", Quantity: 2, UpdatedAt: base}); err != nil {
			return err
		}

		orders, err := tx.ListOrders("user-1")
		if err != nil {
			return err
		}
		if len(orders) != 2 || orders[0].ID != "new" {
			t.Errorf("expected staged order first in listing, got %d orders", len(orders))
		}
		positions, err := tx.ListPositions("user-1")
		if err != nil {
			return err
		}
		if len(positions) != 1 || positions[0].Quantity != 2 {
			t.Errorf("expected staged position in listing, got %v", positions)
		}
		if err := tx.DeletePosition("user-1", "VALE3"); err != nil {
			return err
		}
		if _, err := tx.GetPosition("user-1", "VALE3"); !errors.Is(err, domain.ErrPositionNotFound) {
			t.Errorf("expected staged delete to be visible, got %v", err)
		}
		return nil
	})
}

func testViewIsReadOnly(t *testing.T, s store.Store) {
	err := s.View(context.Background(), func(tx store.Tx) error {
		return tx.PutAccount(&domain.Account{UserID: "user-1", Balance: decimal.NewFromInt(1), CreatedAt: base, UpdatedAt: base})
	})
	if !errors.Is(err, store.ErrReadOnly) {
		t.Fatalf("expected ErrReadOnly, got %v", err)
	}
}

func testCanceledContext(t *testing.T, s store.Store) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	err := s.Update(ctx, "user-1", func(tx store.Tx) error {
		called = true
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if called {
		t.Error("fn should not run with a canceled context")
	}
}

// testRacingConditionalUpdates has many writers try to move the same order
// out of OPEN while crediting the account. Exactly one may win.
func testRacingConditionalUpdates(t *testing.T, s store.Store) {
	update(t, s, "user-1", func(tx store.Tx) error {
		if err := tx.PutAccount(&domain.Account{UserID: "user-1", Balance: decimal.Zero, CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		return tx.CreateOrder(newOrder("order-1", "user-1", base))
	})

	const workers = 16
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := s.Update(context.Background(), "user-1", func(tx store.Tx) error {
				o, err := tx.GetOrder("order-1")
				if err != nil {
					return err
				}
				if o.Status != domain.OrderStatusOpen {
					return domain.ErrStatusConflict
				}
				a, err := tx.GetAccount("user-1")
				if err != nil {
					return err
				}
				a.Balance = a.Balance.Add(decimal.NewFromInt(1))
				if err := tx.PutAccount(a); err != nil {
					return err
				}
				o.Status = domain.OrderStatusExecuted
				at := base.Add(time.Minute)
				o.ExecutedAt = &at
				return tx.UpdateOrder(o, domain.OrderStatusOpen)
			})
			if err == nil {
				mu.Lock()
				successes++
				mu.Unlock()
			} else if !errors.Is(err, domain.ErrStatusConflict) {
				t.Errorf("unexpected error: %v", err)
			}
		}()
	}
	wg.Wait()

	if successes != 1 {
		t.Fatalf("got %d successful transitions, want 1", successes)
	}
	view(t, s, func(tx store.Tx) error {
		a, err := tx.GetAccount("user-1")
		if err != nil {
			return err
		}
		if !a.Balance.Equal(decimal.NewFromInt(1)) {
			t.Errorf("got balance %s, want 1", a.Balance)
		}
		return nil
	})
}

// Reopen writes through one store instance, closes it, and checks that a
// second instance opened by the same func sees the data.
func Reopen(t *testing.T, open func() (store.Store, error)) {
	t.Helper()

	s, err := open()
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	update(t, s, "user-1", func(tx store.Tx) error {
		if err := tx.PutAccount(&domain.Account{UserID: "user-1", Balance: decimal.RequireFromString("9999.99"), CreatedAt: base, UpdatedAt: base}); err != nil {
			return err
		}
		return tx.CreateOrder(newOrder("order-1", "user-1", base))
	})
	if err := s.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	s, err = open()
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	view(t, s, func(tx store.Tx) error {
		a, err := tx.GetAccount("user-1")
		if err != nil {
			return err
		}
		if !a.Balance.Equal(decimal.RequireFromString("9999.99")) {
			t.Errorf("got balance %s after reopen, want 9999.99", a.Balance)
		}
		orders, err := tx.ListOrders("user-1")
		if err != nil {
			return err
		}
		if len(orders) != 1 {
			t.Errorf("got %d orders after reopen, want 1", len(orders))
		}
		return nil
	})
}
