package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

func TestLedger_OpenUsesDefaultBalance(t *testing.T) {
	e := newTestEngine(t)

	a, err := e.OpenAccount(context.Background(), "user-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !a.Balance.Equal(dec("10000")) {
		t.Errorf("got balance %s, want 10000", a.Balance)
	}
	if a.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}
}

func TestLedger_OpenTwice(t *testing.T) {
	e := newTestEngine(t)
	openAccount(t, e, "user-1")
	setBalance(t, e, "user-1", dec("42"))

	if _, err := e.OpenAccount(context.Background(), "user-1"); !errors.Is(err, domain.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
	if got := balanceOf(t, e, "user-1"); !got.Equal(dec("42")) {
		t.Errorf("reopen changed balance to %s", got)
	}
}

func TestLedger_BalanceWithoutAccount(t *testing.T) {
	e := newTestEngine(t)
	if _, err := e.Account(context.Background(), "ghost"); !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}

// SetBalance is a plain overwrite; keeping balances non-negative is the
// engine's job.
func TestLedger_SetBalanceOverwritesWithoutChecks(t *testing.T) {
	e := newTestEngine(t)
	openAccount(t, e, "user-1")

	setBalance(t, e, "user-1", dec("-5.5"))

	if got := balanceOf(t, e, "user-1"); !got.Equal(dec("-5.5")) {
		t.Errorf("got balance %s, want -5.5", got)
	}
}

func TestLedger_SetBalanceWithoutAccount(t *testing.T) {
	e := newTestEngine(t)
	err := e.store.Update(context.Background(), "ghost", func(tx store.Tx) error {
		return e.ledger.SetBalance(tx, "ghost", dec("1"))
	})
	if !errors.Is(err, domain.ErrAccountNotFound) {
		t.Fatalf("expected ErrAccountNotFound, got %v", err)
	}
}
