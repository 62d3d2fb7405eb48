package engine

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

// Ledger reads and writes cash balances inside a store transaction. It
// enforces no business rules; callers check affordability before SetBalance.
type Ledger struct {
	now func() time.Time
}

// NewLedger creates a Ledger stamping writes with now.
func NewLedger(now func() time.Time) *Ledger {
	return &Ledger{now: now}
}

// Open creates the user's account with the given starting balance.
// It returns domain.ErrAccountExists if the account is already open.
func (l *Ledger) Open(tx store.Tx, userID string, initial decimal.Decimal) (*domain.Account, error) {
	_, err := tx.GetAccount(userID)
	if err == nil {
		return nil, domain.ErrAccountExists
	}
	if !errors.Is(err, domain.ErrAccountNotFound) {
		return nil, err
	}

	now := l.now()
	a := &domain.Account{
		UserID:    userID,
		Balance:   initial,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.PutAccount(a); err != nil {
		return nil, err
	}
	return a, nil
}

// Balance returns the user's cash balance.
func (l *Ledger) Balance(tx store.Tx, userID string) (decimal.Decimal, error) {
	a, err := tx.GetAccount(userID)
	if err != nil {
		return decimal.Zero, err
	}
	return a.Balance, nil
}

// SetBalance overwrites the user's cash balance.
func (l *Ledger) SetBalance(tx store.Tx, userID string, balance decimal.Decimal) error {
	a, err := tx.GetAccount(userID)
	if err != nil {
		return err
	}
	a.Balance = balance
	a.UpdatedAt = l.now()
	return tx.PutAccount(a)
}
