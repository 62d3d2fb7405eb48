package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

type fill struct {
	side  domain.OrderSide
	qty   int64
	price string
}

func applyFills(t *testing.T, e *Engine, fills ...fill) (*domain.Position, error) {
	t.Helper()
	var (
		pos     *domain.Position
		lastErr error
	)
	for _, f := range fills {
		err := e.store.Update(context.Background(), "user-1", func(tx store.Tx) error {
			p, err := e.book.ApplyFill(tx, "user-1", "PETR4", f.side, f.qty, dec(f.price))
			pos = p
			return err
		})
		if err != nil {
			lastErr = err
		}
	}
	return pos, lastErr
}

func TestApplyFill(t *testing.T) {
	tests := []struct {
		name         string
		fills        []fill
		wantErr      error
		wantGone     bool
		wantQty      int64
		wantAvg      string
		wantInvested string
	}{
		{
			name:         "first buy opens position",
			fills:        []fill{{domain.OrderSideBuy, 500, "10"}},
			wantQty:      500,
			wantAvg:      "10",
			wantInvested: "5000",
		},
		{
			name:         "second buy averages by volume",
			fills:        []fill{{domain.OrderSideBuy, 100, "10"}, {domain.OrderSideBuy, 300, "14"}},
			wantQty:      400,
			wantAvg:      "13",
			wantInvested: "5200",
		},
		{
			name:         "partial sell keeps average and shrinks invested",
			fills:        []fill{{domain.OrderSideBuy, 100, "10"}, {domain.OrderSideBuy, 300, "14"}, {domain.OrderSideSell, 100, "20"}},
			wantQty:      300,
			wantAvg:      "13",
			wantInvested: "3900",
		},
		{
			name:     "full sell deletes position",
			fills:    []fill{{domain.OrderSideBuy, 500, "10"}, {domain.OrderSideSell, 500, "12"}},
			wantGone: true,
		},
		{
			name:    "sell without position",
			fills:   []fill{{domain.OrderSideSell, 1, "10"}},
			wantErr: domain.ErrInsufficientHoldings,
		},
		{
			name:    "oversell",
			fills:   []fill{{domain.OrderSideBuy, 10, "10"}, {domain.OrderSideSell, 11, "10"}},
			wantErr: domain.ErrInsufficientHoldings,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEngine(t)
			_, err := applyFills(t, e, tt.fills...)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Fatalf("got error %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			pos := positionOf(t, e, "user-1", "PETR4")
			if tt.wantGone {
				if pos != nil {
					t.Fatalf("expected position to be deleted, got qty %d", pos.Quantity)
				}
				return
			}
			if pos == nil {
				t.Fatal("expected a position")
			}
			if pos.Quantity != tt.wantQty {
				t.Errorf("got quantity %d, want %d", pos.Quantity, tt.wantQty)
			}
			if !pos.AveragePrice.Equal(dec(tt.wantAvg)) {
				t.Errorf("got average %s, want %s", pos.AveragePrice, tt.wantAvg)
			}
			if !pos.TotalInvested.Equal(dec(tt.wantInvested)) {
				t.Errorf("got invested %s, want %s", pos.TotalInvested, tt.wantInvested)
			}
		})
	}
}

// A failed sell leaves the position as it was.
func TestApplyFill_OversellDoesNotMutate(t *testing.T) {
	e := newTestEngine(t)
	if _, err := applyFills(t, e, fill{domain.OrderSideBuy, 10, "7.5"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := applyFills(t, e, fill{domain.OrderSideSell, 11, "9"}); !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("expected ErrInsufficientHoldings, got %v", err)
	}

	pos := positionOf(t, e, "user-1", "PETR4")
	if pos == nil || pos.Quantity != 10 || !pos.TotalInvested.Equal(dec("75")) {
		t.Fatalf("position changed after failed sell: %+v", pos)
	}
}

// Realized gains do not move the cost basis: selling at a profit leaves the
// average price where the buys put it.
func TestApplyFill_ProfitableSellLeavesCostBasis(t *testing.T) {
	e := newTestEngine(t)
	pos, err := applyFills(t, e,
		fill{domain.OrderSideBuy, 3, "10"},
		fill{domain.OrderSideSell, 1, "100"},
	)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !pos.AveragePrice.Equal(dec("10")) {
		t.Errorf("got average %s, want 10", pos.AveragePrice)
	}
	if !pos.TotalInvested.Equal(dec("20")) {
		t.Errorf("got invested %s, want 20", pos.TotalInvested)
	}
}

func TestApplyFill_RejectsNonPositiveQuantity(t *testing.T) {
	e := newTestEngine(t)
	_, err := applyFills(t, e, fill{domain.OrderSideBuy, 0, "10"})
	var validationErr *domain.ValidationError
	if !errors.As(err, &validationErr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}
