package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/quote"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

// TradeDayLayout is the date key used to group trade history.
const TradeDayLayout = "2006-01-02"

var hundred = decimal.NewFromInt(100)

// Summary aggregates a user's cash and positions. CurrentValue and
// TotalProfitLoss only cover positions with a known price; TotalInvested
// covers all of them.
type Summary struct {
	Balance              decimal.Decimal
	TotalInvested        decimal.Decimal
	CurrentValue         decimal.Decimal
	TotalProfitLoss      decimal.Decimal
	ProfitLossPercentage decimal.Decimal
	PositionsCount       int
}

// PositionView is a position valued at its latest quote. The quote-derived
// fields are nil when no price was obtained.
type PositionView struct {
	Symbol               string
	Quantity             int64
	AveragePrice         decimal.Decimal
	TotalInvested        decimal.Decimal
	CurrentPrice         *decimal.Decimal
	CurrentValue         *decimal.Decimal
	ProfitLoss           *decimal.Decimal
	ProfitLossPercentage *decimal.Decimal
	QuotedAt             *time.Time
}

// Priced reports whether a quote was available for the position.
func (v *PositionView) Priced() bool {
	return v.CurrentPrice != nil
}

// TradeDay groups the trades executed on one UTC calendar day.
type TradeDay struct {
	Date   string
	Trades []domain.Trade
}

// Portfolio is the full report: summary, valued positions and history.
type Portfolio struct {
	Summary   Summary
	Positions []PositionView
	History   []TradeDay
}

// PortfolioService values positions against live quotes and reports trade
// history. It only reads from the store.
type PortfolioService struct {
	store        store.Store
	quotes       quote.Provider
	quoteTimeout time.Duration
	concurrency  int
	logger       *slog.Logger
}

// NewPortfolioService creates a PortfolioService. Each quote lookup is
// bounded by quoteTimeout and at most concurrency lookups run at once.
func NewPortfolioService(
	s store.Store,
	quotes quote.Provider,
	quoteTimeout time.Duration,
	concurrency int,
	logger *slog.Logger,
) *PortfolioService {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PortfolioService{
		store:        s,
		quotes:       quotes,
		quoteTimeout: quoteTimeout,
		concurrency:  concurrency,
		logger:       logger,
	}
}

// snapshot is what one read transaction returns for a report.
type snapshot struct {
	balance   decimal.Decimal
	positions []*domain.Position
	executed  []*domain.Order
}

func (s *PortfolioService) read(ctx context.Context, userID string, withHistory bool) (*snapshot, error) {
	snap := &snapshot{}
	err := s.store.View(ctx, func(tx store.Tx) error {
		acct, err := tx.GetAccount(userID)
		if err != nil {
			return err
		}
		snap.balance = acct.Balance
		if snap.positions, err = tx.ListPositions(userID); err != nil {
			return err
		}
		if withHistory {
			snap.executed, err = tx.ListExecutedOrders(userID)
		}
		return err
	})
	if err != nil {
		return nil, err
	}
	return snap, nil
}

// Summary values every position and aggregates the totals.
func (s *PortfolioService) Summary(ctx context.Context, userID string) (*Summary, error) {
	snap, err := s.read(ctx, userID, false)
	if err != nil {
		return nil, err
	}
	sum := summarize(snap.balance, s.value(ctx, snap.positions))
	return &sum, nil
}

// TradeHistory returns executed orders grouped by UTC execution day,
// newest first.
func (s *PortfolioService) TradeHistory(ctx context.Context, userID string) ([]TradeDay, error) {
	var executed []*domain.Order
	err := s.store.View(ctx, func(tx store.Tx) error {
		if _, err := tx.GetAccount(userID); err != nil {
			return err
		}
		var err error
		executed, err = tx.ListExecutedOrders(userID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return groupByDay(executed), nil
}

// Portfolio returns the summary, the valued positions and the trade history
// read from a single snapshot.
func (s *PortfolioService) Portfolio(ctx context.Context, userID string) (*Portfolio, error) {
	snap, err := s.read(ctx, userID, true)
	if err != nil {
		return nil, err
	}
	views := s.value(ctx, snap.positions)
	return &Portfolio{
		Summary:   summarize(snap.balance, views),
		Positions: views,
		History:   groupByDay(snap.executed),
	}, nil
}

// value looks up quotes for all positions concurrently. A failed or slow
// lookup leaves that position unpriced; it never fails the report.
func (s *PortfolioService) value(ctx context.Context, positions []*domain.Position) []PositionView {
	views := make([]PositionView, len(positions))
	var g errgroup.Group
	g.SetLimit(s.concurrency)
	for i, p := range positions {
		views[i] = PositionView{
			Symbol:        p.Symbol,
			Quantity:      p.Quantity,
			AveragePrice:  p.AveragePrice,
			TotalInvested: p.TotalInvested,
		}
		g.Go(func() error {
			q, err := s.quote(ctx, p.Symbol)
			if err != nil {
				s.logger.Warn("quote unavailable",
					slog.String("symbol", p.Symbol),
					slog.String("error", err.Error()),
				)
				return nil
			}
			views[i].price(q)
			return nil
		})
	}
	_ = g.Wait()
	return views
}

func (s *PortfolioService) quote(ctx context.Context, symbol string) (quote.Quote, error) {
	ctx, cancel := context.WithTimeout(ctx, s.quoteTimeout)
	defer cancel()
	q, err := s.quotes.GetQuote(ctx, symbol)
	if err != nil {
		return quote.Quote{}, err
	}
	if !q.Price.IsPositive() {
		return quote.Quote{}, domain.ErrQuoteNotFound
	}
	return q, nil
}

func (v *PositionView) price(q quote.Quote) {
	current := domain.Notional(q.Price, v.Quantity)
	pl := current.Sub(v.TotalInvested)
	pct := percentage(pl, v.TotalInvested)
	price, asOf := q.Price, q.AsOf

	v.CurrentPrice = &price
	v.CurrentValue = &current
	v.ProfitLoss = &pl
	v.ProfitLossPercentage = &pct
	v.QuotedAt = &asOf
}

func summarize(balance decimal.Decimal, views []PositionView) Summary {
	sum := Summary{
		Balance:        balance,
		TotalInvested:  decimal.Zero,
		CurrentValue:   decimal.Zero,
		PositionsCount: len(views),
	}
	pricedInvested := decimal.Zero
	for i := range views {
		v := &views[i]
		sum.TotalInvested = sum.TotalInvested.Add(v.TotalInvested)
		if !v.Priced() {
			continue
		}
		sum.CurrentValue = sum.CurrentValue.Add(*v.CurrentValue)
		pricedInvested = pricedInvested.Add(v.TotalInvested)
	}
	sum.TotalProfitLoss = sum.CurrentValue.Sub(pricedInvested)
	sum.ProfitLossPercentage = percentage(sum.TotalProfitLoss, pricedInvested)
	return sum
}

// percentage returns part/whole × 100 rounded to two places, or 0 when
// whole is 0.
func percentage(part, whole decimal.Decimal) decimal.Decimal {
	if whole.IsZero() {
		return decimal.Zero
	}
	return part.Div(whole).Mul(hundred).Round(2)
}

// groupByDay expects orders sorted by execution time descending and keeps
// that order within and across days.
func groupByDay(orders []*domain.Order) []TradeDay {
	days := make([]TradeDay, 0)
	for _, o := range orders {
		t, ok := domain.TradeFromOrder(o)
		if !ok {
			continue
		}
		key := t.ExecutedAt.UTC().Format(TradeDayLayout)
		if n := len(days); n > 0 && days[n-1].Date == key {
			days[n-1].Trades = append(days[n-1].Trades, t)
			continue
		}
		days = append(days, TradeDay{Date: key, Trades: []domain.Trade{t}})
	}
	return days
}
