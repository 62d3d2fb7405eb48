package quote

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

// latestTrader is the part of the Alpaca market data client used here.
type latestTrader interface {
	GetLatestTrade(symbol string, req marketdata.GetLatestTradeRequest) (*marketdata.Trade, error)
}

// Alpaca prices US symbols by their latest trade on Alpaca market data.
type Alpaca struct {
	client latestTrader
}

var _ Provider = (*Alpaca)(nil)

// NewAlpaca creates a provider using the given credentials. An empty
// baseURL uses the library default.
func NewAlpaca(apiKey, apiSecret, baseURL string) *Alpaca {
	return &Alpaca{
		client: marketdata.NewClient(marketdata.ClientOpts{
			APIKey:    apiKey,
			APISecret: apiSecret,
			BaseURL:   baseURL,
		}),
	}
}

type tradeResult struct {
	trade *marketdata.Trade
	err   error
}

// GetQuote waits for the latest trade or for ctx, whichever comes first.
// The client call itself takes no context, so it runs in its own goroutine.
func (a *Alpaca) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	ch := make(chan tradeResult, 1)
	go func() {
		trade, err := a.client.GetLatestTrade(symbol, marketdata.GetLatestTradeRequest{})
		ch <- tradeResult{trade: trade, err: err}
	}()

	select {
	case <-ctx.Done():
		return Quote{}, domain.Unavailable("alpaca", ctx.Err())
	case r := <-ch:
		if r.err != nil {
			return Quote{}, domain.Unavailable("alpaca", fmt.Errorf("latest trade %s: %w", symbol, r.err))
		}
		if r.trade == nil || r.trade.Price <= 0 {
			return Quote{}, domain.ErrQuoteNotFound
		}
		return Quote{
			Symbol: symbol,
			Price:  decimal.NewFromFloat(r.trade.Price),
			AsOf:   r.trade.Timestamp.UTC(),
		}, nil
	}
}
