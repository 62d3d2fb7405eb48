package quote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

// DefaultBrapiURL is the public brapi.dev API root.
const DefaultBrapiURL = "https://brapi.dev/api"

// Brapi fetches B3 quotes from the brapi.dev HTTP API.
type Brapi struct {
	baseURL string
	token   string
	client  *http.Client
}

var _ Provider = (*Brapi)(nil)

// NewBrapi creates a client for baseURL. token may be empty for the
// public tier.
func NewBrapi(baseURL, token string, timeout time.Duration) *Brapi {
	return &Brapi{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type brapiResponse struct {
	Results []struct {
		Symbol             string           `json:"symbol"`
		RegularMarketPrice *decimal.Decimal `json:"regularMarketPrice"`
		RegularMarketTime  string           `json:"regularMarketTime"`
	} `json:"results"`
}

func (b *Brapi) GetQuote(ctx context.Context, symbol string) (Quote, error) {
	u := b.baseURL + "/quote/" + url.PathEscape(symbol)
	if b.token != "" {
		u += "?token=" + url.QueryEscape(b.token)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return Quote{}, fmt.Errorf("build brapi request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := b.client.Do(req)
	if err != nil {
		return Quote{}, domain.Unavailable("brapi", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return Quote{}, domain.ErrQuoteNotFound
	case resp.StatusCode != http.StatusOK:
		return Quote{}, domain.Unavailable("brapi", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	var body brapiResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return Quote{}, domain.Unavailable("brapi", fmt.Errorf("decode response: %w", err))
	}
	for _, r := range body.Results {
		if !strings.EqualFold(r.Symbol, symbol) || r.RegularMarketPrice == nil {
			continue
		}
		asOf, err := time.Parse(time.RFC3339, r.RegularMarketTime)
		if err != nil {
			asOf = time.Now().UTC()
		}
		return Quote{Symbol: symbol, Price: *r.RegularMarketPrice, AsOf: asOf.UTC()}, nil
	}
	return Quote{}, domain.ErrQuoteNotFound
}
