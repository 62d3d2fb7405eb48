package service

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/engine"
	"github.com/Pedroca011/finflow-dashboard/internal/quote"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

// hookRecorder is a TLS endpoint that records webhook deliveries.
type hookRecorder struct {
	server *httptest.Server

	mu       sync.Mutex
	bodies   [][]byte
	headers  []http.Header
	response int
}

func newHookRecorder(t *testing.T, status int) *hookRecorder {
	t.Helper()
	rec := &hookRecorder{response: status}
	rec.server = httptest.NewTLSServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		rec.mu.Lock()
		rec.bodies = append(rec.bodies, body)
		rec.headers = append(rec.headers, r.Header.Clone())
		rec.mu.Unlock()
		w.WriteHeader(rec.response)
	}))
	t.Cleanup(rec.server.Close)
	return rec
}

func (r *hookRecorder) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.bodies)
}

func (r *hookRecorder) body(i int) []byte {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.bodies[i]
}

func (r *hookRecorder) header(i int) http.Header {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.headers[i]
}

func newTestWebhookService(client *http.Client) (*WebhookService, *store.WebhookStore) {
	ws := store.NewWebhookStore()
	svc := NewWebhookService(ws, 5*time.Second, discardLogger())
	if client != nil {
		svc.client = client
	}
	return svc, ws
}

// testEnv wires the services over a memory store and a static quote feed.
type testEnv struct {
	store     *store.Memory
	engine    *engine.Engine
	quotes    *quote.Static
	accounts  *AccountService
	orders    *OrderService
	portfolio *PortfolioService
	webhooks  *WebhookService
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{store: store.NewMemory()}
	env.engine = engine.New(env.store, dec("10000"))
	env.quotes = quote.NewStatic(nil, time.Date(2026, 3, 2, 18, 0, 0, 0, time.UTC))
	env.webhooks, _ = newTestWebhookService(nil)
	env.accounts = NewAccountService(env.engine, discardLogger())
	env.orders = NewOrderService(env.engine, env.webhooks, discardLogger())
	env.portfolio = NewPortfolioService(env.store, env.quotes, time.Second, 4, discardLogger())
	return env
}

func (env *testEnv) open(t *testing.T, userID string) {
	t.Helper()
	if _, err := env.accounts.Open(context.Background(), userID); err != nil {
		t.Fatalf("open account %s: %v", userID, err)
	}
}

// fill creates and executes an order.
func (env *testEnv) fill(t *testing.T, userID, symbol string, side domain.OrderSide, price string, qty int64) *domain.Order {
	t.Helper()
	ctx := context.Background()
	o, err := env.orders.Create(ctx, userID, engine.OrderRequest{
		Ticker:   symbol,
		Side:     side,
		Price:    dec(price),
		Quantity: qty,
	})
	if err != nil {
		t.Fatalf("create %s %s: %v", side, symbol, err)
	}
	o, err = env.orders.Execute(ctx, userID, o.ID)
	if err != nil {
		t.Fatalf("execute %s %s: %v", side, symbol, err)
	}
	return o
}
