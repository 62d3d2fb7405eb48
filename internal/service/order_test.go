package service

import (
	"context"
	"errors"
	"testing"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/engine"
)

func TestOrderService_LifecycleDispatchesEvents(t *testing.T) {
	env := newTestEnv(t)
	rec := newHookRecorder(t, 200)
	env.webhooks.client = rec.server.Client()
	env.open(t, "user-1")

	_, _, err := env.webhooks.Upsert(UpsertWebhookRequest{
		UserID: "user-1",
		URL:    rec.server.URL,
		Events: []string{domain.EventOrderCreated, domain.EventOrderExecuted, domain.EventOrderCanceled, domain.EventOrderDeleted},
	})
	if err != nil {
		t.Fatalf("upsert webhooks: %v", err)
	}

	ctx := context.Background()
	req := engine.OrderRequest{Ticker: "petr4", Side: domain.OrderSideBuy, Price: dec("10"), Quantity: 10}

	executed, err := env.orders.Create(ctx, "user-1", req)
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if _, err := env.orders.Execute(ctx, "user-1", executed.ID); err != nil {
		t.Fatalf("Execute: %v", err)
	}
	canceled, _ := env.orders.Create(ctx, "user-1", req)
	if _, err := env.orders.Cancel(ctx, "user-1", canceled.ID); err != nil {
		t.Fatalf("Cancel: %v", err)
	}
	deleted, _ := env.orders.Create(ctx, "user-1", req)
	if err := env.orders.Delete(ctx, "user-1", deleted.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	env.webhooks.Wait()

	// 3 created + executed + canceled + deleted
	if got := rec.count(); got != 6 {
		t.Fatalf("got %d deliveries, want 6", got)
	}
	counts := make(map[string]int)
	for i := 0; i < rec.count(); i++ {
		counts[rec.header(i).Get("X-Event-Type")]++
	}
	want := map[string]int{
		domain.EventOrderCreated:  3,
		domain.EventOrderExecuted: 1,
		domain.EventOrderCanceled: 1,
		domain.EventOrderDeleted:  1,
	}
	for event, n := range want {
		if counts[event] != n {
			t.Errorf("%s deliveries = %d, want %d", event, counts[event], n)
		}
	}

	orders, err := env.orders.List(ctx, "user-1")
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(orders) != 2 {
		t.Errorf("listed %d orders, want 2 (deleted one removed)", len(orders))
	}
}

func TestOrderService_FailuresDoNotDispatch(t *testing.T) {
	env := newTestEnv(t)
	rec := newHookRecorder(t, 200)
	env.webhooks.client = rec.server.Client()
	env.open(t, "user-1")
	env.open(t, "user-2")
	_, _, _ = env.webhooks.Upsert(UpsertWebhookRequest{
		UserID: "user-1",
		URL:    rec.server.URL,
		Events: []string{domain.EventOrderCreated, domain.EventOrderExecuted, domain.EventOrderCanceled, domain.EventOrderDeleted},
	})
	ctx := context.Background()

	_, err := env.orders.Create(ctx, "user-1", engine.OrderRequest{Ticker: "VALE3", Side: domain.OrderSideBuy, Price: dec("50"), Quantity: 1000})
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("Create: got %v, want ErrInsufficientFunds", err)
	}
	_, err = env.orders.Create(ctx, "user-1", engine.OrderRequest{Ticker: "VALE3", Side: domain.OrderSideSell, Price: dec("50"), Quantity: 1})
	if !errors.Is(err, domain.ErrInsufficientHoldings) {
		t.Fatalf("Create sell: got %v, want ErrInsufficientHoldings", err)
	}
	if _, err := env.orders.Execute(ctx, "user-1", "missing"); !errors.Is(err, domain.ErrOrderNotFound) {
		t.Fatalf("Execute: got %v, want ErrOrderNotFound", err)
	}

	other := env.fill(t, "user-2", "PETR4", domain.OrderSideBuy, "10", 1)
	if _, err := env.orders.Cancel(ctx, "user-1", other.ID); !errors.Is(err, domain.ErrOrderForbidden) {
		t.Fatalf("Cancel: got %v, want ErrOrderForbidden", err)
	}
	if err := env.orders.Delete(ctx, "user-2", other.ID); !errors.Is(err, domain.ErrInvalidOrderState) {
		t.Fatalf("Delete executed: got %v, want ErrInvalidOrderState", err)
	}
	env.webhooks.Wait()

	if got := rec.count(); got != 0 {
		t.Errorf("got %d deliveries for failed operations, want 0", got)
	}
}
