package service

import (
	"context"
	"log/slog"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/engine"
)

// OrderService runs order lifecycle operations through the engine, logs
// them and notifies subscribed webhooks.
type OrderService struct {
	engine     *engine.Engine
	webhookSvc *WebhookService
	logger     *slog.Logger
}

// NewOrderService creates a new OrderService with the given dependencies.
func NewOrderService(eng *engine.Engine, webhookSvc *WebhookService, logger *slog.Logger) *OrderService {
	return &OrderService{
		engine:     eng,
		webhookSvc: webhookSvc,
		logger:     logger,
	}
}

// Create validates and stores a new OPEN order.
func (s *OrderService) Create(ctx context.Context, userID string, req engine.OrderRequest) (*domain.Order, error) {
	order, err := s.engine.CreateOrder(ctx, userID, req)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order created", orderAttrs(order)...)
	s.webhookSvc.Dispatch(domain.EventOrderCreated, order)
	return order, nil
}

// List returns the user's orders, newest first.
func (s *OrderService) List(ctx context.Context, userID string) ([]*domain.Order, error) {
	return s.engine.ListOrders(ctx, userID)
}

// Execute fills an OPEN order.
func (s *OrderService) Execute(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.engine.ExecuteOrder(ctx, userID, orderID)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order executed", orderAttrs(order)...)
	s.webhookSvc.Dispatch(domain.EventOrderExecuted, order)
	return order, nil
}

// Cancel moves an OPEN order to CANCELED.
func (s *OrderService) Cancel(ctx context.Context, userID, orderID string) (*domain.Order, error) {
	order, err := s.engine.CancelOrder(ctx, userID, orderID, false)
	if err != nil {
		return nil, err
	}
	s.logger.Info("order canceled", orderAttrs(order)...)
	s.webhookSvc.Dispatch(domain.EventOrderCanceled, order)
	return order, nil
}

// Delete cancels an OPEN order and removes its record.
func (s *OrderService) Delete(ctx context.Context, userID, orderID string) error {
	if _, err := s.engine.CancelOrder(ctx, userID, orderID, true); err != nil {
		return err
	}
	s.logger.Info("order deleted",
		slog.String("user_id", userID),
		slog.String("order_id", orderID),
	)
	s.webhookSvc.Dispatch(domain.EventOrderDeleted, &domain.Order{ID: orderID, UserID: userID})
	return nil
}

func orderAttrs(o *domain.Order) []any {
	return []any{
		slog.String("user_id", o.UserID),
		slog.String("order_id", o.ID),
		slog.String("symbol", o.Symbol),
		slog.String("side", string(o.Side)),
		slog.String("price", o.Price.String()),
		slog.Int64("quantity", o.Quantity),
	}
}
