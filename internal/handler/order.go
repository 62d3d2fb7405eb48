package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/engine"
	"github.com/Pedroca011/finflow-dashboard/internal/service"
)

// OrderHandler handles HTTP requests for simulator order endpoints.
type OrderHandler struct {
	orderSvc *service.OrderService
}

// NewOrderHandler creates a new OrderHandler.
func NewOrderHandler(orderSvc *service.OrderService) *OrderHandler {
	return &OrderHandler{orderSvc: orderSvc}
}

// createOrderRequest is the JSON request body for POST /simulator/orders.
// Price is kept as the literal JSON number so no precision is lost.
type createOrderRequest struct {
	Ticker    string      `json:"ticker"`
	OrderType string      `json:"order_type"`
	Price     json.Number `json:"price"`
	Quantity  int64       `json:"quantity"`
}

type orderResponse struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Ticker     string      `json:"ticker"`
	OrderType  string      `json:"order_type"`
	Price      json.Number `json:"price"`
	Quantity   int64       `json:"quantity"`
	Total      json.Number `json:"total"`
	Status     string      `json:"status"`
	CreatedAt  string      `json:"created_at"`
	ExecutedAt *string     `json:"executed_at"`
}

type orderListResponse struct {
	Orders []orderResponse `json:"orders"`
}

// Create handles POST /simulator/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	price, err := domain.ParsePrice(req.Price.String())
	if err != nil {
		mapOrderError(w, err)
		return
	}

	order, err := h.orderSvc.Create(r.Context(), userID(r), engine.OrderRequest{
		Ticker:   req.Ticker,
		Side:     domain.OrderSide(req.OrderType),
		Price:    price,
		Quantity: req.Quantity,
	})
	if err != nil {
		mapOrderError(w, err)
		return
	}

	WriteJSON(w, http.StatusCreated, buildOrderResponse(order))
}

// List handles GET /simulator/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	orders, err := h.orderSvc.List(r.Context(), userID(r))
	if err != nil {
		mapOrderError(w, err)
		return
	}

	resp := orderListResponse{Orders: make([]orderResponse, len(orders))}
	for i, o := range orders {
		resp.Orders[i] = buildOrderResponse(o)
	}
	WriteJSON(w, http.StatusOK, resp)
}

// Execute handles PUT /simulator/orders/{order_id}/execute.
func (h *OrderHandler) Execute(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.Execute(r.Context(), userID(r), chi.URLParam(r, "order_id"))
	if err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// Cancel handles PUT /simulator/orders/{order_id}/cancel.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	order, err := h.orderSvc.Cancel(r.Context(), userID(r), chi.URLParam(r, "order_id"))
	if err != nil {
		mapOrderError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildOrderResponse(order))
}

// Delete handles DELETE /simulator/orders/{order_id}.
func (h *OrderHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.orderSvc.Delete(r.Context(), userID(r), chi.URLParam(r, "order_id")); err != nil {
		mapOrderError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildOrderResponse(o *domain.Order) orderResponse {
	return orderResponse{
		OrderID:    o.ID,
		UserID:     o.UserID,
		Ticker:     o.Symbol,
		OrderType:  string(o.Side),
		Price:      money(o.Price),
		Quantity:   o.Quantity,
		Total:      money(o.Total()),
		Status:     string(o.Status),
		CreatedAt:  timestamp(o.CreatedAt),
		ExecutedAt: optionalTimestamp(o.ExecutedAt),
	}
}

// mapOrderError maps domain errors to HTTP responses for order endpoints.
func mapOrderError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", "Open an account first with POST /account")
	case errors.Is(err, domain.ErrOrderNotFound):
		WriteError(w, http.StatusNotFound, "order_not_found", "Order not found")
	case errors.Is(err, domain.ErrOrderForbidden):
		WriteError(w, http.StatusForbidden, "forbidden", "Order belongs to another user")
	case errors.Is(err, domain.ErrInvalidOrderState):
		WriteError(w, http.StatusConflict, "invalid_order_state", "Only OPEN orders can be executed or canceled")
	case errors.Is(err, domain.ErrInsufficientFunds):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_funds", "Balance does not cover the order total")
	case errors.Is(err, domain.ErrInsufficientHoldings):
		WriteError(w, http.StatusUnprocessableEntity, "insufficient_holdings", "Position does not hold the order quantity")
	default:
		writeUnexpected(w, err)
	}
}
