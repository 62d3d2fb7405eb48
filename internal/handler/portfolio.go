package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/service"
)

// PortfolioHandler handles HTTP requests for portfolio reports.
type PortfolioHandler struct {
	portfolioSvc *service.PortfolioService
}

// NewPortfolioHandler creates a new PortfolioHandler.
func NewPortfolioHandler(portfolioSvc *service.PortfolioService) *PortfolioHandler {
	return &PortfolioHandler{portfolioSvc: portfolioSvc}
}

type summaryResponse struct {
	Balance              json.Number `json:"balance"`
	TotalInvested        json.Number `json:"total_invested"`
	CurrentValue         json.Number `json:"current_value"`
	TotalProfitLoss      json.Number `json:"total_profit_loss"`
	ProfitLossPercentage json.Number `json:"profit_loss_percentage"`
	PositionsCount       int         `json:"positions_count"`
}

// positionResponse fields derived from a quote are null when the quote
// was unavailable.
type positionResponse struct {
	Ticker               string       `json:"ticker"`
	Quantity             int64        `json:"quantity"`
	AveragePrice         json.Number  `json:"average_price"`
	TotalInvested        json.Number  `json:"total_invested"`
	CurrentPrice         *json.Number `json:"current_price"`
	CurrentValue         *json.Number `json:"current_value"`
	ProfitLoss           *json.Number `json:"profit_loss"`
	ProfitLossPercentage *json.Number `json:"profit_loss_percentage"`
	QuotedAt             *string      `json:"quoted_at"`
}

type tradeResponse struct {
	OrderID    string      `json:"order_id"`
	Ticker     string      `json:"ticker"`
	OrderType  string      `json:"order_type"`
	Quantity   int64       `json:"quantity"`
	Price      json.Number `json:"price"`
	Total      json.Number `json:"total"`
	ExecutedAt string      `json:"executed_at"`
}

type tradeDayResponse struct {
	Date   string          `json:"date"`
	Trades []tradeResponse `json:"trades"`
}

type historyResponse struct {
	TradeHistory []tradeDayResponse `json:"trade_history"`
}

type portfolioResponse struct {
	Summary      summaryResponse    `json:"summary"`
	Positions    []positionResponse `json:"positions"`
	TradeHistory []tradeDayResponse `json:"trade_history"`
}

// Get handles GET /simulator/portfolio.
func (h *PortfolioHandler) Get(w http.ResponseWriter, r *http.Request) {
	p, err := h.portfolioSvc.Portfolio(r.Context(), userID(r))
	if err != nil {
		mapPortfolioError(w, err)
		return
	}

	positions := make([]positionResponse, len(p.Positions))
	for i := range p.Positions {
		v := &p.Positions[i]
		positions[i] = positionResponse{
			Ticker:               v.Symbol,
			Quantity:             v.Quantity,
			AveragePrice:         money(v.AveragePrice),
			TotalInvested:        money(v.TotalInvested),
			CurrentPrice:         optionalMoney(v.CurrentPrice),
			CurrentValue:         optionalMoney(v.CurrentValue),
			ProfitLoss:           optionalMoney(v.ProfitLoss),
			ProfitLossPercentage: optionalMoney(v.ProfitLossPercentage),
			QuotedAt:             optionalTimestamp(v.QuotedAt),
		}
	}

	WriteJSON(w, http.StatusOK, portfolioResponse{
		Summary:      buildSummaryResponse(&p.Summary),
		Positions:    positions,
		TradeHistory: buildHistoryResponse(p.History),
	})
}

// Summary handles GET /simulator/portfolio/summary.
func (h *PortfolioHandler) Summary(w http.ResponseWriter, r *http.Request) {
	sum, err := h.portfolioSvc.Summary(r.Context(), userID(r))
	if err != nil {
		mapPortfolioError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildSummaryResponse(sum))
}

// History handles GET /simulator/portfolio/history.
func (h *PortfolioHandler) History(w http.ResponseWriter, r *http.Request) {
	days, err := h.portfolioSvc.TradeHistory(r.Context(), userID(r))
	if err != nil {
		mapPortfolioError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, historyResponse{TradeHistory: buildHistoryResponse(days)})
}

func buildSummaryResponse(s *service.Summary) summaryResponse {
	return summaryResponse{
		Balance:              money(s.Balance),
		TotalInvested:        money(s.TotalInvested),
		CurrentValue:         money(s.CurrentValue),
		TotalProfitLoss:      money(s.TotalProfitLoss),
		ProfitLossPercentage: money(s.ProfitLossPercentage),
		PositionsCount:       s.PositionsCount,
	}
}

func buildHistoryResponse(days []service.TradeDay) []tradeDayResponse {
	out := make([]tradeDayResponse, len(days))
	for i, d := range days {
		trades := make([]tradeResponse, len(d.Trades))
		for j, t := range d.Trades {
			trades[j] = tradeResponse{
				OrderID:    t.OrderID,
				Ticker:     t.Symbol,
				OrderType:  string(t.Side),
				Quantity:   t.Quantity,
				Price:      money(t.Price),
				Total:      money(t.Total),
				ExecutedAt: timestamp(t.ExecutedAt),
			}
		}
		out[i] = tradeDayResponse{Date: d.Date, Trades: trades}
	}
	return out
}

func mapPortfolioError(w http.ResponseWriter, err error) {
	if errors.Is(err, domain.ErrAccountNotFound) {
		WriteError(w, http.StatusNotFound, "account_not_found", "Open an account first with POST /account")
		return
	}
	writeUnexpected(w, err)
}
