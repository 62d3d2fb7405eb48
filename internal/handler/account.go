package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/service"
)

// AccountHandler handles HTTP requests for the caller's account.
type AccountHandler struct {
	accountSvc *service.AccountService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(accountSvc *service.AccountService) *AccountHandler {
	return &AccountHandler{accountSvc: accountSvc}
}

type accountResponse struct {
	UserID    string      `json:"user_id"`
	Balance   json.Number `json:"balance"`
	CreatedAt string      `json:"created_at"`
	UpdatedAt string      `json:"updated_at"`
}

// Open handles POST /account.
func (h *AccountHandler) Open(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accountSvc.Open(r.Context(), userID(r))
	if err != nil {
		mapAccountError(w, err)
		return
	}
	WriteJSON(w, http.StatusCreated, buildAccountResponse(acct))
}

// Get handles GET /account.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	acct, err := h.accountSvc.Get(r.Context(), userID(r))
	if err != nil {
		mapAccountError(w, err)
		return
	}
	WriteJSON(w, http.StatusOK, buildAccountResponse(acct))
}

func buildAccountResponse(a *domain.Account) accountResponse {
	return accountResponse{
		UserID:    a.UserID,
		Balance:   money(a.Balance),
		CreatedAt: timestamp(a.CreatedAt),
		UpdatedAt: timestamp(a.UpdatedAt),
	}
}

// mapAccountError maps domain errors to HTTP responses for account endpoints.
func mapAccountError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}

	switch {
	case errors.Is(err, domain.ErrAccountExists):
		WriteError(w, http.StatusConflict, "account_already_exists", "Account is already open")
	case errors.Is(err, domain.ErrAccountNotFound):
		WriteError(w, http.StatusNotFound, "account_not_found", "Open an account first with POST /account")
	default:
		writeUnexpected(w, err)
	}
}
