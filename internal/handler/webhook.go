package handler

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/service"
)

// WebhookHandler handles HTTP requests for webhook endpoints.
type WebhookHandler struct {
	webhookSvc *service.WebhookService
}

// NewWebhookHandler creates a new WebhookHandler.
func NewWebhookHandler(webhookSvc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{webhookSvc: webhookSvc}
}

// upsertWebhookRequest is the JSON request body for POST /webhooks.
type upsertWebhookRequest struct {
	URL    string   `json:"url"`
	Events []string `json:"events"`
}

type webhookResponse struct {
	WebhookID string `json:"webhook_id"`
	Event     string `json:"event"`
	URL       string `json:"url"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// webhookListResponse is the JSON response for POST and GET /webhooks.
type webhookListResponse struct {
	Webhooks []webhookResponse `json:"webhooks"`
}

// Upsert handles POST /webhooks. It answers 201 when any subscription was
// created and 200 when all of them already existed.
func (h *WebhookHandler) Upsert(w http.ResponseWriter, r *http.Request) {
	var req upsertWebhookRequest
	if err := ParseJSON(r, &req); err != nil {
		WriteError(w, http.StatusBadRequest, "invalid_request", err.Error())
		return
	}

	webhooks, anyCreated, err := h.webhookSvc.Upsert(service.UpsertWebhookRequest{
		UserID: userID(r),
		URL:    req.URL,
		Events: req.Events,
	})
	if err != nil {
		mapWebhookError(w, err)
		return
	}

	status := http.StatusOK
	if anyCreated {
		status = http.StatusCreated
	}
	WriteJSON(w, status, webhookListResponse{Webhooks: buildWebhookResponses(webhooks)})
}

// List handles GET /webhooks.
func (h *WebhookHandler) List(w http.ResponseWriter, r *http.Request) {
	webhooks := h.webhookSvc.List(userID(r))
	WriteJSON(w, http.StatusOK, webhookListResponse{Webhooks: buildWebhookResponses(webhooks)})
}

// Delete handles DELETE /webhooks/{webhook_id}.
func (h *WebhookHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.webhookSvc.Delete(userID(r), chi.URLParam(r, "webhook_id")); err != nil {
		mapWebhookError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func buildWebhookResponses(webhooks []*domain.Webhook) []webhookResponse {
	result := make([]webhookResponse, len(webhooks))
	for i, wh := range webhooks {
		result[i] = webhookResponse{
			WebhookID: wh.WebhookID,
			Event:     wh.Event,
			URL:       wh.URL,
			CreatedAt: timestamp(wh.CreatedAt),
			UpdatedAt: timestamp(wh.UpdatedAt),
		}
	}
	return result
}

// mapWebhookError maps domain errors to HTTP responses for webhook endpoints.
func mapWebhookError(w http.ResponseWriter, err error) {
	var validationErr *domain.ValidationError
	if errors.As(err, &validationErr) {
		WriteError(w, http.StatusBadRequest, "validation_error", validationErr.Message)
		return
	}
	if errors.Is(err, domain.ErrWebhookNotFound) {
		WriteError(w, http.StatusNotFound, "webhook_not_found", "Webhook not found")
		return
	}
	writeUnexpected(w, err)
}
