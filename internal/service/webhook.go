package service

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
	"github.com/Pedroca011/finflow-dashboard/internal/store"
)

var validWebhookEvents = map[string]bool{
	domain.EventOrderCreated:  true,
	domain.EventOrderExecuted: true,
	domain.EventOrderCanceled: true,
	domain.EventOrderDeleted:  true,
}

var webhookEventList = strings.Join([]string{
	domain.EventOrderCreated,
	domain.EventOrderExecuted,
	domain.EventOrderCanceled,
	domain.EventOrderDeleted,
}, ", ")

// UpsertWebhookRequest represents the input for webhook registration.
type UpsertWebhookRequest struct {
	UserID string
	URL    string
	Events []string
}

// WebhookService handles webhook subscriptions and event delivery.
type WebhookService struct {
	store  *store.WebhookStore
	client *http.Client
	logger *slog.Logger
	now    func() time.Time

	inflight sync.WaitGroup
}

// NewWebhookService creates a new WebhookService. Each delivery is bounded
// by webhookTimeout.
func NewWebhookService(webhookStore *store.WebhookStore, webhookTimeout time.Duration, logger *slog.Logger) *WebhookService {
	return &WebhookService{
		store:  webhookStore,
		client: &http.Client{Timeout: webhookTimeout},
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Upsert validates the request and subscribes the URL to each event. It
// returns the resulting subscriptions and whether any was newly created.
func (s *WebhookService) Upsert(req UpsertWebhookRequest) ([]*domain.Webhook, bool, error) {
	if req.URL == "" {
		return nil, false, &domain.ValidationError{Message: "url is required"}
	}
	if len(req.URL) > 2048 {
		return nil, false, &domain.ValidationError{Message: "url must be at most 2048 characters"}
	}
	parsed, err := url.ParseRequestURI(req.URL)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return nil, false, &domain.ValidationError{Message: "url must be a valid absolute URL"}
	}
	if parsed.Scheme != "https" {
		return nil, false, &domain.ValidationError{Message: "url must use https scheme"}
	}

	if len(req.Events) == 0 {
		return nil, false, &domain.ValidationError{Message: "events must be a non-empty array"}
	}
	seen := make(map[string]bool, len(req.Events))
	events := make([]string, 0, len(req.Events))
	for _, event := range req.Events {
		if !validWebhookEvents[event] {
			return nil, false, &domain.ValidationError{
				Message: "Unknown event type: " + event + ". Must be one of: " + webhookEventList,
			}
		}
		if !seen[event] {
			seen[event] = true
			events = append(events, event)
		}
	}

	now := s.now().Truncate(time.Second)
	anyCreated := false
	webhooks := make([]*domain.Webhook, 0, len(events))
	for _, event := range events {
		stored, created := s.store.Upsert(&domain.Webhook{
			WebhookID: uuid.New().String(),
			UserID:    req.UserID,
			Event:     event,
			URL:       req.URL,
			CreatedAt: now,
			UpdatedAt: now,
		})
		anyCreated = anyCreated || created
		webhooks = append(webhooks, stored)
	}
	return webhooks, anyCreated, nil
}

// List returns the user's subscriptions.
func (s *WebhookService) List(userID string) []*domain.Webhook {
	return s.store.ListByUser(userID)
}

// Delete removes one of the user's subscriptions.
func (s *WebhookService) Delete(userID, webhookID string) error {
	return s.store.Delete(userID, webhookID)
}

type orderEventPayload struct {
	Event     string         `json:"event"`
	Timestamp string         `json:"timestamp"`
	Data      orderEventData `json:"data"`
}

type orderEventData struct {
	OrderID    string      `json:"order_id"`
	UserID     string      `json:"user_id"`
	Ticker     string      `json:"ticker,omitempty"`
	OrderType  string      `json:"order_type,omitempty"`
	Price      json.Number `json:"price,omitempty"`
	Quantity   int64       `json:"quantity,omitempty"`
	Total      json.Number `json:"total,omitempty"`
	Status     string      `json:"status,omitempty"`
	ExecutedAt *string     `json:"executed_at,omitempty"`
}

func buildOrderEventPayload(event string, o *domain.Order, at time.Time) orderEventPayload {
	data := orderEventData{OrderID: o.ID, UserID: o.UserID}
	if event != domain.EventOrderDeleted {
		data.Ticker = o.Symbol
		data.OrderType = string(o.Side)
		data.Price = json.Number(o.Price.String())
		data.Quantity = o.Quantity
		data.Total = json.Number(o.Total().String())
		data.Status = string(o.Status)
		if o.ExecutedAt != nil {
			ts := o.ExecutedAt.UTC().Format(time.RFC3339)
			data.ExecutedAt = &ts
		}
	}
	return orderEventPayload{
		Event:     event,
		Timestamp: at.UTC().Truncate(time.Second).Format(time.RFC3339),
		Data:      data,
	}
}

// Dispatch notifies the order owner's subscription for event, if any.
// Delivery happens in the background and failures are only logged.
func (s *WebhookService) Dispatch(event string, order *domain.Order) {
	wh := s.store.GetByUserEvent(order.UserID, event)
	if wh == nil {
		return
	}
	payload := buildOrderEventPayload(event, order, s.now())
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		s.deliver(wh, event, payload)
	}()
}

// Wait blocks until in-flight deliveries finish.
func (s *WebhookService) Wait() {
	s.inflight.Wait()
}

func (s *WebhookService) deliver(wh *domain.Webhook, eventType string, payload any) {
	log := s.logger.With(
		slog.String("webhook_id", wh.WebhookID),
		slog.String("event", eventType),
	)

	body, err := json.Marshal(payload)
	if err != nil {
		log.Error("webhook payload", slog.String("error", err.Error()))
		return
	}
	req, err := http.NewRequest(http.MethodPost, wh.URL, bytes.NewReader(body))
	if err != nil {
		log.Error("webhook request", slog.String("error", err.Error()))
		return
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Delivery-Id", uuid.New().String())
	req.Header.Set("X-Webhook-Id", wh.WebhookID)
	req.Header.Set("X-Event-Type", eventType)

	resp, err := s.client.Do(req)
	if err != nil {
		log.Warn("webhook delivery failed", slog.String("error", err.Error()))
		return
	}
	resp.Body.Close()
	if resp.StatusCode >= 300 {
		log.Warn("webhook rejected", slog.Int("status", resp.StatusCode))
	}
}
