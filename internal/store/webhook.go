package store

import (
	"sort"
	"sync"

	"github.com/Pedroca011/finflow-dashboard/internal/domain"
)

// WebhookStore keeps webhook subscriptions in memory, one per (user, event).
// Callers always receive copies.
type WebhookStore struct {
	mu       sync.RWMutex
	webhooks map[string]*domain.Webhook            // webhook_id → webhook
	byUser   map[string]map[string]*domain.Webhook // user_id → event → webhook
}

// NewWebhookStore creates an empty WebhookStore.
func NewWebhookStore() *WebhookStore {
	return &WebhookStore{
		webhooks: make(map[string]*domain.Webhook),
		byUser:   make(map[string]map[string]*domain.Webhook),
	}
}

// Upsert stores w unless the user already subscribes to w.Event, in which
// case the existing subscription keeps its id and takes the new URL. It
// returns the stored subscription and whether it was newly created.
func (s *WebhookStore) Upsert(w *domain.Webhook) (*domain.Webhook, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if existing, ok := s.byUser[w.UserID][w.Event]; ok {
		if existing.URL != w.URL {
			existing.URL = w.URL
			existing.UpdatedAt = w.UpdatedAt
		}
		c := *existing
		return &c, false
	}

	stored := *w
	s.webhooks[stored.WebhookID] = &stored
	if s.byUser[stored.UserID] == nil {
		s.byUser[stored.UserID] = make(map[string]*domain.Webhook)
	}
	s.byUser[stored.UserID][stored.Event] = &stored

	c := stored
	return &c, true
}

// ListByUser returns the user's subscriptions ordered by event name.
func (s *WebhookStore) ListByUser(userID string) []*domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*domain.Webhook, 0, len(s.byUser[userID]))
	for _, w := range s.byUser[userID] {
		c := *w
		out = append(out, &c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Event < out[j].Event })
	return out
}

// GetByUserEvent returns the subscription for a user+event pair, or nil.
func (s *WebhookStore) GetByUserEvent(userID, event string) *domain.Webhook {
	s.mu.RLock()
	defer s.mu.RUnlock()

	w, ok := s.byUser[userID][event]
	if !ok {
		return nil
	}
	c := *w
	return &c
}

// Delete removes one of the user's subscriptions. Subscriptions owned by
// another user are reported as domain.ErrWebhookNotFound.
func (s *WebhookStore) Delete(userID, webhookID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	w, ok := s.webhooks[webhookID]
	if !ok || w.UserID != userID {
		return domain.ErrWebhookNotFound
	}
	delete(s.webhooks, webhookID)

	events := s.byUser[w.UserID]
	delete(events, w.Event)
	if len(events) == 0 {
		delete(s.byUser, w.UserID)
	}
	return nil
}
