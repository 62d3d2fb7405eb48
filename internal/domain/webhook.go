package domain

import "time"

// Webhook event types.
const (
	EventOrderCreated  = "order.created"
	EventOrderExecuted = "order.executed"
	EventOrderCanceled = "order.canceled"
	EventOrderDeleted  = "order.deleted"
)

// Webhook represents a user's subscription to an event notification.
type Webhook struct {
	WebhookID string
	UserID    string
	Event     string
	URL       string
	CreatedAt time.Time
	UpdatedAt time.Time
}
