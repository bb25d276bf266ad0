package event

import "time"

// NotificationEvent is what downstream push/SMS consumers receive for every
// dispatched notification.
type NotificationEvent struct {
	NotificationID string         `json:"notification_id"`
	UserID         string         `json:"user_id"`
	Email          string         `json:"email,omitempty"`
	Type           string         `json:"type"`
	Title          string         `json:"title"`
	Body           string         `json:"body"`
	Data           map[string]any `json:"data,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
}
