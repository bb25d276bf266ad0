package models

import utils "rental-service/shared/utils"

type Notification struct {
	ID        string           `json:"id" db:"id"`
	UserID    string           `json:"user_id" db:"user_id"`
	Type      NotificationType `json:"type" db:"type"`
	Title     string           `json:"title" db:"title"`
	Body      string           `json:"body" db:"body"`
	Data      utils.JSONMap    `json:"data,omitempty" db:"data"`
	IsRead    bool             `json:"is_read" db:"is_read"`
	EmailSent bool             `json:"email_sent" db:"email_sent"`
	CreatedAt int64            `json:"created_at" db:"created_at"`
	ReadAt    *int64           `json:"read_at,omitempty" db:"read_at"`
}

// Message is a notification before it is addressed to a recipient.
type Message struct {
	Type  NotificationType
	Title string
	Body  string
	Data  map[string]any
}
