package domain

import "time"

type RecipientType string

const (
	RecipientUser     RecipientType = "user"
	RecipientProvider RecipientType = "provider"
)

// NotificationPayload is what gets delivered: stored, pushed, and published
// on the recipient's realtime channel.
type NotificationPayload struct {
	Title string            `json:"title"`
	Body  string            `json:"body"`
	Type  string            `json:"type"`
	Data  map[string]string `json:"data,omitempty"`
}

type Notification struct {
	ID            string            `json:"id"`
	RecipientType RecipientType     `json:"recipient_type"`
	RecipientID   string            `json:"recipient_id"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	Type          string            `json:"type"`
	Data          map[string]string `json:"data,omitempty"`
	IsRead        bool              `json:"is_read"`
	CreatedAt     time.Time         `json:"created_at"`
}
