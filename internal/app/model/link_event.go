package model

import "time"

// LinkCreatedEvent announces a newly issued link id to every instance.
type LinkCreatedEvent struct {
	ID        string    `json:"id"`
	ExpiresAt time.Time `json:"expires_at"`
	Instance  string    `json:"instance"`
}

const (
	LinkStreamName     = "LINKS"
	LinkCreatedSubject = "links.created"
	// LinkStreamMaxAge covers the longest expiry preset.
	LinkStreamMaxAge   = 72 * time.Hour
	LinkStreamMaxBytes = 1024 * 1024 * 64 // 64MB
)
