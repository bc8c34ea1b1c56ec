package models

import "time"

// Activity is an entry of the platform activity feed.
type Activity struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`  // e.g., "event.complete", "reward.redeem"
	Level     string    `json:"level"` // e.g., "info", "warn", "error"
	Message   string    `json:"message"`
	EventID   *string   `json:"eventId,omitempty"` // Nullable for platform-wide entries
	CreatedAt time.Time `json:"createdAt"`
}
