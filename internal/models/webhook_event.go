package models

import "time"

// WebhookEvent journals every inbound payment-processor event by its
// external id. The unique index makes redelivered events no-ops: the
// handler inserts before processing and skips when the row already
// exists. Rows are kept for audit.
type WebhookEvent struct {
	Base
	EventID     string     `gorm:"type:varchar(100);uniqueIndex;not null" json:"event_id"`
	Type        string     `gorm:"type:varchar(100);not null" json:"type"`
	ProcessedAt *time.Time `json:"processed_at,omitempty"`
}
