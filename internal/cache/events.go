package cache

import (
	"context"
	"log"
	"time"

	"github.com/go-redis/redis/v8"
)

// EventDeduper is a best-effort fast path in front of the
// webhook_events unique constraint: redelivered events are dropped
// without touching the database when Redis has seen their id recently.
// The database constraint stays authoritative, so a Redis outage only
// costs a constraint round-trip, never correctness.
type EventDeduper struct {
	client *redis.Client
	ttl    time.Duration
}

// NewEventDeduper creates a deduper. A nil client disables the fast
// path entirely.
func NewEventDeduper(client *redis.Client) *EventDeduper {
	return &EventDeduper{
		client: client,
		ttl:    24 * time.Hour,
	}
}

// FirstDelivery reports whether this is the first time the event id
// was seen. Errors degrade to "first delivery" so processing falls
// through to the database check.
func (d *EventDeduper) FirstDelivery(ctx context.Context, eventID string) bool {
	if d == nil || d.client == nil {
		return true
	}

	ok, err := d.client.SetNX(ctx, "webhook_event:"+eventID, 1, d.ttl).Result()
	if err != nil {
		log.Printf("Event dedup cache unavailable, falling back to database: %v", err)
		return true
	}
	return ok
}
