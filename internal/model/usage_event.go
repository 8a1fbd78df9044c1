// Package model defines domain entities for the application.
package model

import "time"

// Exchange modes recorded in usage events.
const (
	ModeBuffered  = "buffered"
	ModeStreaming = "streaming"
)

// UsageEvent records one completed orchestrated exchange for the
// usage pipeline. EventID is assigned at publish time and doubles as
// the idempotency key for batch inserts.
type UsageEvent struct {
	ID              string
	EventID         string
	ChatID          string
	OwnerID         string
	Mode            string
	PromptChars     int
	CompletionChars int
	Fragments       int
	LatencyMs       int64
	OccurredAt      time.Time
}
