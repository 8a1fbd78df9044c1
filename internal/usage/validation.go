package usage

import (
	"errors"
	"fmt"
	"time"

	"github.com/parley/parley/internal/model"
)

// Validation errors for usage event payloads.
var (
	ErrMissingEventID  = errors.New("event id is required")
	ErrMissingChatID   = errors.New("chat id is required")
	ErrMissingOwnerID  = errors.New("owner id is required")
	ErrInvalidMode     = errors.New("mode must be buffered or streaming")
	ErrNegativeCounter = errors.New("counters must not be negative")
	ErrInvalidTime     = errors.New("occurred_at is missing or unreasonable")
)

// maxClockSkew tolerates producer clocks slightly ahead of ours.
const maxClockSkew = 5 * time.Minute

// ValidatePayload rejects malformed usage events before they reach
// storage. A rejected payload goes to the dead-letter stream.
func ValidatePayload(p EventPayload) error {
	if p.EventID == "" {
		return ErrMissingEventID
	}
	if p.ChatID == "" {
		return ErrMissingChatID
	}
	if p.OwnerID == "" {
		return ErrMissingOwnerID
	}
	if p.Mode != model.ModeBuffered && p.Mode != model.ModeStreaming {
		return fmt.Errorf("%w: %q", ErrInvalidMode, p.Mode)
	}
	if p.PromptChars < 0 || p.CompletionChars < 0 || p.Fragments < 0 || p.LatencyMs < 0 {
		return ErrNegativeCounter
	}
	if p.OccurredAt <= 0 {
		return ErrInvalidTime
	}
	if time.UnixMilli(p.OccurredAt).After(time.Now().Add(maxClockSkew)) {
		return ErrInvalidTime
	}
	return nil
}
