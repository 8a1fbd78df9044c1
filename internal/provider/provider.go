// Package provider talks to the upstream completion service.
package provider

import (
	"context"
	"errors"

	"github.com/parley/parley/internal/model"
)

// Common errors for completion operations.
var (
	// ErrEmptyCompletion indicates the upstream answered without any content.
	ErrEmptyCompletion = errors.New("empty completion from provider")
)

// Completer produces assistant replies from a conversation transcript.
type Completer interface {
	// Complete returns the full reply in one piece.
	Complete(ctx context.Context, messages []*model.Message) (string, error)
	// StreamCompletion returns the reply as a fragment stream.
	StreamCompletion(ctx context.Context, messages []*model.Message) (Stream, error)
}

// Stream yields completion fragments until io.EOF.
type Stream interface {
	// Recv returns the next non-empty fragment, or io.EOF when the
	// completion is finished.
	Recv() (string, error)
	// Close releases the underlying connection. Safe to call after EOF.
	Close() error
}
