// Package service provides business logic for the application.
package service

import "errors"

// Service errors.
var (
	ErrForbidden       = errors.New("subject does not own this resource")
	ErrChatNotFound    = errors.New("chat not found")
	ErrAccountNotFound = errors.New("account not found")
	ErrEmptyContent    = errors.New("message content must not be empty")
	ErrNoMessages      = errors.New("chat has no messages")
	ErrEmptyCompletion = errors.New("assistant returned an empty reply")
	ErrUpstream        = errors.New("completion provider failed")
)
