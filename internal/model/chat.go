// Package model defines domain entities for the application.
package model

import "time"

// DefaultChatTitle is used when no user message is available to derive one.
const DefaultChatTitle = "New Chat"

// Chat is a titled conversation owned by exactly one account.
// UpdatedAt is refreshed on every turn appended to it and drives
// most-recently-active-first listing.
type Chat struct {
	ID        string    `json:"id"`
	OwnerID   string    `json:"user_id"`
	Title     string    `json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
