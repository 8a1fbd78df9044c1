// Package model defines domain entities for the application.
package model

import "time"

// Role tags a message with its author kind.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// IsPersistable reports whether the role may be stored as a turn.
// Only user and assistant turns are persisted; system instructions
// exist solely in provider prompts.
func (r Role) IsPersistable() bool {
	return r == RoleUser || r == RoleAssistant
}

// Message is one immutable role-tagged turn within a chat.
type Message struct {
	ID        string    `json:"id"`
	ChatID    string    `json:"chat_id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}
