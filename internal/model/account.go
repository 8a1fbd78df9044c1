// Package model defines domain entities for the application.
package model

import "time"

// Account represents a user account keyed by the identity provider's
// stable subject id. Created on first successful credential verification.
type Account struct {
	SubjectID   string    `json:"uid"`
	Email       string    `json:"email"`
	DisplayName string    `json:"display_name,omitempty"`
	PhotoURL    string    `json:"photo_url,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	LastLogin   time.Time `json:"last_login"`
}
