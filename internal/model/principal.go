// Package model defines domain entities for the application.
package model

// Principal is the verified identity derived from a request's bearer
// credential: untrusted input, trusted output of the identity verifier.
type Principal struct {
	SubjectID   string `json:"sub"`
	Email       string `json:"email"`
	DisplayName string `json:"name,omitempty"`
	PhotoURL    string `json:"picture,omitempty"`
}
