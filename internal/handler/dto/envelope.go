// Package dto provides Data Transfer Objects for API requests and responses.
package dto

// Envelope is the common response wrapper. Success responses carry Data,
// error responses carry Message.
type Envelope struct {
	Success bool   `json:"success"`
	Data    any    `json:"data,omitempty"`
	Message string `json:"message,omitempty"`
}

// OK wraps data in a success envelope.
func OK(data any) Envelope {
	return Envelope{Success: true, Data: data}
}

// Error wraps a message in a failure envelope.
func Error(message string) Envelope {
	return Envelope{Success: false, Message: message}
}
