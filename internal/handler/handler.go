// Package handler provides HTTP request handlers.
package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/parley/parley/internal/handler/dto"
	"github.com/parley/parley/internal/service"
)

// writeJSON writes a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		slog.Error("failed to encode response", "error", err)
	}
}

// writeError writes an error envelope with the given status code.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, dto.Error(message))
}

// writeServiceError maps service errors to HTTP responses.
func writeServiceError(w http.ResponseWriter, logger *slog.Logger, err error) {
	switch {
	case errors.Is(err, service.ErrForbidden):
		writeError(w, http.StatusForbidden, "Access denied")
	case errors.Is(err, service.ErrChatNotFound):
		writeError(w, http.StatusNotFound, "Chat not found")
	case errors.Is(err, service.ErrAccountNotFound):
		writeError(w, http.StatusNotFound, "User not found")
	case errors.Is(err, service.ErrEmptyContent):
		writeError(w, http.StatusBadRequest, "Message content is required")
	case errors.Is(err, service.ErrNoMessages):
		writeError(w, http.StatusBadRequest, "At least one message is required")
	case errors.Is(err, service.ErrEmptyCompletion):
		writeError(w, http.StatusBadGateway, "Completion provider returned no content")
	case errors.Is(err, service.ErrUpstream):
		// Provider failures carry their upstream message to the caller
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		logger.Error("internal_error", "error", err)
		writeError(w, http.StatusInternalServerError, "An internal error occurred")
	}
}

// Handler holds fallback handlers for unmatched routes.
type Handler struct{}

// New creates a new Handler.
func New() *Handler {
	return &Handler{}
}

// NotFound handles unmatched routes.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusNotFound, "Resource not found")
}

// MethodNotAllowed handles unsupported methods on matched routes.
func (h *Handler) MethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
}
