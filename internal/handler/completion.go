package handler

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/handler/dto"
	"github.com/parley/parley/internal/service"
)

// CompletionHandler handles completion turns, buffered and streamed.
type CompletionHandler struct {
	svc    *service.ChatService
	logger *slog.Logger
}

// NewCompletionHandler creates a new CompletionHandler.
func NewCompletionHandler(svc *service.ChatService, logger *slog.Logger) *CompletionHandler {
	return &CompletionHandler{svc: svc, logger: logger}
}

// Complete handles POST /api/chat. The full reply is returned in one
// bare {content, chat_id} response once the provider finishes.
func (h *CompletionHandler) Complete(w http.ResponseWriter, r *http.Request) {
	var req dto.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	if req.UserID == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}
	if principal == nil || req.UserID != principal.SubjectID {
		writeError(w, http.StatusForbidden, "Access denied")
		return
	}

	result, err := h.svc.SubmitTurn(r.Context(), principal, req.ChatID, dto.ToModelMessages(req.Messages))
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.CompletionResponse{
		Content: result.Reply.Content,
		ChatID:  result.ChatID,
	})
}

// Stream handles POST /api/chat/stream. Reply fragments are forwarded as
// server-sent events while the provider produces them. Authenticated
// callers get a persisted turn; anonymous callers get a transient one.
func (h *CompletionHandler) Stream(w http.ResponseWriter, r *http.Request) {
	var req dto.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	messages := dto.ToModelMessages(req.Messages)

	var (
		stream *service.TurnStream
		err    error
	)
	if principal := auth.PrincipalFromContext(r.Context()); principal != nil {
		stream, err = h.svc.SubmitTurnStream(r.Context(), principal, req.ChatID, messages)
	} else {
		stream, err = h.svc.TransientStream(r.Context(), messages)
	}
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("X-Accel-Buffering", "no")
	if stream.ChatID != "" {
		w.Header().Set("X-Chat-ID", stream.ChatID)
	}

	// The server's write timeout covers buffered responses; a completion
	// stream stays open for as long as the provider keeps producing.
	rc := http.NewResponseController(w)
	if err := rc.SetWriteDeadline(time.Time{}); err != nil {
		h.logger.Debug("clearing write deadline not supported", "error", err)
	}

	w.WriteHeader(http.StatusOK)
	_ = rc.Flush()

	for fragment := range stream.Fragments {
		if _, err := fmt.Fprintf(w, "data: %s\n\n", fragment); err != nil {
			// Client went away; the service persists the partial reply.
			h.logger.Debug("stream write failed", "chat_id", stream.ChatID, "error", err)
			return
		}
		_ = rc.Flush()
	}
}
