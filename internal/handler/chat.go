package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/handler/dto"
	"github.com/parley/parley/internal/model"
	"github.com/parley/parley/internal/service"
)

// ChatHandler handles chat management endpoints.
type ChatHandler struct {
	svc    *service.ChatService
	logger *slog.Logger
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(svc *service.ChatService, logger *slog.Logger) *ChatHandler {
	return &ChatHandler{svc: svc, logger: logger}
}

// List handles GET /api/chats. Chats are returned most recently active
// first and scoped to the caller.
func (h *ChatHandler) List(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())

	chats, err := h.svc.ListChats(r.Context(), principal)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OK(dto.ToChatListResponse(chats)))
}

// Create handles POST /api/chats.
func (h *ChatHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	chat, err := h.svc.CreateChat(r.Context(), principal, req.Title)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("chat_created", "chat_id", chat.ID)

	writeJSON(w, http.StatusCreated, dto.OK(dto.CreateChatResponse{ChatID: chat.ID}))
}

// Get handles GET /api/chats/{id}.
func (h *ChatHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	chat, err := h.svc.GetChat(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OK(dto.ToChatResponse(chat)))
}

// Rename handles PATCH /api/chats/{id}.
func (h *ChatHandler) Rename(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	var req dto.RenameChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	chat, err := h.svc.RenameChat(r.Context(), principal, id, req.Title)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("chat_renamed", "chat_id", chat.ID)

	writeJSON(w, http.StatusOK, dto.OK(dto.ToChatResponse(chat)))
}

// Delete handles DELETE /api/chats/{id}. The chat's messages go with it.
func (h *ChatHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	if err := h.svc.DeleteChat(r.Context(), principal, id); err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("chat_deleted", "chat_id", id)

	writeJSON(w, http.StatusOK, dto.OK(map[string]string{"id": id}))
}

// SendMessage handles POST /api/chats/{id}/messages. It appends a user
// turn to an existing chat and returns the assistant's buffered reply.
func (h *ChatHandler) SendMessage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	var req dto.SendMessageRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	exchange := []*model.Message{{Role: model.RoleUser, Content: req.Content}}
	result, err := h.svc.SubmitTurn(r.Context(), principal, id, exchange)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OK(dto.ExchangeResponse{
		UserMessage: dto.ToMessageResponse(result.UserMessage),
		AIResponse:  dto.ToMessageResponse(result.Reply),
	}))
}

// ListMessages handles GET /api/chats/{id}/messages. Messages come back
// in conversation order, oldest first.
func (h *ChatHandler) ListMessages(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Chat ID is required")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	messages, err := h.svc.ListMessages(r.Context(), principal, id)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OK(dto.ToMessageListResponse(messages)))
}
