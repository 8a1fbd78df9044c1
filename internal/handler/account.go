package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/handler/dto"
	"github.com/parley/parley/internal/service"
)

// AccountHandler handles account endpoints.
type AccountHandler struct {
	svc    *service.AccountService
	logger *slog.Logger
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(svc *service.AccountService, logger *slog.Logger) *AccountHandler {
	return &AccountHandler{svc: svc, logger: logger}
}

// Sync handles POST /api/auth/sync. It records the verified principal as
// an account, creating it on first sight and refreshing profile fields
// on every call.
func (h *AccountHandler) Sync(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Invalid or missing credentials")
		return
	}

	account, err := h.svc.SyncAccount(r.Context(), principal)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	h.logger.Info("account_synced", "subject_id", account.SubjectID)

	writeJSON(w, http.StatusOK, dto.OK(dto.ToAccountResponse(account)))
}

// Get handles GET /api/user/{uid}. Callers can only read their own record.
func (h *AccountHandler) Get(w http.ResponseWriter, r *http.Request) {
	uid := chi.URLParam(r, "uid")
	if uid == "" {
		writeError(w, http.StatusBadRequest, "User ID is required")
		return
	}

	principal := auth.PrincipalFromContext(r.Context())
	account, err := h.svc.GetAccount(r.Context(), principal, uid)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OK(dto.ToAccountResponse(account)))
}
