package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/parley/parley/internal/auth"
	"github.com/parley/parley/internal/handler/dto"
)

// UsageReader exposes aggregated usage counters.
type UsageReader interface {
	OwnerTotals(ctx context.Context, ownerID string) (completions, promptChars, completionChars int64, err error)
}

// UsageHandler serves per-caller usage aggregates.
type UsageHandler struct {
	reader UsageReader
	logger *slog.Logger
}

// NewUsageHandler creates a new UsageHandler.
func NewUsageHandler(reader UsageReader, logger *slog.Logger) *UsageHandler {
	return &UsageHandler{reader: reader, logger: logger}
}

// Totals handles GET /api/usage. The caller sees only their own totals.
func (h *UsageHandler) Totals(w http.ResponseWriter, r *http.Request) {
	principal := auth.PrincipalFromContext(r.Context())
	if principal == nil {
		writeError(w, http.StatusUnauthorized, "Invalid or missing credentials")
		return
	}

	completions, promptChars, completionChars, err := h.reader.OwnerTotals(r.Context(), principal.SubjectID)
	if err != nil {
		writeServiceError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, dto.OK(dto.UsageTotalsResponse{
		Completions:     completions,
		PromptChars:     promptChars,
		CompletionChars: completionChars,
	}))
}
