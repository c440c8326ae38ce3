package handler

import (
	"log/slog"
	"net/http"

	"github.com/mtaani/soko/internal/service"
)

// AdminHandler serves the moderation dashboard endpoints.
type AdminHandler struct {
	listings service.ListingService
	logger   *slog.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(listings service.ListingService, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{listings: listings, logger: logger}
}

// ModerationCounts handles GET /admin/moderation/counts. The counts are
// recomputed from listing state on every call.
func (h *AdminHandler) ModerationCounts(w http.ResponseWriter, r *http.Request) {
	counts, err := h.listings.ModerationCounts(r.Context())
	if err != nil {
		ErrorResponse(w, r, h.logger, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]int64{
		"pending":  counts.Pending,
		"active":   counts.Active,
		"archived": counts.Archived,
		"flagged":  counts.Flagged,
	})
}
