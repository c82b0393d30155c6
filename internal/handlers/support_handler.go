package handlers

import (
	"context"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/middleware"
	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type SupportHandler struct {
	support *services.SupportService
	log     *zap.Logger
}

func NewSupportHandler(support *services.SupportService, log *zap.Logger) *SupportHandler {
	return &SupportHandler{support: support, log: log}
}

// Submit handles the public contact form. Signed-in senders are recorded on
// the ticket.
func (h *SupportHandler) Submit(w http.ResponseWriter, r *http.Request) {
	var req models.SupportRequest
	if !bind(w, r, &req) {
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), 15*time.Second)
	defer cancel()

	ticket, err := h.support.Submit(ctx, middleware.GetUserID(r.Context()), clientIP(r), &req)
	if err != nil {
		writeError(w, h.log, "SubmitSupportRequest", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(map[string]string{
		"ticket": ticket,
	}))
}
