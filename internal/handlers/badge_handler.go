package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type BadgeHandler struct {
	badges *services.BadgeService
	log    *zap.Logger
}

func NewBadgeHandler(badges *services.BadgeService, log *zap.Logger) *BadgeHandler {
	return &BadgeHandler{badges: badges, log: log}
}

func (h *BadgeHandler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.badges.List(r.Context())
	if err != nil {
		writeError(w, h.log, "ListBadges", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *BadgeHandler) ForUser(w http.ResponseWriter, r *http.Request) {
	list, err := h.badges.ForUser(r.Context(), chi.URLParam(r, "userId"))
	if err != nil {
		writeError(w, h.log, "UserBadges", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *BadgeHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateBadgeRequest
	if !bind(w, r, &req) {
		return
	}
	b, err := h.badges.Create(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, "CreateBadge", err)
		return
	}
	h.log.Info("badge created", zap.String("badge_id", b.ID), zap.String("name", b.Name))
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(b))
}
