package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type UserHandler struct {
	users    *services.UserService
	notifier *services.Notifier
	log      *zap.Logger
}

func NewUserHandler(users *services.UserService, notifier *services.Notifier, log *zap.Logger) *UserHandler {
	return &UserHandler{users: users, notifier: notifier, log: log}
}

func (h *UserHandler) Profile(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(user))
}

func (h *UserHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateUserRequest
	if !bind(w, r, &req) {
		return
	}

	updated, err := h.users.Update(r.Context(), user, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, "UpdateUser", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(updated))
}

func (h *UserHandler) Stats(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	stats, err := h.users.Stats(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "UserStats", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(stats))
}

func (h *UserHandler) Bookmarks(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.users.Bookmarks(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "Bookmarks", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *UserHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	list, err := h.users.Leaderboard(r.Context(), queryInt(r, "limit", services.DefaultLeaderboardSize))
	if err != nil {
		writeError(w, h.log, "Leaderboard", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *UserHandler) Activities(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.notifier.List(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "Activities", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *UserHandler) MarkActivityRead(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.notifier.MarkRead(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, "MarkActivityRead", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Activity marked as read"))
}
