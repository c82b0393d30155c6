package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type AdminHandler struct {
	admin *services.AdminService
	log   *zap.Logger
}

func NewAdminHandler(admin *services.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{admin: admin, log: log}
}

func (h *AdminHandler) Stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.admin.Stats(r.Context())
	if err != nil {
		writeError(w, h.log, "AdminStats", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(stats))
}

func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	list, err := h.admin.ListUsers(r.Context(), queryInt(r, "limit", 0))
	if err != nil {
		writeError(w, h.log, "AdminListUsers", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

type banRequest struct {
	Message string `json:"message"`
}

func (h *AdminHandler) Ban(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}

	// The body is optional.
	var req banRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return
	}

	userID := chi.URLParam(r, "id")
	user, err := h.admin.Ban(r.Context(), admin, userID, req.Message)
	if err != nil {
		writeError(w, h.log, "BanUser", err)
		return
	}
	h.log.Warn("user banned by admin", zap.String("user_id", userID), zap.String("admin_id", admin.ID))
	writeJSON(w, http.StatusOK, models.NewMessageResponse("User banned", user))
}

func (h *AdminHandler) Unban(w http.ResponseWriter, r *http.Request) {
	user, err := h.admin.Unban(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "UnbanUser", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("User unbanned", user))
}

func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), services.DefaultAccountTimeout)
	defer cancel()

	res, err := h.admin.DeleteUser(ctx, admin, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "DeleteUser", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("User deleted successfully", res))
}

func (h *AdminHandler) SendNotice(w http.ResponseWriter, r *http.Request) {
	var req models.SendNoticeRequest
	if !bind(w, r, &req) {
		return
	}
	a, err := h.admin.SendNotice(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, "SendNotice", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(a))
}

func (h *AdminHandler) DeleteQuestion(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, err := h.admin.DeleteQuestion(r.Context(), admin, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "AdminDeleteQuestion", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Question deleted successfully", map[string]string{"id": q.ID}))
}

func (h *AdminHandler) DeleteAnswer(w http.ResponseWriter, r *http.Request) {
	admin, ok := currentUser(w, r)
	if !ok {
		return
	}
	a, err := h.admin.DeleteAnswer(r.Context(), admin, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "AdminDeleteAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Answer deleted successfully", map[string]string{"id": a.ID}))
}
