package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type ReportHandler struct {
	reports *services.ReportService
	log     *zap.Logger
}

func NewReportHandler(reports *services.ReportService, log *zap.Logger) *ReportHandler {
	return &ReportHandler{reports: reports, log: log}
}

func (h *ReportHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateReportRequest
	if !bind(w, r, &req) {
		return
	}

	rep, err := h.reports.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeError(w, h.log, "CreateReport", err)
		return
	}
	h.log.Info("report filed", zap.String("report_id", rep.ID), zap.String("reporter_id", user.ID))
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(rep))
}

func (h *ReportHandler) List(w http.ResponseWriter, r *http.Request) {
	status := models.ReportStatus(r.URL.Query().Get("status"))
	if status != "" && !status.Valid() {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid status filter"))
		return
	}
	list, err := h.reports.List(r.Context(), status)
	if err != nil {
		writeError(w, h.log, "ListReports", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *ReportHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateReportRequest
	if !bind(w, r, &req) {
		return
	}
	rep, err := h.reports.UpdateStatus(r.Context(), chi.URLParam(r, "id"), req.Status)
	if err != nil {
		writeError(w, h.log, "UpdateReport", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(rep))
}

func (h *ReportHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req models.ResolveReportRequest
	if !bind(w, r, &req) {
		return
	}
	rep, err := h.reports.Resolve(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, "ResolveReport", err)
		return
	}
	h.log.Info("report resolved", zap.String("report_id", rep.ID), zap.String("action", string(req.Action)))
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Report resolved", rep))
}

func (h *ReportHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.reports.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, "DeleteReport", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Report deleted successfully"))
}
