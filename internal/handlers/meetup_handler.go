package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type MeetupHandler struct {
	meetups *services.MeetupService
	log     *zap.Logger
}

func NewMeetupHandler(meetups *services.MeetupService, log *zap.Logger) *MeetupHandler {
	return &MeetupHandler{meetups: meetups, log: log}
}

func (h *MeetupHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateMeetupRequest
	if !bind(w, r, &req) {
		return
	}

	m, err := h.meetups.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeError(w, h.log, "CreateMeetup", err)
		return
	}
	h.log.Info("meetup created", zap.String("meetup_id", m.ID), zap.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(m))
}

func (h *MeetupHandler) Get(w http.ResponseWriter, r *http.Request) {
	m, err := h.meetups.GetByID(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "GetMeetup", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(m))
}

func (h *MeetupHandler) Update(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.UpdateMeetupRequest
	if !bind(w, r, &req) {
		return
	}

	m, err := h.meetups.Update(r.Context(), user.ID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeError(w, h.log, "UpdateMeetup", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(m))
}

func (h *MeetupHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	if err := h.meetups.Delete(r.Context(), user, chi.URLParam(r, "id")); err != nil {
		writeError(w, h.log, "DeleteMeetup", err)
		return
	}
	writeJSON(w, http.StatusOK, messageResponse("Meetup deleted successfully"))
}

func (h *MeetupHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.meetups.Mine(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "MyMeetups", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *MeetupHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err1 := strconv.ParseFloat(query.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(query.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("lat and lng are required"))
		return
	}
	radius, _ := strconv.ParseFloat(query.Get("radius"), 64)

	list, err := h.meetups.Nearby(r.Context(), lat, lng, radius)
	if err != nil {
		writeError(w, h.log, "ListMeetups", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *MeetupHandler) Search(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	lat, err1 := strconv.ParseFloat(query.Get("lat"), 64)
	lng, err2 := strconv.ParseFloat(query.Get("lng"), 64)
	if err1 != nil || err2 != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("lat and lng are required"))
		return
	}
	radius, _ := strconv.ParseFloat(query.Get("radius"), 64)

	list, err := h.meetups.Search(r.Context(), lat, lng, radius, query.Get("q"))
	if err != nil {
		writeError(w, h.log, "SearchMeetups", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *MeetupHandler) Bounds(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	minLat, err1 := strconv.ParseFloat(query.Get("minLat"), 64)
	maxLat, err2 := strconv.ParseFloat(query.Get("maxLat"), 64)
	minLng, err3 := strconv.ParseFloat(query.Get("minLng"), 64)
	maxLng, err4 := strconv.ParseFloat(query.Get("maxLng"), 64)
	if err1 != nil || err2 != nil || err3 != nil || err4 != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("minLat, maxLat, minLng and maxLng are required"))
		return
	}
	if minLat > maxLat || minLng > maxLng {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid bounds"))
		return
	}

	b := models.Bounds{MinLat: minLat, MaxLat: maxLat, MinLng: minLng, MaxLng: maxLng}
	list, err := h.meetups.InBounds(r.Context(), b)
	if err != nil {
		writeError(w, h.log, "MeetupsByBounds", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *MeetupHandler) Attend(w http.ResponseWriter, r *http.Request) {
	h.setAttendance(w, r, true)
}

func (h *MeetupHandler) Unattend(w http.ResponseWriter, r *http.Request) {
	h.setAttendance(w, r, false)
}

func (h *MeetupHandler) setAttendance(w http.ResponseWriter, r *http.Request, attending bool) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	m, err := h.meetups.SetAttendance(r.Context(), user.ID, chi.URLParam(r, "id"), attending)
	if err != nil {
		writeError(w, h.log, "MeetupAttendance", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(m))
}
