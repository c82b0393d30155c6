package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/middleware"
	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

type validatable interface {
	Validate() map[string]string
}

// bind decodes the JSON body into req and validates it. On failure the
// response has already been written.
func bind(w http.ResponseWriter, r *http.Request, req validatable) bool {
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		writeJSON(w, http.StatusBadRequest, models.NewErrorResponse("Invalid request body"))
		return false
	}
	if errs := req.Validate(); len(errs) > 0 {
		writeJSON(w, http.StatusBadRequest, models.NewValidationErrorResponse(errs))
		return false
	}
	return true
}

var errorStatuses = []struct {
	err    error
	status int
}{
	{services.ErrSelfVote, http.StatusBadRequest},
	{services.ErrBadgeNameless, http.StatusBadRequest},
	{services.ErrInvalidImage, http.StatusBadRequest},
	{services.ErrCaptchaFailed, http.StatusBadRequest},
	{services.ErrInvalidCredentials, http.StatusUnauthorized},
	{services.ErrForbidden, http.StatusForbidden},
	{services.ErrUserBanned, http.StatusForbidden},
	{services.ErrUserNotFound, http.StatusNotFound},
	{services.ErrQuestionNotFound, http.StatusNotFound},
	{services.ErrAnswerNotFound, http.StatusNotFound},
	{services.ErrReportNotFound, http.StatusNotFound},
	{services.ErrActivityNotFound, http.StatusNotFound},
	{services.ErrMeetupNotFound, http.StatusNotFound},
	{services.ErrImageNotFound, http.StatusNotFound},
	{services.ErrEmailExists, http.StatusConflict},
	{services.ErrAlreadyVoted, http.StatusConflict},
	{services.ErrBadgeExists, http.StatusConflict},
	{services.ErrImageRejected, http.StatusUnprocessableEntity},
	{services.ErrSupportUnavailable, http.StatusServiceUnavailable},
}

// writeError maps domain errors to a status and flat message. Anything
// unrecognised is logged and reported as a generic 500.
func writeError(w http.ResponseWriter, log *zap.Logger, op string, err error) {
	for _, e := range errorStatuses {
		if errors.Is(err, e.err) {
			writeJSON(w, e.status, models.NewErrorResponse(capitalize(e.err.Error())))
			return
		}
	}
	log.Error("request failed", zap.String("handler", op), zap.Error(err))
	writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Internal server error"))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	if c := s[0]; c >= 'a' && c <= 'z' {
		return string(c-'a'+'A') + s[1:]
	}
	return s
}

// currentUser returns the authenticated user or writes 401.
func currentUser(w http.ResponseWriter, r *http.Request) (*models.User, bool) {
	u := middleware.GetUser(r.Context())
	if u == nil {
		writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Unauthorized"))
		return nil, false
	}
	return u, true
}

func queryInt(r *http.Request, key string, def int) int {
	v, err := strconv.Atoi(r.URL.Query().Get(key))
	if err != nil || v < 0 {
		return def
	}
	return v
}

func messageResponse(msg string) models.APIResponse {
	return models.APIResponse{Success: true, Message: msg}
}
