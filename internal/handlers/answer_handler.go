package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type AnswerHandler struct {
	answers *services.AnswerService
	log     *zap.Logger
}

func NewAnswerHandler(answers *services.AnswerService, log *zap.Logger) *AnswerHandler {
	return &AnswerHandler{answers: answers, log: log}
}

func (h *AnswerHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateAnswerRequest
	if !bind(w, r, &req) {
		return
	}

	a, err := h.answers.Post(r.Context(), user.ID, &req)
	if err != nil {
		writeError(w, h.log, "CreateAnswer", err)
		return
	}
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(a))
}

func (h *AnswerHandler) ListByQuestion(w http.ResponseWriter, r *http.Request) {
	list, err := h.answers.ListByQuestion(r.Context(), chi.URLParam(r, "questionId"))
	if err != nil {
		writeError(w, h.log, "ListAnswers", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *AnswerHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteUp)
}

func (h *AnswerHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteDown)
}

func (h *AnswerHandler) vote(w http.ResponseWriter, r *http.Request, dir models.VoteDirection) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	a, err := h.answers.Vote(r.Context(), user.ID, chi.URLParam(r, "id"), dir)
	if err != nil {
		writeError(w, h.log, "VoteAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Vote recorded", a))
}

func (h *AnswerHandler) Accept(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	a, err := h.answers.Accept(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "AcceptAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Answer accepted", a))
}

func (h *AnswerHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	a, err := h.answers.Delete(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "DeleteAnswer", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Answer deleted successfully", map[string]string{"id": a.ID}))
}
