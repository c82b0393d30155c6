package handlers

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type QuestionHandler struct {
	questions *services.QuestionService
	log       *zap.Logger
}

func NewQuestionHandler(questions *services.QuestionService, log *zap.Logger) *QuestionHandler {
	return &QuestionHandler{questions: questions, log: log}
}

func (h *QuestionHandler) List(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := models.QuestionFilter{
		Tag:    strings.ToLower(strings.TrimSpace(query.Get("tag"))),
		UserID: query.Get("user"),
		Search: strings.TrimSpace(query.Get("search")),
		Limit:  queryInt(r, "limit", 0),
		Skip:   queryInt(r, "skip", 0),
	}

	list, err := h.questions.List(r.Context(), filter)
	if err != nil {
		writeError(w, h.log, "ListQuestions", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *QuestionHandler) Get(w http.ResponseWriter, r *http.Request) {
	q, err := h.questions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "GetQuestion", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(q))
}

func (h *QuestionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}

	var req models.CreateQuestionRequest
	if !bind(w, r, &req) {
		return
	}

	q, err := h.questions.Ask(r.Context(), user.ID, &req)
	if err != nil {
		writeError(w, h.log, "CreateQuestion", err)
		return
	}
	h.log.Info("question created", zap.String("question_id", q.ID), zap.String("user_id", user.ID))
	writeJSON(w, http.StatusCreated, models.NewSuccessResponse(q))
}

func (h *QuestionHandler) Mine(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	list, err := h.questions.Mine(r.Context(), user.ID)
	if err != nil {
		writeError(w, h.log, "MyQuestions", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewSuccessResponse(list))
}

func (h *QuestionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, err := h.questions.Delete(r.Context(), user, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "DeleteQuestion", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Question deleted successfully", map[string]string{"id": q.ID}))
}

func (h *QuestionHandler) Upvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteUp)
}

func (h *QuestionHandler) Downvote(w http.ResponseWriter, r *http.Request) {
	h.vote(w, r, models.VoteDown)
}

func (h *QuestionHandler) vote(w http.ResponseWriter, r *http.Request, dir models.VoteDirection) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	q, err := h.questions.Vote(r.Context(), user.ID, chi.URLParam(r, "id"), dir)
	if err != nil {
		writeError(w, h.log, "VoteQuestion", err)
		return
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse("Vote recorded", q))
}

func (h *QuestionHandler) ToggleBookmark(w http.ResponseWriter, r *http.Request) {
	user, ok := currentUser(w, r)
	if !ok {
		return
	}
	res, err := h.questions.ToggleBookmark(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, h.log, "ToggleBookmark", err)
		return
	}
	msg := "Bookmark removed"
	if res.Bookmarked {
		msg = "Bookmark added"
	}
	writeJSON(w, http.StatusOK, models.NewMessageResponse(msg, res))
}
