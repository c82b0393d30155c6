package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/middleware"
	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
	"github.com/asktopedia/backend/internal/storage"
)

type envelope struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

type testServer struct {
	t      *testing.T
	store  *storage.MemoryStore
	issuer *middleware.TokenIssuer
	router http.Handler
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemoryStore()
	issuer := middleware.NewTokenIssuer("test-secret", time.Hour)

	reputation := services.NewReputationService(store, log)
	notifier := services.NewNotifier(store, nil, log)
	moderation := services.NewModerationActions(store, notifier, nil, services.DefaultBanStrikes, log)
	questions := services.NewQuestionService(store, reputation, log)
	answers := services.NewAnswerService(store, reputation, log)
	reports := services.NewReportService(store, questions, answers, notifier, moderation, log)
	accounts := services.NewAccountService(store, questions, answers, nil, log)
	admin := services.NewAdminService(store, accounts, questions, answers, notifier, moderation, log)
	users := services.NewUserService(store, reputation, log, services.UserServiceOptions{})
	support := services.NewSupportService(nil, nil, log)

	authn := middleware.NewAuthenticator(issuer, nil, store, log)
	authHandler := NewAuthHandler(users, issuer, log)
	questionHandler := NewQuestionHandler(questions, log)
	answerHandler := NewAnswerHandler(answers, log)
	reportHandler := NewReportHandler(reports, log)
	adminHandler := NewAdminHandler(admin, log)
	accountHandler := NewAccountHandler(accounts, log)
	userHandler := NewUserHandler(users, notifier, log)
	supportHandler := NewSupportHandler(support, log)

	r := chi.NewRouter()
	r.Get("/health", NewHealthHandler(nil, log).Health)
	r.Route("/api", func(r chi.Router) {
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Get("/questions", questionHandler.List)
		r.Get("/questions/{id}", questionHandler.Get)
		r.With(authn.Optional).Post("/support", supportHandler.Submit)

		r.Group(func(r chi.Router) {
			r.Use(authn.Middleware)
			r.Post("/questions", questionHandler.Create)
			r.Get("/questions/my-questions", questionHandler.Mine)
			r.Put("/questions/{id}/upvote", questionHandler.Upvote)
			r.Post("/answers", answerHandler.Create)
			r.Put("/answers/{id}/accept", answerHandler.Accept)
			r.Get("/users/profile", userHandler.Profile)
			r.Get("/users/activities", userHandler.Activities)
			r.Delete("/users/me", accountHandler.DeleteAccount)
			r.Post("/reports", reportHandler.Create)

			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireAdmin)
				r.Route("/admin", func(r chi.Router) {
					r.Put("/reports/{id}/resolve", reportHandler.Resolve)
					r.Delete("/users/{id}", adminHandler.DeleteUser)
				})
			})
		})
	})

	return &testServer{t: t, store: store, issuer: issuer, router: r}
}

func (s *testServer) do(method, path, token string, body interface{}) (*httptest.ResponseRecorder, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(s.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)

	var env envelope
	require.NoError(s.t, json.Unmarshal(rec.Body.Bytes(), &env), rec.Body.String())
	return rec, env
}

// register signs up a user and returns its session token and ID.
func (s *testServer) register(name string) (string, string) {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": name,
		"email":    name + "@example.com",
		"password": "hunter22",
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var auth models.AuthResponse
	require.NoError(s.t, json.Unmarshal(env.Data, &auth))
	return auth.Token, auth.User.ID
}

func (s *testServer) makeAdmin(userID string) {
	s.t.Helper()
	role := models.RoleAdmin
	_, err := s.store.UpdateUser(context.Background(), userID, models.UserUpdate{Role: &role})
	require.NoError(s.t, err)
}

func (s *testServer) ask(token string) string {
	s.t.Helper()
	rec, env := s.do(http.MethodPost, "/api/questions", token, map[string]interface{}{
		"title":       "How does the Go scheduler work?",
		"description": "Looking for a detailed explanation of goroutine scheduling.",
		"tags":        []string{"Go"},
	})
	require.Equal(s.t, http.StatusCreated, rec.Code, rec.Body.String())
	var q models.Question
	require.NoError(s.t, json.Unmarshal(env.Data, &q))
	return q.ID
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, env.Success)
}

func TestRegisterAndLogin(t *testing.T) {
	s := newTestServer(t)
	_, id := s.register("alice")

	rec, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"username": "alice2",
		"email":    "ALICE@example.com",
		"password": "hunter22",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email or username already registered", env.Message)

	rec, env = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "hunter22"})
	require.Equal(t, http.StatusOK, rec.Code)
	var auth models.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	assert.Equal(t, id, auth.User.ID)
	assert.NotContains(t, string(env.Data), "password")

	rec, _ = s.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "alice@example.com", "password": "nope"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_ValidationErrors(t *testing.T) {
	s := newTestServer(t)
	rec, env := s.do(http.MethodPost, "/api/auth/register", "", map[string]string{"username": "al", "email": "x"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Validation failed", env.Message)
	assert.Contains(t, env.Errors, "username")
	assert.Contains(t, env.Errors, "email")
	assert.Contains(t, env.Errors, "password")
}

func TestQuestionFlow(t *testing.T) {
	s := newTestServer(t)
	aliceTok, _ := s.register("alice")
	bobTok, _ := s.register("bob")

	rec, _ := s.do(http.MethodPost, "/api/questions", "", map[string]string{"title": "x"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	qID := s.ask(aliceTok)

	rec, env := s.do(http.MethodGet, "/api/questions/"+qID, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var detail models.QuestionWithAnswers
	require.NoError(t, json.Unmarshal(env.Data, &detail))
	assert.Equal(t, []string{"go"}, detail.Tags)

	rec, env = s.do(http.MethodGet, "/api/questions/my-questions", aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var mine []models.Question
	require.NoError(t, json.Unmarshal(env.Data, &mine))
	assert.Len(t, mine, 1)

	rec, _ = s.do(http.MethodPut, "/api/questions/"+qID+"/upvote", aliceTok, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	rec, _ = s.do(http.MethodPut, "/api/questions/"+qID+"/upvote", bobTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodPut, "/api/questions/"+qID+"/upvote", bobTok, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec, _ = s.do(http.MethodGet, "/api/questions/missing", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAcceptAnswer_OnlyAsker(t *testing.T) {
	s := newTestServer(t)
	aliceTok, _ := s.register("alice")
	bobTok, _ := s.register("bob")
	qID := s.ask(aliceTok)

	rec, env := s.do(http.MethodPost, "/api/answers", bobTok, map[string]string{
		"question_id": qID,
		"text":        "Work stealing across Ps.",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var a models.Answer
	require.NoError(t, json.Unmarshal(env.Data, &a))

	rec, _ = s.do(http.MethodPut, "/api/answers/"+a.ID+"/accept", bobTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(http.MethodPut, "/api/answers/"+a.ID+"/accept", aliceTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestReportResolution_AdminOnly(t *testing.T) {
	s := newTestServer(t)
	aliceTok, aliceID := s.register("alice")
	bobTok, _ := s.register("bob")
	adminTok, adminID := s.register("root")
	s.makeAdmin(adminID)
	qID := s.ask(aliceTok)

	rec, env := s.do(http.MethodPost, "/api/reports", bobTok, map[string]string{"question_id": qID, "reason": "spam"})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var rep models.Report
	require.NoError(t, json.Unmarshal(env.Data, &rep))

	path := "/api/admin/reports/" + rep.ID + "/resolve"
	rec, _ = s.do(http.MethodPut, path, bobTok, map[string]string{"action": "warn"})
	assert.Equal(t, http.StatusForbidden, rec.Code)

	rec, _ = s.do(http.MethodPut, path, adminTok, map[string]string{"action": "explode"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = s.do(http.MethodPut, path, adminTok, map[string]string{"action": "warn", "message": "Keep it civil."})
	assert.Equal(t, http.StatusOK, rec.Code)

	rec, env = s.do(http.MethodGet, "/api/users/activities", aliceTok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var activities []models.Activity
	require.NoError(t, json.Unmarshal(env.Data, &activities))
	require.Len(t, activities, 1)
	assert.Equal(t, "Keep it civil.", activities[0].Message)

	rec, _ = s.do(http.MethodDelete, "/api/admin/users/"+adminID, adminTok, nil)
	assert.Equal(t, http.StatusForbidden, rec.Code)
	rec, _ = s.do(http.MethodDelete, "/api/admin/users/"+aliceID, adminTok, nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	rec, _ = s.do(http.MethodGet, "/api/users/profile", aliceTok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestDeleteOwnAccount(t *testing.T) {
	s := newTestServer(t)
	tok, id := s.register("alice")
	qID := s.ask(tok)

	rec, env := s.do(http.MethodDelete, "/api/users/me", tok, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var res services.DeleteAccountResult
	require.NoError(t, json.Unmarshal(env.Data, &res))
	assert.Equal(t, id, res.UserID)
	assert.Equal(t, []string{qID}, res.QuestionIDs)

	rec, _ = s.do(http.MethodDelete, "/api/users/me", tok, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestSupport_Unavailable(t *testing.T) {
	s := newTestServer(t)
	rec, _ := s.do(http.MethodPost, "/api/support", "", map[string]string{
		"name":           "Alice",
		"email":          "alice@example.com",
		"message":        "Hello",
		"recaptchaToken": "tok",
	})
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)

	rec, _ = s.do(http.MethodPost, "/api/support", "", map[string]string{"name": "Alice"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWriteError(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{services.ErrQuestionNotFound, http.StatusNotFound},
		{errors.Join(errors.New("ctx"), services.ErrForbidden), http.StatusForbidden},
		{services.ErrImageRejected, http.StatusUnprocessableEntity},
		{errors.New("boom"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		writeError(rec, zap.NewNop(), "test", tc.err)
		assert.Equal(t, tc.status, rec.Code, tc.err.Error())
	}
}

func TestClientIP(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = "192.0.2.1:1234"
	assert.Equal(t, "192.0.2.1", clientIP(req))

	req.Header.Set("X-Forwarded-For", "203.0.113.7, 10.0.0.1")
	assert.Equal(t, "203.0.113.7", clientIP(req))

	req.Header.Set("X-Forwarded-For", "garbage")
	assert.Equal(t, "192.0.2.1", clientIP(req))
}

func TestQueryInt(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/?limit=5&skip=-1&bad=x", nil)
	assert.Equal(t, 5, queryInt(req, "limit", 0))
	assert.Equal(t, 7, queryInt(req, "skip", 7))
	assert.Equal(t, 3, queryInt(req, "bad", 3))
	assert.Equal(t, 9, queryInt(req, "missing", 9))
}
