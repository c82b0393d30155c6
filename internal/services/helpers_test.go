package services

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

type testEnv struct {
	store      *storage.MemoryStore
	reputation *ReputationService
	notifier   *Notifier
	moderation *ModerationActions
	questions  *QuestionService
	answers    *AnswerService
	reports    *ReportService
	accounts   *AccountService
	admin      *AdminService
	badges     *BadgeService
	cache      *MemoryCache
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	log := zap.NewNop()
	store := storage.NewMemoryStore()

	env := &testEnv{store: store, cache: NewMemoryCache()}
	env.reputation = NewReputationService(store, log)
	env.notifier = NewNotifier(store, nil, log)
	env.moderation = NewModerationActions(store, env.notifier, env.cache, DefaultBanStrikes, log)
	env.questions = NewQuestionService(store, env.reputation, log)
	env.answers = NewAnswerService(store, env.reputation, log)
	env.reports = NewReportService(store, env.questions, env.answers, env.notifier, env.moderation, log)
	env.accounts = NewAccountService(store, env.questions, env.answers, env.cache, log)
	env.admin = NewAdminService(store, env.accounts, env.questions, env.answers, env.notifier, env.moderation, log)
	env.badges = NewBadgeService(store, log)
	return env
}

func (e *testEnv) createUser(t *testing.T, name string) *models.User {
	t.Helper()
	u := &models.User{
		ID:        uuid.New().String(),
		Username:  name,
		Email:     name + "@example.com",
		Role:      models.RoleUser,
		Badges:    []string{},
		CreatedAt: time.Now().UTC(),
	}
	require.NoError(t, e.store.CreateUser(context.Background(), u))
	return u
}

func (e *testEnv) createAdmin(t *testing.T, name string) *models.User {
	t.Helper()
	u := e.createUser(t, name)
	role := models.RoleAdmin
	updated, err := e.store.UpdateUser(context.Background(), u.ID, models.UserUpdate{Role: &role})
	require.NoError(t, err)
	return updated
}

func (e *testEnv) user(t *testing.T, id string) *models.User {
	t.Helper()
	u, err := e.store.GetUser(context.Background(), id)
	require.NoError(t, err)
	return u
}

func (e *testEnv) points(t *testing.T, id string) int {
	t.Helper()
	return e.user(t, id).Points
}

func (e *testEnv) ask(t *testing.T, userID string) *models.Question {
	t.Helper()
	q, err := e.questions.Ask(context.Background(), userID, &models.CreateQuestionRequest{
		Title:       "How do goroutines get scheduled?",
		Description: "Trying to understand the runtime scheduler in detail.",
		Tags:        []string{"Go", " runtime ", "go"},
	})
	require.NoError(t, err)
	return q
}

func (e *testEnv) answer(t *testing.T, userID, questionID string) *models.Answer {
	t.Helper()
	a, err := e.answers.Post(context.Background(), userID, &models.CreateAnswerRequest{
		QuestionID: questionID,
		Text:       "The runtime uses an M:N scheduler with work stealing.",
	})
	require.NoError(t, err)
	return a
}

func (e *testEnv) addBadge(t *testing.T, name string, points int) *models.Badge {
	t.Helper()
	b, err := e.badges.Create(context.Background(), &models.CreateBadgeRequest{Name: name, PointsRequired: points})
	require.NoError(t, err)
	return b
}
