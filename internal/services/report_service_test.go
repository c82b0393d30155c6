package services

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

func reportQuestion(t *testing.T, env *testEnv, reporterID, questionID string) *models.Report {
	t.Helper()
	r, err := env.reports.Create(context.Background(), reporterID, &models.CreateReportRequest{
		QuestionID: questionID,
		Reason:     models.ReasonOffensive,
		Details:    "  rude  ",
	})
	require.NoError(t, err)
	return r
}

func TestCreateReport(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "alice")
	reporter := env.createUser(t, "bob")
	q := env.ask(t, owner.ID)

	r := reportQuestion(t, env, reporter.ID, q.ID)
	assert.Equal(t, models.ReportPending, r.Status)
	assert.Equal(t, "rude", r.Details)

	_, err := env.reports.Create(context.Background(), reporter.ID, &models.CreateReportRequest{AnswerID: "missing", Reason: models.ReasonSpam})
	assert.ErrorIs(t, err, ErrAnswerNotFound)
}

func TestResolveReport_Dismiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	r := reportQuestion(t, env, env.createUser(t, "bob").ID, env.ask(t, owner.ID).ID)

	resolved, err := env.reports.Resolve(ctx, r.ID, &models.ResolveReportRequest{Action: models.ResolveDismiss})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, resolved.Status)

	activities, err := env.notifier.List(ctx, owner.ID)
	require.NoError(t, err)
	assert.Empty(t, activities)
	_, err = env.store.GetFlag(ctx, owner.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestResolveReport_Warn(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	q := env.ask(t, owner.ID)
	r := reportQuestion(t, env, env.createUser(t, "bob").ID, q.ID)

	resolved, err := env.reports.Resolve(ctx, r.ID, &models.ResolveReportRequest{Action: models.ResolveWarn, Message: "Be nice."})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, resolved.Status)

	activities, err := env.notifier.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, models.ActivityWarning, activities[0].Type)
	assert.Equal(t, "Be nice.", activities[0].Message)
	require.NotNil(t, activities[0].Content)
	assert.Equal(t, q.Title, activities[0].Content.Title)

	flag, err := env.store.GetFlag(ctx, owner.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, flag.Strikes)

	// Content stays in place.
	_, err = env.store.GetQuestion(ctx, q.ID)
	assert.NoError(t, err)
}

func TestResolveReport_DeleteContent(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	q := env.ask(t, owner.ID)
	r := reportQuestion(t, env, env.createUser(t, "bob").ID, q.ID)

	resolved, err := env.reports.Resolve(ctx, r.ID, &models.ResolveReportRequest{Action: models.ResolveDeleteContent})
	require.NoError(t, err)
	assert.Equal(t, models.ReportResolved, resolved.Status)

	_, err = env.store.GetQuestion(ctx, q.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = env.store.GetReport(ctx, r.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 0, env.points(t, owner.ID))

	activities, err := env.notifier.List(ctx, owner.ID)
	require.NoError(t, err)
	require.Len(t, activities, 1)
	assert.Equal(t, defaultRemoveMessage, activities[0].Message)
}

func TestResolveReport_DeleteAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	q := env.ask(t, asker.ID)
	a := env.answer(t, answerer.ID, q.ID)
	r, err := env.reports.Create(ctx, asker.ID, &models.CreateReportRequest{AnswerID: a.ID, Reason: models.ReasonSpam})
	require.NoError(t, err)

	_, err = env.reports.Resolve(ctx, r.ID, &models.ResolveReportRequest{Action: models.ResolveDeleteContent})
	require.NoError(t, err)

	_, err = env.store.GetAnswer(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	assert.Equal(t, 0, env.points(t, answerer.ID))
	assert.Equal(t, PointsAskQuestion, env.points(t, asker.ID))
}

func TestResolveReport_RepeatedWarningsBan(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	reporter := env.createUser(t, "bob")
	q := env.ask(t, owner.ID)

	for i := 0; i < DefaultBanStrikes; i++ {
		r := reportQuestion(t, env, reporter.ID, q.ID)
		_, err := env.reports.Resolve(ctx, r.ID, &models.ResolveReportRequest{Action: models.ResolveWarn})
		require.NoError(t, err)
	}

	assert.True(t, env.user(t, owner.ID).Banned)
	activities, err := env.notifier.List(ctx, owner.ID)
	require.NoError(t, err)
	var bans int
	for _, a := range activities {
		if a.Type == models.ActivityBan {
			bans++
			assert.True(t, strings.Contains(a.Message, "3 moderation strikes"))
		}
	}
	assert.Equal(t, 1, bans)
}

func TestResolveReport_NotFound(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.reports.Resolve(context.Background(), "missing", &models.ResolveReportRequest{Action: models.ResolveDismiss})
	assert.ErrorIs(t, err, ErrReportNotFound)
	assert.ErrorIs(t, env.reports.Delete(context.Background(), "missing"), ErrReportNotFound)
}

func TestListReports_ByStatus(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	reporter := env.createUser(t, "bob")
	q := env.ask(t, owner.ID)
	r1 := reportQuestion(t, env, reporter.ID, q.ID)
	reportQuestion(t, env, reporter.ID, q.ID)

	_, err := env.reports.UpdateStatus(ctx, r1.ID, models.ReportReviewed)
	require.NoError(t, err)

	pending, err := env.reports.List(ctx, models.ReportPending)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
	all, err := env.reports.List(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestClip(t *testing.T) {
	assert.Equal(t, "short", clip("short", 10))
	assert.Equal(t, "héll…", clip("héllo wörld", 4))
}
