package services

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

func TestAsk_CreditsAskerAndNormalizesTags(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "alice")

	q := env.ask(t, u.ID)

	assert.Equal(t, []string{"go", "runtime"}, q.Tags)
	got := env.user(t, u.ID)
	assert.Equal(t, PointsAskQuestion, got.Points)
	assert.Equal(t, 1, got.QuestionsAsked)
}

func TestAsk_UnknownUser(t *testing.T) {
	env := newTestEnv(t)

	_, err := env.questions.Ask(context.Background(), "missing", &models.CreateQuestionRequest{Title: "t", Description: "d"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestAskThenDelete_RestoresPoints(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "alice")
	q := env.ask(t, u.ID)

	_, err := env.questions.Delete(context.Background(), u, q.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, env.points(t, u.ID))
	_, err = env.questions.Get(context.Background(), q.ID)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestDeleteQuestion_Authorization(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "alice")
	other := env.createUser(t, "bob")
	admin := env.createAdmin(t, "root")
	q := env.ask(t, owner.ID)

	_, err := env.questions.Delete(context.Background(), other, q.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.questions.Delete(context.Background(), admin, q.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, env.points(t, owner.ID))
}

func TestDeleteQuestion_Cascades(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	q := env.ask(t, owner.ID)
	a := env.answer(t, answerer.ID, q.ID)

	_, err := env.questions.ToggleBookmark(ctx, answerer.ID, q.ID)
	require.NoError(t, err)
	_, err = env.reports.Create(ctx, owner.ID, &models.CreateReportRequest{AnswerID: a.ID, Reason: models.ReasonSpam})
	require.NoError(t, err)
	_, err = env.reports.Create(ctx, answerer.ID, &models.CreateReportRequest{QuestionID: q.ID, Reason: models.ReasonOffTopic})
	require.NoError(t, err)

	_, err = env.questions.Delete(ctx, owner, q.ID)
	require.NoError(t, err)

	_, err = env.store.GetAnswer(ctx, a.ID)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	marks, err := env.store.ListBookmarks(ctx, answerer.ID)
	require.NoError(t, err)
	assert.Empty(t, marks)
	reports, err := env.store.ListReports(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, reports)

	// Answer owners keep what they earned.
	assert.Equal(t, PointsPostAnswer, env.points(t, answerer.ID))
}

func TestGetQuestion_IncludesAnswers(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "alice")
	q := env.ask(t, owner.ID)
	a := env.answer(t, env.createUser(t, "bob").ID, q.ID)

	got, err := env.questions.Get(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, got.Answers, 1)
	assert.Equal(t, a.ID, got.Answers[0].ID)
	assert.Equal(t, []string{a.ID}, got.AnswerIDs)
}

func TestVoteQuestion(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	owner := env.createUser(t, "alice")
	voter := env.createUser(t, "bob")
	q := env.ask(t, owner.ID)

	updated, err := env.questions.Vote(ctx, voter.ID, q.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Upvotes)
	assert.Equal(t, PointsAskQuestion+PointsUpvoteReceived, env.points(t, owner.ID))

	_, err = env.questions.Vote(ctx, voter.ID, q.ID, models.VoteDown)
	assert.ErrorIs(t, err, ErrAlreadyVoted)
	assert.Equal(t, PointsAskQuestion+PointsUpvoteReceived, env.points(t, owner.ID))

	_, err = env.questions.Vote(ctx, owner.ID, q.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrSelfVote)

	_, err = env.questions.Vote(ctx, voter.ID, "missing", models.VoteUp)
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestVoteQuestion_DownvoteAwardsNothing(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "alice")
	q := env.ask(t, owner.ID)

	updated, err := env.questions.Vote(context.Background(), env.createUser(t, "bob").ID, q.ID, models.VoteDown)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Downvotes)
	assert.Equal(t, PointsAskQuestion, env.points(t, owner.ID))
}

func TestVoteQuestion_ConcurrentUpvotes(t *testing.T) {
	env := newTestEnv(t)
	owner := env.createUser(t, "alice")
	q := env.ask(t, owner.ID)

	const voters = 25
	ids := make([]string, voters)
	for i := range ids {
		ids[i] = env.createUser(t, fmt.Sprintf("voter%d", i)).ID
	}

	var wg sync.WaitGroup
	errs := make(chan error, voters*2)
	for _, id := range ids {
		// Each voter tries twice; only one vote may land.
		for n := 0; n < 2; n++ {
			wg.Add(1)
			go func(id string) {
				defer wg.Done()
				if _, err := env.questions.Vote(context.Background(), id, q.ID, models.VoteUp); err != nil {
					errs <- err
				}
			}(id)
		}
	}
	wg.Wait()
	close(errs)

	rejected := 0
	for err := range errs {
		assert.ErrorIs(t, err, ErrAlreadyVoted)
		rejected++
	}
	assert.Equal(t, voters, rejected)

	got, err := env.store.GetQuestion(context.Background(), q.ID)
	require.NoError(t, err)
	assert.Equal(t, voters, got.Upvotes)
	assert.Len(t, got.Voters, voters)
	assert.Equal(t, PointsAskQuestion+voters*PointsUpvoteReceived, env.points(t, owner.ID))
}

func TestToggleBookmark(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	u := env.createUser(t, "alice")
	q := env.ask(t, u.ID)

	res, err := env.questions.ToggleBookmark(ctx, u.ID, q.ID)
	require.NoError(t, err)
	assert.True(t, res.Bookmarked)

	res, err = env.questions.ToggleBookmark(ctx, u.ID, q.ID)
	require.NoError(t, err)
	assert.False(t, res.Bookmarked)

	_, err = env.questions.ToggleBookmark(ctx, u.ID, "missing")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestListQuestions_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")
	env.ask(t, alice.ID)
	_, err := env.questions.Ask(ctx, bob.ID, &models.CreateQuestionRequest{
		Title:       "Best way to structure a chi router?",
		Description: "Looking for idiomatic grouping of routes.",
		Tags:        []string{"http"},
	})
	require.NoError(t, err)

	byTag, err := env.questions.List(ctx, models.QuestionFilter{Tag: "http"})
	require.NoError(t, err)
	require.Len(t, byTag, 1)
	assert.Equal(t, bob.ID, byTag[0].UserID)

	mine, err := env.questions.Mine(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, alice.ID, mine[0].UserID)
}
