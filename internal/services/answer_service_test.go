package services

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktopedia/backend/internal/models"
)

func TestPostAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	q := env.ask(t, asker.ID)

	a := env.answer(t, answerer.ID, q.ID)

	assert.Equal(t, PointsPostAnswer, env.points(t, answerer.ID))
	list, err := env.answers.ListByQuestion(ctx, q.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, a.ID, list[0].ID)
}

func TestPostAnswer_UnknownQuestion(t *testing.T) {
	env := newTestEnv(t)
	u := env.createUser(t, "bob")

	_, err := env.answers.Post(context.Background(), u.ID, &models.CreateAnswerRequest{QuestionID: "missing", Text: "hello"})
	assert.ErrorIs(t, err, ErrQuestionNotFound)

	_, err = env.answers.ListByQuestion(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrQuestionNotFound)
}

func TestDeleteAnswer_RestoresPointsAndDetaches(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	q := env.ask(t, asker.ID)
	a := env.answer(t, answerer.ID, q.ID)

	_, err := env.answers.Delete(ctx, asker, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = env.answers.Delete(ctx, answerer, a.ID)
	require.NoError(t, err)

	assert.Equal(t, 0, env.points(t, answerer.ID))
	got, err := env.store.GetQuestion(ctx, q.ID)
	require.NoError(t, err)
	assert.Empty(t, got.AnswerIDs)

	_, err = env.answers.Get(ctx, a.ID)
	assert.ErrorIs(t, err, ErrAnswerNotFound)
}

func TestVoteAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	a := env.answer(t, answerer.ID, env.ask(t, asker.ID).ID)

	_, err := env.answers.Vote(ctx, answerer.ID, a.ID, models.VoteUp)
	assert.ErrorIs(t, err, ErrSelfVote)

	updated, err := env.answers.Vote(ctx, asker.ID, a.ID, models.VoteUp)
	require.NoError(t, err)
	assert.Equal(t, 1, updated.Upvotes)
	assert.Equal(t, PointsPostAnswer+PointsUpvoteReceived, env.points(t, answerer.ID))

	for _, dir := range []models.VoteDirection{models.VoteUp, models.VoteDown} {
		_, err = env.answers.Vote(ctx, asker.ID, a.ID, dir)
		assert.ErrorIs(t, err, ErrAlreadyVoted)
	}
	assert.Equal(t, PointsPostAnswer+PointsUpvoteReceived, env.points(t, answerer.ID))

	got, err := env.store.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.Upvotes)
	assert.Equal(t, 0, got.Downvotes)
	assert.Equal(t, []string{asker.ID}, got.Voters)
}

func TestVoteAnswer_ConcurrentUpvotes(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	a := env.answer(t, answerer.ID, env.ask(t, asker.ID).ID)
	carol := env.createUser(t, "carol")
	dave := env.createUser(t, "dave")

	var wg sync.WaitGroup
	errs := make([]error, 2)
	for i, id := range []string{carol.ID, dave.ID} {
		wg.Add(1)
		go func(i int, id string) {
			defer wg.Done()
			_, errs[i] = env.answers.Vote(ctx, id, a.ID, models.VoteUp)
		}(i, id)
	}
	wg.Wait()

	require.NoError(t, errs[0])
	require.NoError(t, errs[1])
	got, err := env.store.GetAnswer(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Upvotes)
	assert.ElementsMatch(t, []string{carol.ID, dave.ID}, got.Voters)
	assert.Equal(t, PointsPostAnswer+2*PointsUpvoteReceived, env.points(t, answerer.ID))
}

func TestAcceptAnswer(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	a := env.answer(t, answerer.ID, env.ask(t, asker.ID).ID)

	_, err := env.answers.Accept(ctx, answerer.ID, a.ID)
	assert.ErrorIs(t, err, ErrForbidden)

	accepted, err := env.answers.Accept(ctx, asker.ID, a.ID)
	require.NoError(t, err)
	assert.True(t, accepted.IsAccepted)

	got := env.user(t, answerer.ID)
	assert.Equal(t, PointsPostAnswer+PointsAnswerAccepted, got.Points)
	assert.Equal(t, 1, got.AnswersAccepted)

	// Accepting again is a no-op for the ledger.
	_, err = env.answers.Accept(ctx, asker.ID, a.ID)
	require.NoError(t, err)
	got = env.user(t, answerer.ID)
	assert.Equal(t, PointsPostAnswer+PointsAnswerAccepted, got.Points)
	assert.Equal(t, 1, got.AnswersAccepted)
}

func TestAcceptAnswer_SwitchingKeepsEarlierCredit(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	asker := env.createUser(t, "alice")
	first := env.createUser(t, "bob")
	second := env.createUser(t, "carol")
	q := env.ask(t, asker.ID)
	a1 := env.answer(t, first.ID, q.ID)
	a2 := env.answer(t, second.ID, q.ID)

	_, err := env.answers.Accept(ctx, asker.ID, a1.ID)
	require.NoError(t, err)
	_, err = env.answers.Accept(ctx, asker.ID, a2.ID)
	require.NoError(t, err)

	old, err := env.store.GetAnswer(ctx, a1.ID)
	require.NoError(t, err)
	assert.False(t, old.IsAccepted)

	assert.Equal(t, PointsPostAnswer+PointsAnswerAccepted, env.points(t, first.ID))
	assert.Equal(t, PointsPostAnswer+PointsAnswerAccepted, env.points(t, second.ID))
}

func TestAcceptAnswer_CrossesPointBadgeOnce(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	bronze := env.addBadge(t, "Bronze", 50)
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	_, err := env.store.AddPoints(ctx, answerer.ID, 40)
	require.NoError(t, err)

	q := env.ask(t, asker.ID)
	a := env.answer(t, answerer.ID, q.ID)
	before := env.user(t, answerer.ID)
	require.Equal(t, 45, before.Points)
	require.NotContains(t, before.Badges, bronze.ID)

	_, err = env.answers.Accept(ctx, asker.ID, a.ID)
	require.NoError(t, err)
	after := env.user(t, answerer.ID)
	assert.Equal(t, 55, after.Points)
	assert.Equal(t, []string{bronze.ID}, after.Badges)

	// further awards above the threshold leave the badge set alone
	_, err = env.answers.Vote(ctx, asker.ID, a.ID, models.VoteUp)
	require.NoError(t, err)
	_, err = env.answers.Accept(ctx, asker.ID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{bronze.ID}, env.user(t, answerer.ID).Badges)
}

func TestAcceptAnswer_GrantsGuruAtMilestone(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	guru := env.addBadge(t, models.BadgeGuru, 0)
	asker := env.createUser(t, "alice")
	answerer := env.createUser(t, "bob")
	_, err := env.store.IncrementCounter(ctx, answerer.ID, models.CounterAnswersAccepted, models.MilestoneThreshold-1)
	require.NoError(t, err)

	a := env.answer(t, answerer.ID, env.ask(t, asker.ID).ID)
	_, err = env.answers.Accept(ctx, asker.ID, a.ID)
	require.NoError(t, err)

	assert.Contains(t, env.user(t, answerer.ID).Badges, guru.ID)
}
