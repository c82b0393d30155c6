package services

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
)

type fakeMailer struct {
	mu      sync.Mutex
	err     error
	sent    []string
	support []*models.SupportMessage
}

func (m *fakeMailer) SendActivityEmail(ctx context.Context, toEmail, toName string, a *models.Activity) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, toEmail)
	return nil
}

func (m *fakeMailer) SendSupportEmail(ctx context.Context, msg *models.SupportMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.support = append(m.support, msg)
	return nil
}

func TestNotify_SendsEmail(t *testing.T) {
	env := newTestEnv(t)
	mailer := &fakeMailer{}
	n := NewNotifier(env.store, mailer, zap.NewNop())
	u := env.createUser(t, "alice")

	a, err := n.Notify(context.Background(), u.ID, models.ActivityInfo, "hello", nil)
	require.NoError(t, err)
	assert.False(t, a.Read)
	assert.Equal(t, []string{"alice@example.com"}, mailer.sent)
}

func TestNotify_EmailFailureIgnored(t *testing.T) {
	env := newTestEnv(t)
	n := NewNotifier(env.store, &fakeMailer{err: errors.New("smtp down")}, zap.NewNop())
	u := env.createUser(t, "alice")

	_, err := n.Notify(context.Background(), u.ID, models.ActivityWarning, "careful", nil)
	require.NoError(t, err)

	list, err := n.List(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestMarkRead(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	alice := env.createUser(t, "alice")
	bob := env.createUser(t, "bob")

	a, err := env.notifier.Notify(ctx, alice.ID, models.ActivityInfo, "hello", nil)
	require.NoError(t, err)

	assert.ErrorIs(t, env.notifier.MarkRead(ctx, bob.ID, a.ID), ErrActivityNotFound)
	assert.ErrorIs(t, env.notifier.MarkRead(ctx, alice.ID, "missing"), ErrActivityNotFound)
	require.NoError(t, env.notifier.MarkRead(ctx, alice.ID, a.ID))

	list, err := env.notifier.List(ctx, alice.ID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.True(t, list[0].Read)
}

func TestListActivities_Empty(t *testing.T) {
	env := newTestEnv(t)

	list, err := env.notifier.List(context.Background(), env.createUser(t, "alice").ID)
	require.NoError(t, err)
	assert.Empty(t, list)
}
