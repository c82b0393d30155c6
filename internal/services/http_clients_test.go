package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktopedia/backend/internal/models"
)

func TestSendGridMailer_SendActivityEmail(t *testing.T) {
	var got sendGridMailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer key", r.Header.Get("Authorization"))
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "noreply@example.com", "")
	m.Endpoint = srv.URL
	m.HTTPClient = srv.Client()

	err := m.SendActivityEmail(context.Background(), "alice@example.com", "alice", &models.Activity{
		ID:      "a1",
		Type:    models.ActivityWarning,
		Message: "Please be civil.",
		Content: &models.ContentSnapshot{Kind: "question", Title: "Why?"},
	})
	require.NoError(t, err)

	require.Len(t, got.Personalizations, 1)
	p := got.Personalizations[0]
	assert.Equal(t, "Asktopedia: moderation warning", p.Subject)
	assert.Equal(t, "alice@example.com", p.To[0].Email)
	assert.Equal(t, "a1", p.CustomArgs["activity_id"])
	assert.Contains(t, got.Content[0].Value, "Please be civil.")
	assert.Contains(t, got.Content[0].Value, "Why?")
}

func TestSendGridMailer_SendSupportEmail(t *testing.T) {
	var got sendGridMailSendRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "noreply@example.com", "help@example.com")
	m.Endpoint = srv.URL
	m.HTTPClient = srv.Client()

	err := m.SendSupportEmail(context.Background(), &models.SupportMessage{
		Ticket:  "AQ-1",
		Name:    "Alice",
		Email:   "alice@example.com",
		Message: "Help!",
	})
	require.NoError(t, err)
	assert.Equal(t, "help@example.com", got.Personalizations[0].To[0].Email)
	assert.Equal(t, "Asktopedia support request AQ-1", got.Personalizations[0].Subject)
	assert.Contains(t, got.Content[0].Value, "User: anonymous")
}

func TestSendGridMailer_Errors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	m := NewSendGridMailer("key", "noreply@example.com", "")
	m.Endpoint = srv.URL
	m.HTTPClient = srv.Client()
	a := &models.Activity{Type: models.ActivityInfo, Message: "hi"}

	assert.ErrorContains(t, m.SendActivityEmail(context.Background(), "alice@example.com", "alice", a), "http 401")
	assert.ErrorContains(t, m.SendActivityEmail(context.Background(), "", "alice", a), "missing recipient")
	assert.ErrorContains(t, m.SendSupportEmail(context.Background(), &models.SupportMessage{}), "SUPPORT_EMAIL")

	unconfigured := NewSendGridMailer("", "noreply@example.com", "")
	assert.ErrorContains(t, unconfigured.SendActivityEmail(context.Background(), "alice@example.com", "alice", a), "SENDGRID_API_KEY")
}

func TestRecaptchaVerifier(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, r.ParseForm())
		assert.Equal(t, "secret", r.PostForm.Get("secret"))
		w.Header().Set("Content-Type", "application/json")
		if r.PostForm.Get("response") == "good" {
			_, _ = w.Write([]byte(`{"success": true}`))
			return
		}
		_, _ = w.Write([]byte(`{"success": false, "error-codes": ["invalid-input-response"]}`))
	}))
	defer srv.Close()

	v := NewRecaptchaVerifier("secret")
	v.Endpoint = srv.URL
	v.HTTPClient = srv.Client()
	ctx := context.Background()

	assert.NoError(t, v.Verify(ctx, "good", "203.0.113.9"))

	err := v.Verify(ctx, "bad", "")
	assert.ErrorIs(t, err, ErrCaptchaFailed)
	assert.ErrorContains(t, err, "invalid-input-response")

	assert.ErrorIs(t, v.Verify(ctx, "  ", ""), ErrCaptchaFailed)
	assert.ErrorIs(t, NewRecaptchaVerifier("").Verify(ctx, "good", ""), ErrCaptchaFailed)
}
