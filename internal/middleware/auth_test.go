package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	fbauth "firebase.google.com/go/v4/auth"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

type fakeVerifier struct {
	tokens map[string]*fbauth.Token
}

func (f *fakeVerifier) VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error) {
	tok, ok := f.tokens[idToken]
	if !ok {
		return nil, errors.New("bad id token")
	}
	return tok, nil
}

func idToken(uid, email string, verified bool) *fbauth.Token {
	return &fbauth.Token{UID: uid, Claims: map[string]interface{}{"email": email, "email_verified": verified}}
}

type authFixture struct {
	store  *storage.MemoryStore
	issuer *TokenIssuer
	auth   *Authenticator
	alice  *models.User
	banned *models.User
	admin  *models.User
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	ctx := context.Background()
	f := &authFixture{
		store:  storage.NewMemoryStore(),
		issuer: NewTokenIssuer("test-secret", time.Hour),
	}
	mk := func(name string, role models.Role, banned bool) *models.User {
		u := &models.User{ID: name + "-id", Username: name, Email: name + "@example.com", Role: role, Banned: banned}
		require.NoError(t, f.store.CreateUser(ctx, u))
		return u
	}
	f.alice = mk("alice", models.RoleUser, false)
	f.banned = mk("mallory", models.RoleUser, true)
	f.admin = mk("root", models.RoleAdmin, false)
	verifier := &fakeVerifier{tokens: map[string]*fbauth.Token{
		"firebase-alice":      idToken("fb-alice", "Alice@Example.com", true),
		"firebase-unverified": idToken("fb-imposter", "root@example.com", false),
		"firebase-other-uid":  idToken("fb-second", "alice@example.com", true),
		"firebase-no-account": idToken("fb-nobody", "nobody@example.com", true),
	}}
	f.auth = NewAuthenticator(f.issuer, verifier, f.store, zap.NewNop())
	return f
}

func (f *authFixture) token(t *testing.T, userID string) string {
	t.Helper()
	tok, err := f.issuer.Issue(userID)
	require.NoError(t, err)
	return tok
}

func echoUser() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if u := GetUser(r.Context()); u != nil {
			_, _ = w.Write([]byte(u.ID))
			return
		}
		_, _ = w.Write([]byte("anonymous"))
	})
}

func serve(h http.Handler, authHeader string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func TestTokenIssuer_RoundTrip(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Hour)
	tok, err := issuer.Issue("u1")
	require.NoError(t, err)

	id, err := issuer.Parse(tok)
	require.NoError(t, err)
	assert.Equal(t, "u1", id)

	_, err = NewTokenIssuer("other", time.Hour).Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
	_, err = issuer.Parse("not-a-jwt")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestTokenIssuer_Expired(t *testing.T) {
	issuer := NewTokenIssuer("secret", time.Minute)
	issued := time.Now()
	issuer.now = func() time.Time { return issued }
	tok, err := issuer.Issue("u1")
	require.NoError(t, err)

	issuer.now = func() time.Time { return issued.Add(2 * time.Minute) }
	_, err = issuer.Parse(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestMiddleware(t *testing.T) {
	f := newAuthFixture(t)
	h := f.auth.Middleware(echoUser())

	cases := []struct {
		name   string
		header string
		status int
		body   string
	}{
		{"missing header", "", http.StatusUnauthorized, ""},
		{"wrong scheme", "Basic abc", http.StatusUnauthorized, ""},
		{"garbage token", "Bearer nope", http.StatusUnauthorized, ""},
		{"unknown user", "Bearer " + f.token(t, "ghost"), http.StatusUnauthorized, ""},
		{"banned user", "Bearer " + f.token(t, f.banned.ID), http.StatusForbidden, ""},
		{"session token", "Bearer " + f.token(t, f.alice.ID), http.StatusOK, f.alice.ID},
		{"firebase token", "Bearer firebase-alice", http.StatusOK, f.alice.ID},
		{"firebase unverified email", "Bearer firebase-unverified", http.StatusUnauthorized, ""},
		{"firebase without account", "Bearer firebase-no-account", http.StatusUnauthorized, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serve(h, tc.header)
			assert.Equal(t, tc.status, rec.Code)
			if tc.body != "" {
				assert.Equal(t, tc.body, rec.Body.String())
			}
		})
	}
}

func TestMiddleware_FirebaseLinksByUID(t *testing.T) {
	f := newAuthFixture(t)
	h := f.auth.Middleware(RequireAdmin(echoUser()))

	// an unverified email must never resolve to the admin it names
	assert.Equal(t, http.StatusUnauthorized, serve(h, "Bearer firebase-unverified").Code)
	admin, err := f.store.GetUser(context.Background(), f.admin.ID)
	require.NoError(t, err)
	assert.Empty(t, admin.FirebaseUID)

	plain := f.auth.Middleware(echoUser())
	rec := serve(plain, "Bearer firebase-alice")
	require.Equal(t, http.StatusOK, rec.Code)
	alice, err := f.store.GetUser(context.Background(), f.alice.ID)
	require.NoError(t, err)
	assert.Equal(t, "fb-alice", alice.FirebaseUID)

	// once linked, another Firebase identity with the same email is refused
	assert.Equal(t, http.StatusUnauthorized, serve(plain, "Bearer firebase-other-uid").Code)
	assert.Equal(t, f.alice.ID, serve(plain, "Bearer firebase-alice").Body.String())
}

func TestOptional(t *testing.T) {
	f := newAuthFixture(t)
	h := f.auth.Optional(echoUser())

	assert.Equal(t, "anonymous", serve(h, "").Body.String())
	assert.Equal(t, "anonymous", serve(h, "Bearer nope").Body.String())
	assert.Equal(t, "anonymous", serve(h, "Bearer "+f.token(t, f.banned.ID)).Body.String())
	assert.Equal(t, f.alice.ID, serve(h, "Bearer "+f.token(t, f.alice.ID)).Body.String())
}

func TestRequireAdmin(t *testing.T) {
	f := newAuthFixture(t)
	h := f.auth.Middleware(RequireAdmin(echoUser()))

	assert.Equal(t, http.StatusForbidden, serve(h, "Bearer "+f.token(t, f.alice.ID)).Code)
	rec := serve(h, "Bearer "+f.token(t, f.admin.ID))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, f.admin.ID, rec.Body.String())
}

func TestRequestLogger(t *testing.T) {
	h := RequestLogger(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))
	rec := serve(h, "")
	assert.Equal(t, http.StatusTeapot, rec.Code)
}
