package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	firebase "firebase.google.com/go/v4"
	fbauth "firebase.google.com/go/v4/auth"
	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
	"google.golang.org/api/option"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

type contextKey string

const (
	UserIDKey contextKey = "userID"
	userKey   contextKey = "user"
)

var ErrInvalidToken = errors.New("invalid or expired token")

// TokenIssuer signs and verifies the API's own HS256 session tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
	now    func() time.Time
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl, now: time.Now}
}

func (t *TokenIssuer) Issue(userID string) (string, error) {
	now := t.now()
	claims := jwt.MapClaims{
		"user_id": userID,
		"exp":     now.Add(t.ttl).Unix(),
		"iat":     now.Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(t.secret)
}

// Parse validates the token and returns the user ID it was issued for.
func (t *TokenIssuer) Parse(tokenString string) (string, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return t.secret, nil
	}, jwt.WithTimeFunc(t.now))
	if err != nil || !token.Valid {
		return "", ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return "", ErrInvalidToken
	}
	userID, ok := claims["user_id"].(string)
	if !ok || userID == "" {
		return "", ErrInvalidToken
	}
	return userID, nil
}

// IDTokenVerifier is satisfied by *auth.Client from the Firebase Admin SDK.
type IDTokenVerifier interface {
	VerifyIDToken(ctx context.Context, idToken string) (*fbauth.Token, error)
}

type FirebaseAuthConfig struct {
	ProjectID       string
	CredentialsJSON string
}

// NewFirebaseAuthClient builds a Firebase Auth client. Without explicit
// credentials it falls back to Application Default Credentials.
func NewFirebaseAuthClient(ctx context.Context, cfg FirebaseAuthConfig) (*fbauth.Client, error) {
	var opts []option.ClientOption
	if cfg.CredentialsJSON != "" {
		opts = append(opts, option.WithCredentialsJSON([]byte(cfg.CredentialsJSON)))
	}
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: cfg.ProjectID}, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Auth(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase auth: %w", err)
	}
	return client, nil
}

// UserLookup is the slice of storage the authenticator uses.
type UserLookup interface {
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	LinkFirebaseUID(ctx context.Context, id, uid string) (*models.User, error)
}

// Authenticator resolves the bearer token to a stored, non-banned user.
// Session tokens are tried first; Firebase ID tokens are accepted when a
// verifier is configured. A Firebase identity is matched by UID; the first
// sign-in links it to the user registered with the same, verified email.
type Authenticator struct {
	issuer   *TokenIssuer
	firebase IDTokenVerifier
	users    UserLookup
	log      *zap.Logger
}

func NewAuthenticator(issuer *TokenIssuer, firebase IDTokenVerifier, users UserLookup, log *zap.Logger) *Authenticator {
	return &Authenticator{issuer: issuer, firebase: firebase, users: users, log: log}
}

func (a *Authenticator) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Authorization header required"))
			return
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid authorization header format"))
			return
		}

		user, err := a.resolve(r.Context(), parts[1])
		switch {
		case errors.Is(err, ErrInvalidToken), errors.Is(err, storage.ErrNotFound):
			writeJSON(w, http.StatusUnauthorized, models.NewErrorResponse("Invalid or expired token"))
			return
		case err != nil:
			a.log.Error("authentication failed", zap.Error(err))
			writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Internal server error"))
			return
		}
		if user.Banned {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Account is banned"))
			return
		}

		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

// Optional attaches the user when a valid bearer token is present and
// otherwise lets the request through anonymously.
func (a *Authenticator) Optional(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
		if !found || token == "" {
			next.ServeHTTP(w, r)
			return
		}
		user, err := a.resolve(r.Context(), token)
		if err != nil || user.Banned {
			next.ServeHTTP(w, r)
			return
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), user)))
	})
}

func (a *Authenticator) resolve(ctx context.Context, token string) (*models.User, error) {
	userID, err := a.issuer.Parse(token)
	if err == nil {
		return a.users.GetUser(ctx, userID)
	}
	if a.firebase == nil {
		return nil, err
	}

	idToken, fbErr := a.firebase.VerifyIDToken(ctx, token)
	if fbErr != nil {
		return nil, ErrInvalidToken
	}
	if idToken.UID == "" {
		return nil, ErrInvalidToken
	}
	user, err := a.users.GetUserByFirebaseUID(ctx, idToken.UID)
	if !errors.Is(err, storage.ErrNotFound) {
		return user, err
	}

	email, _ := idToken.Claims["email"].(string)
	verified, _ := idToken.Claims["email_verified"].(bool)
	if email == "" || !verified {
		return nil, ErrInvalidToken
	}
	user, err = a.users.GetUserByEmail(ctx, strings.ToLower(email))
	if err != nil {
		return nil, err
	}
	linked, err := a.users.LinkFirebaseUID(ctx, user.ID, idToken.UID)
	if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrDuplicate) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, err
	}
	a.log.Info("firebase identity linked", zap.String("user_id", linked.ID))
	return linked, nil
}

// RequireAdmin must run after Authenticator.Middleware.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !GetUser(r.Context()).IsAdmin() {
			writeJSON(w, http.StatusForbidden, models.NewErrorResponse("Admin access required"))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) string {
	userID, ok := ctx.Value(UserIDKey).(string)
	if !ok {
		return ""
	}
	return userID
}

// GetUser returns the authenticated user, or nil outside authenticated routes.
func GetUser(ctx context.Context) *models.User {
	u, _ := ctx.Value(userKey).(*models.User)
	return u
}

// WithUser attaches an authenticated user to ctx.
func WithUser(ctx context.Context, u *models.User) context.Context {
	ctx = context.WithValue(ctx, UserIDKey, u.ID)
	return context.WithValue(ctx, userKey, u)
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
