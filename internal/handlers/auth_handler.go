package handlers

import (
	"net"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/middleware"
	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/services"
)

type AuthHandler struct {
	userService *services.UserService
	tokens      *middleware.TokenIssuer
	log         *zap.Logger
}

func NewAuthHandler(userService *services.UserService, tokens *middleware.TokenIssuer, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		userService: userService,
		tokens:      tokens,
		log:         log,
	}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.userService.Register(r.Context(), &req, clientIP(r))
	if err != nil {
		writeError(w, h.log, "Register", err)
		return
	}
	h.log.Info("user registered", zap.String("user_id", user.ID))
	h.respondWithToken(w, http.StatusCreated, user)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !bind(w, r, &req) {
		return
	}

	user, err := h.userService.Login(r.Context(), &req)
	if err != nil {
		writeError(w, h.log, "Login", err)
		return
	}
	h.respondWithToken(w, http.StatusOK, user)
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, status int, user *models.User) {
	token, err := h.tokens.Issue(user.ID)
	if err != nil {
		h.log.Error("token signing failed", zap.String("user_id", user.ID), zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, models.NewErrorResponse("Failed to generate token"))
		return
	}
	writeJSON(w, status, models.NewSuccessResponse(models.AuthResponse{
		Token: token,
		User:  *user,
	}))
}

// clientIP returns the first X-Forwarded-For hop when it parses as an IP,
// falling back to RemoteAddr.
func clientIP(r *http.Request) string {
	if xff := strings.TrimSpace(r.Header.Get("X-Forwarded-For")); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); net.ParseIP(ip) != nil {
			return ip
		}
	}

	addr := strings.TrimSpace(r.RemoteAddr)
	if host, _, err := net.SplitHostPort(addr); err == nil && net.ParseIP(host) != nil {
		return host
	}
	if net.ParseIP(addr) != nil {
		return addr
	}
	return ""
}
