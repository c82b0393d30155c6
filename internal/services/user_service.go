package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

const (
	DefaultLeaderboardSize = 20
	// MaxLeaderboardSize is both the largest page served and the number of
	// users held in the single cached ranking.
	MaxLeaderboardSize = 100
)

// PhotoModerator screens profile photos uploaded directly to object storage.
type PhotoModerator interface {
	ModerateAndPromote(ctx context.Context, pendingPath, userID string) (*ModerationResult, error)
}

type UserService struct {
	store      storage.Store
	reputation *ReputationService
	captcha    CaptchaVerifier
	photos     PhotoModerator
	cache      Cache
	cacheTTL   time.Duration
	log        *zap.Logger
}

type UserServiceOptions struct {
	Captcha        CaptchaVerifier // nil disables the registration captcha
	Photos         PhotoModerator  // nil accepts photo URLs as given
	Cache          Cache           // nil disables leaderboard caching
	LeaderboardTTL time.Duration
}

func NewUserService(store storage.Store, reputation *ReputationService, log *zap.Logger, opts UserServiceOptions) *UserService {
	return &UserService{
		store:      store,
		reputation: reputation,
		captcha:    opts.Captcha,
		photos:     opts.Photos,
		cache:      opts.Cache,
		cacheTTL:   opts.LeaderboardTTL,
		log:        log,
	}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *UserService) Register(ctx context.Context, req *models.RegisterRequest, remoteIP string) (*models.User, error) {
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, req.RecaptchaToken, remoteIP); err != nil {
			return nil, err
		}
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := &models.User{
		ID:           uuid.New().String(),
		Username:     strings.TrimSpace(req.Username),
		Email:        normalizeEmail(req.Email),
		PasswordHash: string(hashedPassword),
		Role:         models.RoleUser,
		Badges:       []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, fmt.Errorf("create user: %w", err)
	}

	// Zero-point badges are granted on sign-up.
	if _, err := s.reputation.EvaluateBadges(ctx, user.ID); err != nil {
		s.log.Warn("initial badge evaluation failed", zap.String("user_id", user.ID), zap.Error(err))
	}
	return s.GetByID(ctx, user.ID)
}

func (s *UserService) Login(ctx context.Context, req *models.LoginRequest) (*models.User, error) {
	user, err := s.store.GetUserByEmail(ctx, normalizeEmail(req.Email))
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("load user: %w", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, ErrInvalidCredentials
	}
	if user.Banned {
		return nil, ErrUserBanned
	}
	return user, nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (*models.User, error) {
	user, err := s.store.GetUser(ctx, id)
	if err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}
	return user, nil
}

// Update edits a profile. Only the owner or an admin may edit it. A photo URL
// under pending/ is screened before it is stored.
func (s *UserService) Update(ctx context.Context, actor *models.User, targetID string, req *models.UpdateUserRequest) (*models.User, error) {
	if actor.ID != targetID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	upd := models.UserUpdate{
		Username: req.Username,
		Bio:      req.Bio,
		PhotoURL: req.PhotoURL,
	}

	if req.PhotoURL != nil && strings.HasPrefix(*req.PhotoURL, pendingPrefix) && s.photos != nil {
		if !strings.HasPrefix(*req.PhotoURL, pendingPrefix+targetID+"/") {
			return nil, ErrInvalidImage
		}
		res, err := s.photos.ModerateAndPromote(ctx, *req.PhotoURL, targetID)
		if err != nil {
			return nil, err
		}
		upd.PhotoURL = &res.ApprovedURL
	}

	user, err := s.store.UpdateUser(ctx, targetID, upd)
	if err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrEmailExists
		}
		return nil, translate(err, "update user", ErrUserNotFound)
	}
	return user, nil
}

// Leaderboard returns the top users by points. The top MaxLeaderboardSize
// users are cached under one key for the configured TTL, so a fresh award can
// take that long to show up; bans and deletions evict it immediately.
func (s *UserService) Leaderboard(ctx context.Context, limit int) ([]models.PublicUser, error) {
	switch {
	case limit <= 0:
		limit = DefaultLeaderboardSize
	case limit > MaxLeaderboardSize:
		limit = MaxLeaderboardSize
	}

	top, err := s.topUsers(ctx)
	if err != nil {
		return nil, err
	}
	if len(top) > limit {
		top = top[:limit]
	}
	return top, nil
}

func (s *UserService) topUsers(ctx context.Context) ([]models.PublicUser, error) {
	if s.cache != nil {
		var cached []models.PublicUser
		found, err := s.cache.Get(ctx, leaderboardCacheKey, &cached)
		if err != nil {
			s.log.Warn("leaderboard cache read failed", zap.Error(err))
		} else if found {
			return cached, nil
		}
	}

	users, err := s.store.TopUsers(ctx, MaxLeaderboardSize)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	out := make([]models.PublicUser, 0, len(users))
	for _, u := range users {
		out = append(out, u.Public())
	}

	if s.cache != nil && s.cacheTTL > 0 {
		if err := s.cache.Set(ctx, leaderboardCacheKey, out, s.cacheTTL); err != nil {
			s.log.Warn("leaderboard cache write failed", zap.Error(err))
		}
	}
	return out, nil
}

func (s *UserService) Stats(ctx context.Context, userID string) (*models.UserStats, error) {
	user, err := s.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	questions, err := s.store.CountQuestions(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	answers, err := s.store.CountAnswers(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	bookmarks, err := s.store.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	stats := &models.UserStats{
		Points:          user.Points,
		QuestionsAsked:  user.QuestionsAsked,
		AnswersAccepted: user.AnswersAccepted,
		Questions:       questions,
		Answers:         answers,
		Badges:          len(user.Badges),
		Bookmarks:       len(bookmarks),
	}

	// Rank is only reported within the largest leaderboard window.
	top, err := s.store.TopUsers(ctx, storage.MaxListLimit)
	if err != nil {
		return nil, fmt.Errorf("top users: %w", err)
	}
	for i, u := range top {
		if u.ID == userID {
			stats.Rank = i + 1
			break
		}
	}
	return stats, nil
}

// Bookmarks returns the user's bookmarked questions, newest bookmark first.
// Bookmarks whose question has since been deleted are skipped.
func (s *UserService) Bookmarks(ctx context.Context, userID string) ([]*models.Question, error) {
	marks, err := s.store.ListBookmarks(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list bookmarks: %w", err)
	}

	out := make([]*models.Question, 0, len(marks))
	for _, b := range marks {
		q, err := s.store.GetQuestion(ctx, b.QuestionID)
		if err != nil {
			if errors.Is(err, storage.ErrNotFound) {
				continue
			}
			return nil, fmt.Errorf("load question: %w", err)
		}
		out = append(out, q)
	}
	return out, nil
}
