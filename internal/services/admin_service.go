package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

type AdminService struct {
	store      storage.Store
	accounts   *AccountService
	questions  *QuestionService
	answers    *AnswerService
	notifier   *Notifier
	moderation *ModerationActions
	log        *zap.Logger
}

func NewAdminService(store storage.Store, accounts *AccountService, questions *QuestionService, answers *AnswerService, notifier *Notifier, moderation *ModerationActions, log *zap.Logger) *AdminService {
	return &AdminService{
		store:      store,
		accounts:   accounts,
		questions:  questions,
		answers:    answers,
		notifier:   notifier,
		moderation: moderation,
		log:        log,
	}
}

func (s *AdminService) Stats(ctx context.Context) (*models.DashboardStats, error) {
	var (
		stats models.DashboardStats
		err   error
	)
	if stats.Users, err = s.store.CountUsers(ctx); err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}
	if stats.Questions, err = s.store.CountQuestions(ctx, ""); err != nil {
		return nil, fmt.Errorf("count questions: %w", err)
	}
	if stats.Answers, err = s.store.CountAnswers(ctx, ""); err != nil {
		return nil, fmt.Errorf("count answers: %w", err)
	}
	if stats.PendingReports, err = s.store.CountReports(ctx, models.ReportPending); err != nil {
		return nil, fmt.Errorf("count reports: %w", err)
	}
	badges, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	stats.Badges = int64(len(badges))
	return &stats, nil
}

func (s *AdminService) ListUsers(ctx context.Context, limit int) ([]*models.User, error) {
	list, err := s.store.ListUsers(ctx, limit)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return list, nil
}

func (s *AdminService) Ban(ctx context.Context, actor *models.User, userID, message string) (*models.User, error) {
	if actor.ID == userID {
		return nil, ErrForbidden
	}
	return s.moderation.Ban(ctx, userID, message)
}

func (s *AdminService) Unban(ctx context.Context, userID string) (*models.User, error) {
	return s.moderation.Unban(ctx, userID)
}

// DeleteUser removes another user's account and everything they own.
func (s *AdminService) DeleteUser(ctx context.Context, actor *models.User, userID string) (*DeleteAccountResult, error) {
	if actor.ID == userID {
		return nil, ErrForbidden
	}
	res, err := s.accounts.Delete(ctx, userID)
	if err != nil {
		return nil, err
	}
	s.log.Warn("user deleted by admin", zap.String("user_id", userID), zap.String("admin_id", actor.ID))
	return res, nil
}

// SendNotice writes an Activity to a user on behalf of the moderators.
func (s *AdminService) SendNotice(ctx context.Context, req *models.SendNoticeRequest) (*models.Activity, error) {
	if _, err := s.store.GetUser(ctx, req.UserID); err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}
	return s.notifier.Notify(ctx, req.UserID, req.Type, req.Message, nil)
}

func (s *AdminService) DeleteQuestion(ctx context.Context, actor *models.User, id string) (*models.Question, error) {
	return s.questions.Delete(ctx, actor, id)
}

func (s *AdminService) DeleteAnswer(ctx context.Context, actor *models.User, id string) (*models.Answer, error) {
	return s.answers.Delete(ctx, actor, id)
}
