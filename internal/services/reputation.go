package services

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

// Point deltas per content action.
const (
	PointsAskQuestion    = 10
	PointsDeleteQuestion = -PointsAskQuestion
	PointsPostAnswer     = 5
	PointsDeleteAnswer   = -PointsPostAnswer
	PointsUpvoteReceived = 5
	PointsDownvote       = 0
	PointsAnswerAccepted = 10
)

// reputationStore is the slice of storage the ledger needs.
type reputationStore interface {
	storage.UserStore
	storage.BadgeStore
}

// milestones maps a named badge to the counter and threshold that earn it.
var milestones = map[string]func(u *models.User) bool{
	strings.ToLower(models.BadgeInquisitor): func(u *models.User) bool {
		return u.QuestionsAsked >= models.MilestoneThreshold
	},
	strings.ToLower(models.BadgeGuru): func(u *models.User) bool {
		return u.AnswersAccepted >= models.MilestoneThreshold
	},
}

// ReputationService owns the point ledger and badge evaluation.
type ReputationService struct {
	store reputationStore
	log   *zap.Logger
}

func NewReputationService(store reputationStore, log *zap.Logger) *ReputationService {
	return &ReputationService{store: store, log: log}
}

// Apply adds delta to the user's points (clamped at zero) and then grants any
// badges the new balance qualifies for.
func (s *ReputationService) Apply(ctx context.Context, userID string, delta int) (*models.User, error) {
	return s.apply(ctx, userID, delta, "")
}

// ApplyMilestone bumps a milestone counter by one along with the point delta,
// then evaluates badges once for both changes.
func (s *ReputationService) ApplyMilestone(ctx context.Context, userID string, delta int, counter models.Counter) (*models.User, error) {
	return s.apply(ctx, userID, delta, counter)
}

func (s *ReputationService) apply(ctx context.Context, userID string, delta int, counter models.Counter) (*models.User, error) {
	var (
		user *models.User
		err  error
	)

	if counter != "" {
		user, err = s.store.IncrementCounter(ctx, userID, counter, 1)
		if err != nil {
			return nil, translate(err, "increment counter", ErrUserNotFound)
		}
	}
	if delta != 0 || user == nil {
		user, err = s.store.AddPoints(ctx, userID, delta)
		if err != nil {
			return nil, translate(err, "add points", ErrUserNotFound)
		}
	}

	if _, err := s.evaluate(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// AwardOwner applies delta to a content owner other than the caller. The
// owner may have been deleted since the content was written; that case is
// logged and ignored.
func (s *ReputationService) AwardOwner(ctx context.Context, ownerID string, delta int, counter models.Counter) {
	if ownerID == "" || (delta == 0 && counter == "") {
		return
	}
	_, err := s.apply(ctx, ownerID, delta, counter)
	if err == nil {
		return
	}
	if errors.Is(err, ErrUserNotFound) {
		s.log.Info("reputation: content owner no longer exists", zap.String("user_id", ownerID), zap.Int("delta", delta))
		return
	}
	s.log.Error("reputation: award failed", zap.String("user_id", ownerID), zap.Int("delta", delta), zap.Error(err))
}

// EvaluateBadges grants every badge the user now qualifies for and does not
// already hold, returning only the newly granted ones. Badges are never revoked.
func (s *ReputationService) EvaluateBadges(ctx context.Context, userID string) ([]*models.Badge, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}
	return s.evaluate(ctx, user)
}

func (s *ReputationService) evaluate(ctx context.Context, user *models.User) ([]*models.Badge, error) {
	catalog, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, translate(err, "list badges", nil)
	}

	earned := EligibleBadges(user, catalog)
	if len(earned) == 0 {
		return earned, nil
	}

	ids := make([]string, 0, len(earned))
	for _, b := range earned {
		ids = append(ids, b.ID)
	}
	updated, err := s.store.AddBadges(ctx, user.ID, ids)
	if err != nil {
		return nil, translate(err, "add badges", ErrUserNotFound)
	}
	user.Badges = updated.Badges

	s.log.Info("badges granted", zap.String("user_id", user.ID), zap.Strings("badge_ids", ids))
	return earned, nil
}

// EligibleBadges returns the catalog entries the user qualifies for but does
// not hold. Milestone badges are matched by name and ignore points_required.
func EligibleBadges(user *models.User, catalog []*models.Badge) []*models.Badge {
	out := make([]*models.Badge, 0)
	for _, b := range catalog {
		if user.HasBadge(b.ID) {
			continue
		}
		if qualifies, ok := milestones[strings.ToLower(b.Name)]; ok {
			if qualifies(user) {
				out = append(out, b)
			}
			continue
		}
		if b.PointsRequired <= user.Points {
			out = append(out, b)
		}
	}
	return out
}
