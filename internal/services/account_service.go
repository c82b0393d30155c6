package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

// DefaultAccountTimeout bounds a full account deletion.
const DefaultAccountTimeout = 20 * time.Second

type DeleteAccountResult struct {
	UserID      string   `json:"user_id"`
	QuestionIDs []string `json:"question_ids"`
	AnswerIDs   []string `json:"answer_ids"`
	// PhotoURL is returned so the client can remove the stored object.
	PhotoURL string `json:"photo_url,omitempty"`
}

// AccountService removes a user together with everything they own.
type AccountService struct {
	store     storage.Store
	questions *QuestionService
	answers   *AnswerService
	cache     Cache
	log       *zap.Logger
}

func NewAccountService(store storage.Store, questions *QuestionService, answers *AnswerService, cache Cache, log *zap.Logger) *AccountService {
	return &AccountService{store: store, questions: questions, answers: answers, cache: cache, log: log}
}

// Delete removes the user's questions (with every answer under them), their
// remaining answers, filed reports, bookmarks, activities, meetups and
// strikes, then the user record. The writes are not transactional; a
// failure part way leaves the earlier deletions in place.
func (s *AccountService) Delete(ctx context.Context, userID string) (*DeleteAccountResult, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}
	res := &DeleteAccountResult{
		UserID:      userID,
		QuestionIDs: []string{},
		AnswerIDs:   []string{},
		PhotoURL:    user.PhotoURL,
	}

	// Listing is capped per call, so drain in batches until nothing is left.
	for {
		questions, err := s.store.ListQuestions(ctx, models.QuestionFilter{UserID: userID, Limit: storage.MaxListLimit})
		if err != nil {
			return nil, fmt.Errorf("list questions: %w", err)
		}
		if len(questions) == 0 {
			break
		}
		for _, q := range questions {
			if err := s.questions.remove(ctx, q); err != nil {
				return nil, err
			}
			res.QuestionIDs = append(res.QuestionIDs, q.ID)
		}
	}

	answers, err := s.store.ListAnswersByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	for _, a := range answers {
		if err := s.answers.remove(ctx, a); err != nil {
			return nil, err
		}
		res.AnswerIDs = append(res.AnswerIDs, a.ID)
	}

	cleanup := []struct {
		what string
		fn   func(context.Context, string) error
	}{
		{"reports", s.store.DeleteReportsByReporter},
		{"bookmarks", s.store.DeleteBookmarksForUser},
		{"activities", s.store.DeleteActivitiesForUser},
		{"meetups", s.store.DeleteMeetupsByUser},
	}
	for _, c := range cleanup {
		if err := c.fn(ctx, userID); err != nil {
			return nil, fmt.Errorf("delete %s: %w", c.what, err)
		}
	}
	if err := s.store.DeleteFlag(ctx, userID); err != nil {
		s.log.Warn("clearing strikes failed", zap.String("user_id", userID), zap.Error(err))
	}

	if err := s.store.DeleteUser(ctx, userID); err != nil {
		return nil, translate(err, "delete user", ErrUserNotFound)
	}
	dropLeaderboard(ctx, s.cache, s.log)
	s.log.Warn("account deleted",
		zap.String("user_id", userID),
		zap.Int("questions", len(res.QuestionIDs)),
		zap.Int("answers", len(res.AnswerIDs)),
	)
	return res, nil
}
