package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

type AnswerService struct {
	store      storage.Store
	reputation *ReputationService
	log        *zap.Logger
}

func NewAnswerService(store storage.Store, reputation *ReputationService, log *zap.Logger) *AnswerService {
	return &AnswerService{store: store, reputation: reputation, log: log}
}

func voteDelta(dir models.VoteDirection) int {
	if dir == models.VoteUp {
		return PointsUpvoteReceived
	}
	return PointsDownvote
}

// Post attaches a new answer to an existing question and credits the answerer.
func (s *AnswerService) Post(ctx context.Context, userID string, req *models.CreateAnswerRequest) (*models.Answer, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}
	if _, err := s.store.GetQuestion(ctx, req.QuestionID); err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}

	a := &models.Answer{
		ID:         uuid.New().String(),
		QuestionID: req.QuestionID,
		UserID:     userID,
		Text:       strings.TrimSpace(req.Text),
		Voters:     []string{},
		CreatedAt:  time.Now().UTC(),
	}
	if err := s.store.CreateAnswer(ctx, a); err != nil {
		return nil, fmt.Errorf("create answer: %w", err)
	}
	if err := s.store.AttachAnswer(ctx, a.QuestionID, a.ID); err != nil {
		return nil, translate(err, "attach answer", ErrQuestionNotFound)
	}

	if _, err := s.reputation.Apply(ctx, userID, PointsPostAnswer); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AnswerService) Get(ctx context.Context, id string) (*models.Answer, error) {
	a, err := s.store.GetAnswer(ctx, id)
	if err != nil {
		return nil, translate(err, "load answer", ErrAnswerNotFound)
	}
	return a, nil
}

func (s *AnswerService) ListByQuestion(ctx context.Context, questionID string) ([]*models.Answer, error) {
	if _, err := s.store.GetQuestion(ctx, questionID); err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}
	list, err := s.store.ListAnswersByQuestion(ctx, questionID)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return list, nil
}

// Delete removes an answer. Only its author or an admin may delete it; the
// author loses the answering points.
func (s *AnswerService) Delete(ctx context.Context, actor *models.User, id string) (*models.Answer, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := s.remove(ctx, a); err != nil {
		return nil, err
	}
	return a, nil
}

func (s *AnswerService) remove(ctx context.Context, a *models.Answer) error {
	if err := s.store.DeleteAnswer(ctx, a.ID); err != nil {
		return translate(err, "delete answer", ErrAnswerNotFound)
	}
	if err := s.store.DetachAnswer(ctx, a.QuestionID, a.ID); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return fmt.Errorf("detach answer: %w", err)
	}
	if err := s.store.DeleteReportsForContent(ctx, "", []string{a.ID}); err != nil {
		return fmt.Errorf("delete reports: %w", err)
	}

	s.reputation.AwardOwner(ctx, a.UserID, PointsDeleteAnswer, "")
	s.log.Info("answer deleted", zap.String("answer_id", a.ID), zap.String("owner_id", a.UserID))
	return nil
}

// Vote records a single irrevocable vote. An upvote credits the author.
func (s *AnswerService) Vote(ctx context.Context, userID, id string, dir models.VoteDirection) (*models.Answer, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if a.UserID == userID {
		return nil, ErrSelfVote
	}

	updated, err := s.store.VoteAnswer(ctx, id, userID, dir)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyVoted) {
			return nil, ErrAlreadyVoted
		}
		return nil, translate(err, "vote answer", ErrAnswerNotFound)
	}

	s.reputation.AwardOwner(ctx, a.UserID, voteDelta(dir), "")
	return updated, nil
}

// Accept marks the answer as the accepted one for its question. Only the
// question's author may accept. The answer author is credited the first time
// this answer is accepted; re-accepting changes nothing.
func (s *AnswerService) Accept(ctx context.Context, userID, id string) (*models.Answer, error) {
	a, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	q, err := s.store.GetQuestion(ctx, a.QuestionID)
	if err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}
	if q.UserID != userID {
		return nil, ErrForbidden
	}

	accepted, wasAccepted, err := s.store.AcceptAnswer(ctx, q.ID, a.ID)
	if err != nil {
		return nil, translate(err, "accept answer", ErrAnswerNotFound)
	}
	if !wasAccepted {
		s.reputation.AwardOwner(ctx, a.UserID, PointsAnswerAccepted, models.CounterAnswersAccepted)
	}
	return accepted, nil
}
