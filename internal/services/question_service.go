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

type QuestionService struct {
	store      storage.Store
	reputation *ReputationService
	log        *zap.Logger
}

func NewQuestionService(store storage.Store, reputation *ReputationService, log *zap.Logger) *QuestionService {
	return &QuestionService{store: store, reputation: reputation, log: log}
}

// Ask stores a new question and credits the asker.
func (s *QuestionService) Ask(ctx context.Context, userID string, req *models.CreateQuestionRequest) (*models.Question, error) {
	if _, err := s.store.GetUser(ctx, userID); err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}

	now := time.Now().UTC()
	q := &models.Question{
		ID:          uuid.New().String(),
		Title:       strings.TrimSpace(req.Title),
		Description: strings.TrimSpace(req.Description),
		Tags:        req.NormalizedTags(),
		UserID:      userID,
		AnswerIDs:   []string{},
		Voters:      []string{},
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.store.CreateQuestion(ctx, q); err != nil {
		return nil, fmt.Errorf("create question: %w", err)
	}

	if _, err := s.reputation.ApplyMilestone(ctx, userID, PointsAskQuestion, models.CounterQuestionsAsked); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) Get(ctx context.Context, id string) (*models.QuestionWithAnswers, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}
	answers, err := s.store.ListAnswersByQuestion(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("list answers: %w", err)
	}
	return &models.QuestionWithAnswers{Question: *q, Answers: answers}, nil
}

func (s *QuestionService) List(ctx context.Context, f models.QuestionFilter) ([]*models.Question, error) {
	list, err := s.store.ListQuestions(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list questions: %w", err)
	}
	return list, nil
}

func (s *QuestionService) Mine(ctx context.Context, userID string) ([]*models.Question, error) {
	return s.List(ctx, models.QuestionFilter{UserID: userID, Limit: storage.MaxListLimit})
}

// Delete removes a question with its answers, bookmarks and reports. Only the
// author or an admin may delete; the author loses the asking points.
func (s *QuestionService) Delete(ctx context.Context, actor *models.User, id string) (*models.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}
	if q.UserID != actor.ID && !actor.IsAdmin() {
		return nil, ErrForbidden
	}
	if err := s.remove(ctx, q); err != nil {
		return nil, err
	}
	return q, nil
}

func (s *QuestionService) remove(ctx context.Context, q *models.Question) error {
	answerIDs, err := s.store.DeleteAnswersByQuestion(ctx, q.ID)
	if err != nil {
		return fmt.Errorf("delete answers: %w", err)
	}
	if err := s.store.DeleteReportsForContent(ctx, q.ID, answerIDs); err != nil {
		return fmt.Errorf("delete reports: %w", err)
	}
	if err := s.store.DeleteBookmarksForQuestion(ctx, q.ID); err != nil {
		return fmt.Errorf("delete bookmarks: %w", err)
	}
	if err := s.store.DeleteQuestion(ctx, q.ID); err != nil {
		return translate(err, "delete question", ErrQuestionNotFound)
	}

	s.reputation.AwardOwner(ctx, q.UserID, PointsDeleteQuestion, "")
	s.log.Info("question deleted",
		zap.String("question_id", q.ID),
		zap.String("owner_id", q.UserID),
		zap.Int("answers_removed", len(answerIDs)),
	)
	return nil
}

// Vote records a single irrevocable vote. An upvote credits the author.
func (s *QuestionService) Vote(ctx context.Context, userID, id string, dir models.VoteDirection) (*models.Question, error) {
	q, err := s.store.GetQuestion(ctx, id)
	if err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}
	if q.UserID == userID {
		return nil, ErrSelfVote
	}

	updated, err := s.store.VoteQuestion(ctx, id, userID, dir)
	if err != nil {
		if errors.Is(err, storage.ErrAlreadyVoted) {
			return nil, ErrAlreadyVoted
		}
		return nil, translate(err, "vote question", ErrQuestionNotFound)
	}

	s.reputation.AwardOwner(ctx, q.UserID, voteDelta(dir), "")
	return updated, nil
}

func (s *QuestionService) ToggleBookmark(ctx context.Context, userID, id string) (*models.BookmarkToggleResult, error) {
	if _, err := s.store.GetQuestion(ctx, id); err != nil {
		return nil, translate(err, "load question", ErrQuestionNotFound)
	}
	bookmarked, err := s.store.ToggleBookmark(ctx, userID, id)
	if err != nil {
		return nil, fmt.Errorf("toggle bookmark: %w", err)
	}
	return &models.BookmarkToggleResult{QuestionID: id, Bookmarked: bookmarked}, nil
}
