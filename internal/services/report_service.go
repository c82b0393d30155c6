package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

const (
	defaultWarnMessage   = "A moderator reviewed content you posted and issued a warning."
	defaultRemoveMessage = "Content you posted was removed by a moderator."
	snapshotTextLimit    = 500
)

type ReportService struct {
	store      storage.Store
	questions  *QuestionService
	answers    *AnswerService
	notifier   *Notifier
	moderation *ModerationActions
	log        *zap.Logger
}

func NewReportService(store storage.Store, questions *QuestionService, answers *AnswerService, notifier *Notifier, moderation *ModerationActions, log *zap.Logger) *ReportService {
	return &ReportService{
		store:      store,
		questions:  questions,
		answers:    answers,
		notifier:   notifier,
		moderation: moderation,
		log:        log,
	}
}

// reportTarget is the content a report points at.
type reportTarget struct {
	question *models.Question
	answer   *models.Answer
}

func (t reportTarget) ownerID() string {
	if t.question != nil {
		return t.question.UserID
	}
	return t.answer.UserID
}

func (t reportTarget) snapshot() *models.ContentSnapshot {
	if t.question != nil {
		return &models.ContentSnapshot{
			Kind:  "question",
			ID:    t.question.ID,
			Title: t.question.Title,
			Text:  clip(t.question.Description, snapshotTextLimit),
		}
	}
	return &models.ContentSnapshot{
		Kind: "answer",
		ID:   t.answer.ID,
		Text: clip(t.answer.Text, snapshotTextLimit),
	}
}

func clip(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n]) + "…"
}

func (s *ReportService) loadTarget(ctx context.Context, questionID, answerID string) (reportTarget, error) {
	if questionID != "" {
		q, err := s.store.GetQuestion(ctx, questionID)
		if err != nil {
			return reportTarget{}, translate(err, "load question", ErrQuestionNotFound)
		}
		return reportTarget{question: q}, nil
	}
	a, err := s.store.GetAnswer(ctx, answerID)
	if err != nil {
		return reportTarget{}, translate(err, "load answer", ErrAnswerNotFound)
	}
	return reportTarget{answer: a}, nil
}

// Create files a report against an existing question or answer.
func (s *ReportService) Create(ctx context.Context, reporterID string, req *models.CreateReportRequest) (*models.Report, error) {
	if _, err := s.loadTarget(ctx, req.QuestionID, req.AnswerID); err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	r := &models.Report{
		ID:         uuid.New().String(),
		ReporterID: reporterID,
		QuestionID: req.QuestionID,
		AnswerID:   req.AnswerID,
		Reason:     req.Reason,
		Details:    strings.TrimSpace(req.Details),
		Status:     models.ReportPending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.store.CreateReport(ctx, r); err != nil {
		return nil, fmt.Errorf("create report: %w", err)
	}
	return r, nil
}

// List returns reports, newest first. An empty status lists all of them.
func (s *ReportService) List(ctx context.Context, status models.ReportStatus) ([]*models.Report, error) {
	list, err := s.store.ListReports(ctx, status)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	return list, nil
}

func (s *ReportService) UpdateStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error) {
	r, err := s.store.UpdateReportStatus(ctx, id, status)
	if err != nil {
		return nil, translate(err, "update report", ErrReportNotFound)
	}
	return r, nil
}

func (s *ReportService) Delete(ctx context.Context, id string) error {
	return translate(s.store.DeleteReport(ctx, id), "delete report", ErrReportNotFound)
}

// Resolve closes a report with a moderation action. Deleting the content
// also removes every report filed against it, this one included; the
// returned report reflects its final state.
func (s *ReportService) Resolve(ctx context.Context, id string, req *models.ResolveReportRequest) (*models.Report, error) {
	r, err := s.store.GetReport(ctx, id)
	if err != nil {
		return nil, translate(err, "load report", ErrReportNotFound)
	}

	if req.Action == models.ResolveDismiss {
		return s.UpdateStatus(ctx, id, models.ReportResolved)
	}

	target, err := s.loadTarget(ctx, r.QuestionID, r.AnswerID)
	if err != nil {
		return nil, err
	}
	ownerID := target.ownerID()

	switch req.Action {
	case models.ResolveWarn:
		s.warn(ctx, ownerID, orDefault(req.Message, defaultWarnMessage), target.snapshot())
		return s.UpdateStatus(ctx, id, models.ReportResolved)

	case models.ResolveDeleteContent:
		resolved, err := s.UpdateStatus(ctx, id, models.ReportResolved)
		if err != nil {
			return nil, err
		}
		if target.question != nil {
			err = s.questions.remove(ctx, target.question)
		} else {
			err = s.answers.remove(ctx, target.answer)
		}
		if err != nil {
			return nil, err
		}
		s.warn(ctx, ownerID, orDefault(req.Message, defaultRemoveMessage), target.snapshot())
		return resolved, nil
	}
	return nil, fmt.Errorf("unknown resolve action %q", req.Action)
}

// warn notifies the content owner and records a strike. Both are
// best-effort once the primary action has happened.
func (s *ReportService) warn(ctx context.Context, ownerID, message string, snapshot *models.ContentSnapshot) {
	if _, err := s.notifier.Notify(ctx, ownerID, models.ActivityWarning, message, snapshot); err != nil {
		s.log.Error("moderation warning failed", zap.String("user_id", ownerID), zap.Error(err))
	}
	if _, err := s.moderation.Strike(ctx, ownerID); err != nil {
		s.log.Error("moderation strike failed", zap.String("user_id", ownerID), zap.Error(err))
	}
}

func orDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
