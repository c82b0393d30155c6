// Package storage persists Asktopedia entities. Two implementations share the
// Store interface: MongoStore for production and MemoryStore for tests and
// local development.
package storage

import (
	"context"
	"errors"

	"github.com/asktopedia/backend/internal/models"
)

var (
	ErrNotFound     = errors.New("storage: not found")
	ErrDuplicate    = errors.New("storage: duplicate key")
	ErrAlreadyVoted = errors.New("storage: already voted")
)

type UserStore interface {
	CreateUser(ctx context.Context, u *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByFirebaseUID(ctx context.Context, uid string) (*models.User, error)
	// LinkFirebaseUID binds uid to a user that has no Firebase identity yet.
	// A user already bound to another uid yields ErrNotFound.
	LinkFirebaseUID(ctx context.Context, id, uid string) (*models.User, error)
	ListUsers(ctx context.Context, limit int) ([]*models.User, error)
	UpdateUser(ctx context.Context, id string, upd models.UserUpdate) (*models.User, error)
	// ReplacePhotoURL rewrites every photo_url equal to oldURL and returns
	// how many users changed.
	ReplacePhotoURL(ctx context.Context, oldURL, newURL string) (int64, error)
	DeleteUser(ctx context.Context, id string) error
	CountUsers(ctx context.Context) (int64, error)

	// AddPoints adds delta to the balance and clamps the result at zero in a
	// single atomic step.
	AddPoints(ctx context.Context, id string, delta int) (*models.User, error)
	IncrementCounter(ctx context.Context, id string, counter models.Counter, delta int) (*models.User, error)
	// AddBadges adds badge IDs to the user's set; IDs already held are ignored.
	AddBadges(ctx context.Context, id string, badgeIDs []string) (*models.User, error)
	TopUsers(ctx context.Context, limit int) ([]*models.User, error)
}

type BadgeStore interface {
	CreateBadge(ctx context.Context, b *models.Badge) error
	ListBadges(ctx context.Context) ([]*models.Badge, error)
	GetBadgesByIDs(ctx context.Context, ids []string) ([]*models.Badge, error)
}

type QuestionStore interface {
	CreateQuestion(ctx context.Context, q *models.Question) error
	GetQuestion(ctx context.Context, id string) (*models.Question, error)
	ListQuestions(ctx context.Context, f models.QuestionFilter) ([]*models.Question, error)
	DeleteQuestion(ctx context.Context, id string) error
	CountQuestions(ctx context.Context, userID string) (int64, error)

	// VoteQuestion records a vote only if userID has not voted before;
	// otherwise it returns ErrAlreadyVoted and changes nothing.
	VoteQuestion(ctx context.Context, id, userID string, dir models.VoteDirection) (*models.Question, error)
	AttachAnswer(ctx context.Context, questionID, answerID string) error
	DetachAnswer(ctx context.Context, questionID, answerID string) error
}

type AnswerStore interface {
	CreateAnswer(ctx context.Context, a *models.Answer) error
	GetAnswer(ctx context.Context, id string) (*models.Answer, error)
	ListAnswersByQuestion(ctx context.Context, questionID string) ([]*models.Answer, error)
	ListAnswersByUser(ctx context.Context, userID string) ([]*models.Answer, error)
	DeleteAnswer(ctx context.Context, id string) error
	DeleteAnswersByQuestion(ctx context.Context, questionID string) ([]string, error)
	CountAnswers(ctx context.Context, userID string) (int64, error)

	VoteAnswer(ctx context.Context, id, userID string, dir models.VoteDirection) (*models.Answer, error)
	// AcceptAnswer marks this answer and clears any other accepted answer for
	// the question; at most one stays accepted even under concurrent calls.
	// wasAccepted reports the answer's state before the call.
	AcceptAnswer(ctx context.Context, questionID, answerID string) (a *models.Answer, wasAccepted bool, err error)
}

type BookmarkStore interface {
	// ToggleBookmark adds the bookmark when absent and removes it when present.
	ToggleBookmark(ctx context.Context, userID, questionID string) (bookmarked bool, err error)
	ListBookmarks(ctx context.Context, userID string) ([]*models.Bookmark, error)
	DeleteBookmarksForQuestion(ctx context.Context, questionID string) error
	DeleteBookmarksForUser(ctx context.Context, userID string) error
}

type ReportStore interface {
	CreateReport(ctx context.Context, r *models.Report) error
	GetReport(ctx context.Context, id string) (*models.Report, error)
	ListReports(ctx context.Context, status models.ReportStatus) ([]*models.Report, error)
	UpdateReportStatus(ctx context.Context, id string, status models.ReportStatus) (*models.Report, error)
	DeleteReport(ctx context.Context, id string) error
	DeleteReportsForContent(ctx context.Context, questionID string, answerIDs []string) error
	DeleteReportsByReporter(ctx context.Context, reporterID string) error
	CountReports(ctx context.Context, status models.ReportStatus) (int64, error)
}

type ActivityStore interface {
	CreateActivity(ctx context.Context, a *models.Activity) error
	ListActivities(ctx context.Context, userID string) ([]*models.Activity, error)
	MarkActivityRead(ctx context.Context, userID, id string) error
	DeleteActivitiesForUser(ctx context.Context, userID string) error
}

type FlagStore interface {
	// AddStrike increments the strike counter for the user and returns the updated record.
	AddStrike(ctx context.Context, userID string) (*models.UserFlag, error)
	GetFlag(ctx context.Context, userID string) (*models.UserFlag, error)
	DeleteFlag(ctx context.Context, userID string) error
}

type MeetupStore interface {
	CreateMeetup(ctx context.Context, m *models.Meetup) error
	GetMeetup(ctx context.Context, id string) (*models.Meetup, error)
	UpdateMeetup(ctx context.Context, id string, req *models.UpdateMeetupRequest) (*models.Meetup, error)
	DeleteMeetup(ctx context.Context, id string) error
	DeleteMeetupsByUser(ctx context.Context, userID string) error
	ListMeetupsNearby(ctx context.Context, lat, lng, radiusMi float64, limit int) ([]*models.Meetup, error)
	ListMeetupsByBounds(ctx context.Context, b models.Bounds, limit int) ([]*models.Meetup, error)
	SearchMeetupsNearby(ctx context.Context, lat, lng, radiusMi float64, q string, limit int) ([]*models.Meetup, error)
	ListMeetupsByUser(ctx context.Context, userID string, limit int) ([]*models.Meetup, error)
	SetAttendance(ctx context.Context, id, userID string, attending bool) (*models.Meetup, error)
}

// Store is the full persistence surface used by the services.
type Store interface {
	UserStore
	BadgeStore
	QuestionStore
	AnswerStore
	BookmarkStore
	ReportStore
	ActivityStore
	FlagStore
	MeetupStore

	Close(ctx context.Context) error
}

const (
	DefaultListLimit = 100
	MaxListLimit     = 500
)

func clampLimit(limit int) int {
	if limit <= 0 {
		return DefaultListLimit
	}
	if limit > MaxListLimit {
		return MaxListLimit
	}
	return limit
}
