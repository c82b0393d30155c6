package services

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

type notifierStore interface {
	storage.UserStore
	storage.ActivityStore
}

// Notifier writes Activity notices and mirrors them by email when a mailer
// is configured.
type Notifier struct {
	store  notifierStore
	mailer Mailer
	log    *zap.Logger
}

// NewNotifier builds a Notifier. mailer may be nil.
func NewNotifier(store notifierStore, mailer Mailer, log *zap.Logger) *Notifier {
	return &Notifier{store: store, mailer: mailer, log: log}
}

func (n *Notifier) Notify(ctx context.Context, userID string, typ models.ActivityType, message string, content *models.ContentSnapshot) (*models.Activity, error) {
	a := &models.Activity{
		ID:        uuid.New().String(),
		UserID:    userID,
		Type:      typ,
		Message:   message,
		Content:   content,
		CreatedAt: time.Now().UTC(),
	}
	if err := n.store.CreateActivity(ctx, a); err != nil {
		return nil, translate(err, "create activity", nil)
	}

	if n.mailer != nil {
		n.email(ctx, a)
	}
	return a, nil
}

// email is best-effort: failures are logged and never surface to the caller.
func (n *Notifier) email(ctx context.Context, a *models.Activity) {
	user, err := n.store.GetUser(ctx, a.UserID)
	if err != nil {
		n.log.Warn("activity email skipped: user lookup failed", zap.String("user_id", a.UserID), zap.Error(err))
		return
	}
	if err := n.mailer.SendActivityEmail(ctx, user.Email, user.Username, a); err != nil {
		n.log.Warn("activity email failed",
			zap.String("user_id", a.UserID),
			zap.String("activity_id", a.ID),
			zap.Error(err),
		)
	}
}

func (n *Notifier) List(ctx context.Context, userID string) ([]*models.Activity, error) {
	list, err := n.store.ListActivities(ctx, userID)
	if err != nil {
		return nil, translate(err, "list activities", nil)
	}
	return list, nil
}

func (n *Notifier) MarkRead(ctx context.Context, userID, activityID string) error {
	return translate(n.store.MarkActivityRead(ctx, userID, activityID), "mark activity read", ErrActivityNotFound)
}
