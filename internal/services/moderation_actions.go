package services

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

const DefaultBanStrikes = 3

type moderationStore interface {
	storage.UserStore
	storage.FlagStore
}

// ModerationActions records strikes and applies bans. Reaching BanStrikes
// strikes bans the user automatically.
type ModerationActions struct {
	store      moderationStore
	notifier   *Notifier
	banStrikes int
	cache      Cache
	log        *zap.Logger
}

// NewModerationActions takes the leaderboard cache to evict on ban and
// unban; cache may be nil.
func NewModerationActions(store moderationStore, notifier *Notifier, cache Cache, banStrikes int, log *zap.Logger) *ModerationActions {
	if banStrikes <= 0 {
		banStrikes = DefaultBanStrikes
	}
	return &ModerationActions{store: store, notifier: notifier, cache: cache, banStrikes: banStrikes, log: log}
}

// Strike adds a strike for the user and bans them once the threshold is reached.
func (m *ModerationActions) Strike(ctx context.Context, userID string) (*models.UserFlag, error) {
	flag, err := m.store.AddStrike(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("add strike: %w", err)
	}
	m.log.Info("strike recorded", zap.String("user_id", userID), zap.Int("strikes", flag.Strikes))

	if !flag.Exceeds(m.banStrikes) {
		return flag, nil
	}

	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return flag, translate(err, "load user", ErrUserNotFound)
	}
	if user.Banned {
		return flag, nil
	}
	msg := fmt.Sprintf("Your account was suspended after %d moderation strikes.", flag.Strikes)
	if _, err := m.Ban(ctx, userID, msg); err != nil {
		return flag, err
	}
	return flag, nil
}

// Ban marks the user banned and notifies them.
func (m *ModerationActions) Ban(ctx context.Context, userID, message string) (*models.User, error) {
	banned := true
	user, err := m.store.UpdateUser(ctx, userID, models.UserUpdate{Banned: &banned})
	if err != nil {
		return nil, translate(err, "ban user", ErrUserNotFound)
	}
	if message == "" {
		message = "Your account has been suspended by a moderator."
	}
	if _, err := m.notifier.Notify(ctx, userID, models.ActivityBan, message, nil); err != nil {
		m.log.Error("ban notice failed", zap.String("user_id", userID), zap.Error(err))
	}
	dropLeaderboard(ctx, m.cache, m.log)
	m.log.Warn("user banned", zap.String("user_id", userID))
	return user, nil
}

// Unban lifts a ban and clears the user's strikes so the next strike does
// not immediately re-ban them.
func (m *ModerationActions) Unban(ctx context.Context, userID string) (*models.User, error) {
	banned := false
	user, err := m.store.UpdateUser(ctx, userID, models.UserUpdate{Banned: &banned})
	if err != nil {
		return nil, translate(err, "unban user", ErrUserNotFound)
	}
	if err := m.store.DeleteFlag(ctx, userID); err != nil {
		m.log.Warn("clearing strikes failed", zap.String("user_id", userID), zap.Error(err))
	}
	dropLeaderboard(ctx, m.cache, m.log)
	return user, nil
}

// StrikeAndClearPhoto removes a rejected profile photo, records a strike and
// tells the user why.
func (m *ModerationActions) StrikeAndClearPhoto(ctx context.Context, userID, photoURL string) error {
	if userID == "" {
		return nil
	}

	user, err := m.store.GetUser(ctx, userID)
	if err != nil {
		return translate(err, "load user", ErrUserNotFound)
	}
	if user.PhotoURL == photoURL {
		empty := ""
		if _, err := m.store.UpdateUser(ctx, userID, models.UserUpdate{PhotoURL: &empty}); err != nil {
			return translate(err, "clear photo", ErrUserNotFound)
		}
	}

	snapshot := &models.ContentSnapshot{Kind: "image", ID: photoURL}
	if _, err := m.notifier.Notify(ctx, userID, models.ActivityWarning,
		"An image you uploaded was removed because it violates the community guidelines.", snapshot); err != nil {
		m.log.Error("image warning failed", zap.String("user_id", userID), zap.Error(err))
	}

	_, err = m.Strike(ctx, userID)
	return err
}
