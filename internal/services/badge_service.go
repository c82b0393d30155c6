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

type BadgeService struct {
	store reputationStore
	log   *zap.Logger
}

func NewBadgeService(store reputationStore, log *zap.Logger) *BadgeService {
	return &BadgeService{store: store, log: log}
}

// Create adds a badge to the catalog. Existing users are not re-evaluated
// until their next point change.
func (s *BadgeService) Create(ctx context.Context, req *models.CreateBadgeRequest) (*models.Badge, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, ErrBadgeNameless
	}
	b := &models.Badge{
		ID:             uuid.New().String(),
		Name:           name,
		Description:    req.Description,
		ImageURL:       req.ImageURL,
		PointsRequired: req.PointsRequired,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.store.CreateBadge(ctx, b); err != nil {
		if errors.Is(err, storage.ErrDuplicate) {
			return nil, ErrBadgeExists
		}
		return nil, fmt.Errorf("create badge: %w", err)
	}
	return b, nil
}

func (s *BadgeService) List(ctx context.Context) ([]*models.Badge, error) {
	list, err := s.store.ListBadges(ctx)
	if err != nil {
		return nil, fmt.Errorf("list badges: %w", err)
	}
	return list, nil
}

// ForUser resolves the badge IDs a user holds into catalog entries.
func (s *BadgeService) ForUser(ctx context.Context, userID string) ([]*models.Badge, error) {
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return nil, translate(err, "load user", ErrUserNotFound)
	}
	list, err := s.store.GetBadgesByIDs(ctx, user.Badges)
	if err != nil {
		return nil, fmt.Errorf("load badges: %w", err)
	}
	return list, nil
}

// SeedFromFile creates the badges listed in a JSON seed file, skipping names
// that already exist. It returns how many were created.
func (s *BadgeService) SeedFromFile(ctx context.Context, path string) (int, error) {
	seeds, err := storage.LoadBadgeSeeds(path)
	if err != nil {
		return 0, err
	}
	if len(seeds) == 0 {
		return 0, nil
	}

	existing, err := s.store.ListBadges(ctx)
	if err != nil {
		return 0, fmt.Errorf("list badges: %w", err)
	}
	have := make(map[string]struct{}, len(existing))
	for _, b := range existing {
		have[strings.ToLower(b.Name)] = struct{}{}
	}

	created := 0
	for _, seed := range seeds {
		if _, ok := have[strings.ToLower(seed.Name)]; ok {
			continue
		}
		_, err := s.Create(ctx, &models.CreateBadgeRequest{
			Name:           seed.Name,
			Description:    seed.Description,
			ImageURL:       seed.ImageURL,
			PointsRequired: seed.PointsRequired,
		})
		if errors.Is(err, ErrBadgeExists) {
			continue
		}
		if err != nil {
			return created, err
		}
		have[strings.ToLower(seed.Name)] = struct{}{}
		created++
	}
	s.log.Info("badge catalog seeded", zap.String("path", path), zap.Int("created", created))
	return created, nil
}
