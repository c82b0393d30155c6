package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/asktopedia/backend/internal/models"
	"github.com/asktopedia/backend/internal/storage"
)

const (
	DefaultRadiusMi = 10.0
	MaxRadiusMi     = 500.0
	meetupListLimit = 200
)

type MeetupService struct {
	store storage.MeetupStore
}

func NewMeetupService(store storage.MeetupStore) *MeetupService {
	return &MeetupService{store: store}
}

func (s *MeetupService) Create(ctx context.Context, userID string, req *models.CreateMeetupRequest) (*models.Meetup, error) {
	m := &models.Meetup{
		ID:          uuid.New().String(),
		UserID:      userID,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Address:     req.Address,
		Latitude:    req.Latitude,
		Longitude:   req.Longitude,
		StartDate:   req.StartDate,
		EndDate:     req.EndDate,
		Attendees:   []string{},
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.store.CreateMeetup(ctx, m); err != nil {
		return nil, fmt.Errorf("create meetup: %w", err)
	}
	return m, nil
}

func (s *MeetupService) GetByID(ctx context.Context, id string) (*models.Meetup, error) {
	m, err := s.store.GetMeetup(ctx, id)
	if err != nil {
		return nil, translate(err, "load meetup", ErrMeetupNotFound)
	}
	return m, nil
}

// Update is limited to the organiser.
func (s *MeetupService) Update(ctx context.Context, userID, id string, req *models.UpdateMeetupRequest) (*models.Meetup, error) {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if m.UserID != userID {
		return nil, ErrForbidden
	}
	req.Title = strings.TrimSpace(req.Title)
	updated, err := s.store.UpdateMeetup(ctx, id, req)
	if err != nil {
		return nil, translate(err, "update meetup", ErrMeetupNotFound)
	}
	return updated, nil
}

func (s *MeetupService) Delete(ctx context.Context, actor *models.User, id string) error {
	m, err := s.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if m.UserID != actor.ID && !actor.IsAdmin() {
		return ErrForbidden
	}
	return translate(s.store.DeleteMeetup(ctx, id), "delete meetup", ErrMeetupNotFound)
}

func normalizeRadius(radiusMi float64) float64 {
	if radiusMi <= 0 {
		return DefaultRadiusMi
	}
	if radiusMi > MaxRadiusMi {
		return MaxRadiusMi
	}
	return radiusMi
}

// Nearby lists meetups within radiusMi of the point, newest first.
func (s *MeetupService) Nearby(ctx context.Context, lat, lng, radiusMi float64) ([]*models.Meetup, error) {
	list, err := s.store.ListMeetupsNearby(ctx, lat, lng, normalizeRadius(radiusMi), meetupListLimit)
	if err != nil {
		return nil, fmt.Errorf("list meetups: %w", err)
	}
	return list, nil
}

func (s *MeetupService) InBounds(ctx context.Context, b models.Bounds) ([]*models.Meetup, error) {
	list, err := s.store.ListMeetupsByBounds(ctx, b, meetupListLimit)
	if err != nil {
		return nil, fmt.Errorf("list meetups: %w", err)
	}
	return list, nil
}

// Search matches q against title and description within the radius. An
// empty query returns no results.
func (s *MeetupService) Search(ctx context.Context, lat, lng, radiusMi float64, q string) ([]*models.Meetup, error) {
	q = strings.TrimSpace(q)
	if q == "" {
		return []*models.Meetup{}, nil
	}
	list, err := s.store.SearchMeetupsNearby(ctx, lat, lng, normalizeRadius(radiusMi), q, meetupListLimit)
	if err != nil {
		return nil, fmt.Errorf("search meetups: %w", err)
	}
	return list, nil
}

func (s *MeetupService) Mine(ctx context.Context, userID string) ([]*models.Meetup, error) {
	list, err := s.store.ListMeetupsByUser(ctx, userID, meetupListLimit)
	if err != nil {
		return nil, fmt.Errorf("list meetups: %w", err)
	}
	return list, nil
}

func (s *MeetupService) SetAttendance(ctx context.Context, userID, id string, attending bool) (*models.Meetup, error) {
	m, err := s.store.SetAttendance(ctx, id, userID, attending)
	if err != nil {
		return nil, translate(err, "set attendance", ErrMeetupNotFound)
	}
	return m, nil
}
