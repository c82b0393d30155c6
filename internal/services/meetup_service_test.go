package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/asktopedia/backend/internal/models"
)

func meetupRequest(title string, lat, lng float64) *models.CreateMeetupRequest {
	start := time.Now().Add(24 * time.Hour).UTC()
	return &models.CreateMeetupRequest{
		Title:       "  " + title + "  ",
		Description: "Weekly study group",
		Address:     "Main St",
		Latitude:    lat,
		Longitude:   lng,
		StartDate:   start,
		EndDate:     start.Add(2 * time.Hour),
	}
}

func TestMeetupLifecycle(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewMeetupService(env.store)
	owner := env.createUser(t, "alice")
	other := env.createUser(t, "bob")
	admin := env.createAdmin(t, "root")

	m, err := svc.Create(ctx, owner.ID, meetupRequest("Go night", 40.7128, -74.0060))
	require.NoError(t, err)
	assert.Equal(t, "Go night", m.Title)
	assert.Empty(t, m.Attendees)

	_, err = svc.Update(ctx, other.ID, m.ID, meetupRequest("Hijack", 0, 1))
	assert.ErrorIs(t, err, ErrForbidden)
	_, err = svc.Update(ctx, admin.ID, m.ID, meetupRequest("Admin edit", 0, 1))
	assert.ErrorIs(t, err, ErrForbidden)

	updated, err := svc.Update(ctx, owner.ID, m.ID, meetupRequest("Go night v2", 40.7128, -74.0060))
	require.NoError(t, err)
	assert.Equal(t, "Go night v2", updated.Title)

	joined, err := svc.SetAttendance(ctx, other.ID, m.ID, true)
	require.NoError(t, err)
	assert.Equal(t, []string{other.ID}, joined.Attendees)
	joined, err = svc.SetAttendance(ctx, other.ID, m.ID, true)
	require.NoError(t, err)
	assert.Len(t, joined.Attendees, 1)
	left, err := svc.SetAttendance(ctx, other.ID, m.ID, false)
	require.NoError(t, err)
	assert.Empty(t, left.Attendees)

	assert.ErrorIs(t, svc.Delete(ctx, other, m.ID), ErrForbidden)
	require.NoError(t, svc.Delete(ctx, admin, m.ID))
	_, err = svc.GetByID(ctx, m.ID)
	assert.ErrorIs(t, err, ErrMeetupNotFound)
}

func TestMeetupQueries(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	svc := NewMeetupService(env.store)
	owner := env.createUser(t, "alice")

	// Manhattan and Brooklyn are a few miles apart; Boston is ~190 miles away.
	_, err := svc.Create(ctx, owner.ID, meetupRequest("Manhattan gophers", 40.7831, -73.9712))
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner.ID, meetupRequest("Brooklyn rustaceans", 40.6782, -73.9442))
	require.NoError(t, err)
	_, err = svc.Create(ctx, owner.ID, meetupRequest("Boston gophers", 42.3601, -71.0589))
	require.NoError(t, err)

	near, err := svc.Nearby(ctx, 40.7128, -74.0060, 0)
	require.NoError(t, err)
	assert.Len(t, near, 2)

	wide, err := svc.Nearby(ctx, 40.7128, -74.0060, 10_000)
	require.NoError(t, err)
	assert.Len(t, wide, 3)

	found, err := svc.Search(ctx, 40.7128, -74.0060, 0, "GOPHERS")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Manhattan gophers", found[0].Title)

	empty, err := svc.Search(ctx, 40.7128, -74.0060, 0, "   ")
	require.NoError(t, err)
	assert.Empty(t, empty)

	boxed, err := svc.InBounds(ctx, models.Bounds{MinLat: 42, MaxLat: 43, MinLng: -72, MaxLng: -70})
	require.NoError(t, err)
	require.Len(t, boxed, 1)
	assert.Equal(t, "Boston gophers", boxed[0].Title)

	mine, err := svc.Mine(ctx, owner.ID)
	require.NoError(t, err)
	assert.Len(t, mine, 3)
}

func TestNormalizeRadius(t *testing.T) {
	assert.Equal(t, DefaultRadiusMi, normalizeRadius(0))
	assert.Equal(t, DefaultRadiusMi, normalizeRadius(-3))
	assert.Equal(t, 25.0, normalizeRadius(25))
	assert.Equal(t, MaxRadiusMi, normalizeRadius(9000))
}
