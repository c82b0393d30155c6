package models

import (
	"time"
)

type Meetup struct {
	ID          string    `json:"id"`
	UserID      string    `json:"user_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Address     string    `json:"address"`
	Latitude    float64   `json:"latitude"`
	Longitude   float64   `json:"longitude"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
	Attendees   []string  `json:"attendees"`
	CreatedAt   time.Time `json:"created_at"`
}

type CreateMeetupRequest struct {
	Title       string    `json:"title" validate:"required,max=200"`
	Description string    `json:"description" validate:"max=5000"`
	Address     string    `json:"address" validate:"required,max=500"`
	Latitude    float64   `json:"latitude" validate:"latitude"`
	Longitude   float64   `json:"longitude" validate:"longitude"`
	StartDate   time.Time `json:"start_date"`
	EndDate     time.Time `json:"end_date"`
}

type UpdateMeetupRequest = CreateMeetupRequest

type ListMeetupsQuery struct {
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	RadiusMi  float64 `json:"radius"` // Radius in miles
}

// Bounds is a geographic bounding box.
type Bounds struct {
	MinLat, MaxLat float64
	MinLng, MaxLng float64
}

func (r *CreateMeetupRequest) Validate() map[string]string {
	errors := validateStruct(r)

	if r.Latitude == 0 && r.Longitude == 0 {
		errors["location"] = "Location coordinates are required"
	}
	if r.StartDate.IsZero() {
		errors["start_date"] = "Start date is required"
	}
	if r.EndDate.IsZero() {
		errors["end_date"] = "End date is required"
	}
	if !r.EndDate.IsZero() && !r.StartDate.IsZero() && r.EndDate.Before(r.StartDate) {
		errors["end_date"] = "End date must be after start date"
	}

	return errors
}
