package models

import (
	"strings"
	"time"
)

// Named milestone badges are matched by name and evaluated against the user's
// counters instead of the point balance.
const (
	BadgeInquisitor = "Inquisitor"
	BadgeGuru       = "Guru"

	MilestoneThreshold = 50
)

type Badge struct {
	ID             string    `json:"id" bson:"_id"`
	Name           string    `json:"name" bson:"name"`
	Description    string    `json:"description" bson:"description"`
	ImageURL       string    `json:"image_url" bson:"image_url,omitempty"`
	PointsRequired int       `json:"points_required" bson:"points_required"`
	CreatedAt      time.Time `json:"created_at" bson:"created_at"`
}

type CreateBadgeRequest struct {
	Name           string `json:"name" validate:"required,max=64"`
	Description    string `json:"description" validate:"max=500"`
	ImageURL       string `json:"image_url" validate:"omitempty,max=2048"`
	PointsRequired int    `json:"points_required" validate:"min=0"`
}

func (r *CreateBadgeRequest) Validate() map[string]string {
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	return validateStruct(r)
}
