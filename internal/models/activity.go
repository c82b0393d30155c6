package models

import "time"

type ActivityType string

const (
	ActivityWarning ActivityType = "warning"
	ActivityInfo    ActivityType = "info"
	ActivityBan     ActivityType = "ban"
)

// ContentSnapshot preserves what moderated content looked like, since the
// content itself may be deleted.
type ContentSnapshot struct {
	Kind  string `json:"kind" bson:"kind"`
	ID    string `json:"id" bson:"id"`
	Title string `json:"title,omitempty" bson:"title,omitempty"`
	Text  string `json:"text,omitempty" bson:"text,omitempty"`
}

// Activity is an append-only notice shown to a user.
type Activity struct {
	ID        string           `json:"id" bson:"_id"`
	UserID    string           `json:"user_id" bson:"user_id"`
	Type      ActivityType     `json:"type" bson:"type"`
	Message   string           `json:"message" bson:"message"`
	Content   *ContentSnapshot `json:"content,omitempty" bson:"content,omitempty"`
	Read      bool             `json:"read" bson:"read"`
	CreatedAt time.Time        `json:"created_at" bson:"created_at"`
}

type SendNoticeRequest struct {
	UserID  string       `json:"user_id" validate:"required"`
	Type    ActivityType `json:"type" validate:"required,oneof=warning info"`
	Message string       `json:"message" validate:"required,max=2000"`
}

func (r *SendNoticeRequest) Validate() map[string]string {
	return validateStruct(r)
}
