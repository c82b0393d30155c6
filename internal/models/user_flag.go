package models

import "time"

// UserFlag counts the moderation strikes held against an account. It is
// keyed by user id and removed when the user is unbanned or deleted.
type UserFlag struct {
	UserID       string    `json:"user_id" bson:"user_id"`
	Strikes      int       `json:"strikes" bson:"strikes"`
	LastStrikeAt time.Time `json:"last_strike_at" bson:"last_strike_at"`
	UpdatedAt    time.Time `json:"updated_at" bson:"updated_at"`
}

// Exceeds reports whether the strike count has reached limit.
func (f *UserFlag) Exceeds(limit int) bool {
	return f != nil && limit > 0 && f.Strikes >= limit
}
