package models

import (
	"time"
)

type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// Counter names a milestone counter on the user document.
type Counter string

const (
	CounterQuestionsAsked  Counter = "questions_asked"
	CounterAnswersAccepted Counter = "answers_accepted"
)

type User struct {
	ID              string    `json:"id" bson:"_id"`
	Username        string    `json:"username" bson:"username"`
	Email           string    `json:"email" bson:"email"`
	PasswordHash    string    `json:"-" bson:"password_hash"`
	FirebaseUID     string    `json:"-" bson:"firebase_uid,omitempty"`
	Role            Role      `json:"role" bson:"role"`
	Points          int       `json:"points" bson:"points"`
	QuestionsAsked  int       `json:"questions_asked" bson:"questions_asked"`
	AnswersAccepted int       `json:"answers_accepted" bson:"answers_accepted"`
	Badges          []string  `json:"badges" bson:"badges"`
	Bio             string    `json:"bio" bson:"bio,omitempty"`
	PhotoURL        string    `json:"photo_url" bson:"photo_url,omitempty"`
	Banned          bool      `json:"banned" bson:"banned"`
	CreatedAt       time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" bson:"updated_at"`
}

func (u *User) IsAdmin() bool {
	return u != nil && u.Role == RoleAdmin
}

func (u *User) HasBadge(badgeID string) bool {
	for _, id := range u.Badges {
		if id == badgeID {
			return true
		}
	}
	return false
}

// PublicUser is safe to share with other users (no email, no credentials).
type PublicUser struct {
	ID              string   `json:"id"`
	Username        string   `json:"username"`
	Points          int      `json:"points"`
	QuestionsAsked  int      `json:"questions_asked"`
	AnswersAccepted int      `json:"answers_accepted"`
	Badges          []string `json:"badges"`
	Bio             string   `json:"bio"`
	PhotoURL        string   `json:"photo_url"`
}

func (u *User) Public() PublicUser {
	badges := u.Badges
	if badges == nil {
		badges = []string{}
	}
	return PublicUser{
		ID:              u.ID,
		Username:        u.Username,
		Points:          u.Points,
		QuestionsAsked:  u.QuestionsAsked,
		AnswersAccepted: u.AnswersAccepted,
		Badges:          badges,
		Bio:             u.Bio,
		PhotoURL:        u.PhotoURL,
	}
}

// UserUpdate carries a partial update; nil fields are left untouched.
type UserUpdate struct {
	Username *string
	Bio      *string
	PhotoURL *string
	Role     *Role
	Banned   *bool
}

type RegisterRequest struct {
	Username       string `json:"username" validate:"required,min=3,max=32,alphanum"`
	Email          string `json:"email" validate:"required,email,max=254"`
	Password       string `json:"password" validate:"required,min=6,max=72"`
	RecaptchaToken string `json:"recaptchaToken"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type UpdateUserRequest struct {
	Username *string `json:"username" validate:"omitempty,min=3,max=32,alphanum"`
	Bio      *string `json:"bio" validate:"omitempty,max=1000"`
	PhotoURL *string `json:"photo_url" validate:"omitempty,max=2048"`
}

func (r *RegisterRequest) Validate() map[string]string {
	return validateStruct(r)
}

func (r *LoginRequest) Validate() map[string]string {
	return validateStruct(r)
}

func (r *UpdateUserRequest) Validate() map[string]string {
	return validateStruct(r)
}

// UserStats is the dashboard summary for a single user.
type UserStats struct {
	Points          int   `json:"points"`
	QuestionsAsked  int   `json:"questions_asked"`
	AnswersAccepted int   `json:"answers_accepted"`
	Questions       int64 `json:"questions"`
	Answers         int64 `json:"answers"`
	Badges          int   `json:"badges"`
	Bookmarks       int   `json:"bookmarks"`
	Rank            int   `json:"rank,omitempty"`
}
