package models

import (
	"strings"
	"time"
)

type Question struct {
	ID          string    `json:"id" bson:"_id"`
	Title       string    `json:"title" bson:"title"`
	Description string    `json:"description" bson:"description"`
	Tags        []string  `json:"tags" bson:"tags"`
	UserID      string    `json:"user_id" bson:"user_id"`
	AnswerIDs   []string  `json:"answer_ids" bson:"answer_ids"`
	Upvotes     int       `json:"upvotes" bson:"upvotes"`
	Downvotes   int       `json:"downvotes" bson:"downvotes"`
	Voters      []string  `json:"voters" bson:"voters"`
	CreatedAt   time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" bson:"updated_at"`
}

func (q *Question) HasVoter(userID string) bool {
	return containsString(q.Voters, userID)
}

// QuestionWithAnswers is the detail view of a question.
type QuestionWithAnswers struct {
	Question
	Answers []*Answer `json:"answers"`
}

type CreateQuestionRequest struct {
	Title       string   `json:"title" validate:"required,min=10,max=200"`
	Description string   `json:"description" validate:"required,min=20,max=20000"`
	Tags        []string `json:"tags" validate:"max=5,dive,required,max=32"`
}

func (r *CreateQuestionRequest) Validate() map[string]string {
	return validateStruct(r)
}

// NormalizedTags lowercases, trims and dedupes tags, keeping input order.
func (r *CreateQuestionRequest) NormalizedTags() []string {
	out := make([]string, 0, len(r.Tags))
	seen := make(map[string]struct{}, len(r.Tags))
	for _, t := range r.Tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" {
			continue
		}
		if _, ok := seen[t]; ok {
			continue
		}
		seen[t] = struct{}{}
		out = append(out, t)
	}
	return out
}

// QuestionFilter narrows question listings. Zero values mean "any".
type QuestionFilter struct {
	Tag    string
	UserID string
	Search string
	Limit  int
	Skip   int
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
