package models

import "time"

type Answer struct {
	ID         string    `json:"id" bson:"_id"`
	QuestionID string    `json:"question_id" bson:"question_id"`
	UserID     string    `json:"user_id" bson:"user_id"`
	Text       string    `json:"text" bson:"text"`
	Upvotes    int       `json:"upvotes" bson:"upvotes"`
	Downvotes  int       `json:"downvotes" bson:"downvotes"`
	Voters     []string  `json:"voters" bson:"voters"`
	IsAccepted bool      `json:"is_accepted" bson:"is_accepted"`
	CreatedAt  time.Time `json:"created_at" bson:"created_at"`
}

func (a *Answer) HasVoter(userID string) bool {
	return containsString(a.Voters, userID)
}

type CreateAnswerRequest struct {
	QuestionID string `json:"question_id" validate:"required"`
	Text       string `json:"text" validate:"required,min=5,max=20000"`
}

func (r *CreateAnswerRequest) Validate() map[string]string {
	return validateStruct(r)
}
