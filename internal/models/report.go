package models

import "time"

type ReportReason string

const (
	ReasonSpam      ReportReason = "spam"
	ReasonOffensive ReportReason = "offensive"
	ReasonOffTopic  ReportReason = "off_topic"
	ReasonDuplicate ReportReason = "duplicate"
	ReasonOther     ReportReason = "other"
)

type ReportStatus string

const (
	ReportPending  ReportStatus = "pending"
	ReportReviewed ReportStatus = "reviewed"
	ReportResolved ReportStatus = "resolved"
)

func (s ReportStatus) Valid() bool {
	switch s {
	case ReportPending, ReportReviewed, ReportResolved:
		return true
	}
	return false
}

// Report targets exactly one of QuestionID or AnswerID.
type Report struct {
	ID         string       `json:"id" bson:"_id"`
	ReporterID string       `json:"reporter_id" bson:"reporter_id"`
	QuestionID string       `json:"question_id,omitempty" bson:"question_id,omitempty"`
	AnswerID   string       `json:"answer_id,omitempty" bson:"answer_id,omitempty"`
	Reason     ReportReason `json:"reason" bson:"reason"`
	Details    string       `json:"details,omitempty" bson:"details,omitempty"`
	Status     ReportStatus `json:"status" bson:"status"`
	CreatedAt  time.Time    `json:"created_at" bson:"created_at"`
	UpdatedAt  time.Time    `json:"updated_at" bson:"updated_at"`
}

type CreateReportRequest struct {
	QuestionID string       `json:"question_id"`
	AnswerID   string       `json:"answer_id"`
	Reason     ReportReason `json:"reason" validate:"required,oneof=spam offensive off_topic duplicate other"`
	Details    string       `json:"details" validate:"max=2000"`
}

func (r *CreateReportRequest) Validate() map[string]string {
	errors := validateStruct(r)

	hasQ := r.QuestionID != ""
	hasA := r.AnswerID != ""
	if hasQ == hasA {
		errors["target"] = "Exactly one of question_id or answer_id is required"
	}
	return errors
}

type UpdateReportRequest struct {
	Status ReportStatus `json:"status" validate:"required,oneof=pending reviewed resolved"`
}

func (r *UpdateReportRequest) Validate() map[string]string {
	return validateStruct(r)
}

type ResolveAction string

const (
	ResolveDismiss       ResolveAction = "dismiss"
	ResolveWarn          ResolveAction = "warn"
	ResolveDeleteContent ResolveAction = "delete_content"
)

type ResolveReportRequest struct {
	Action  ResolveAction `json:"action" validate:"required,oneof=dismiss warn delete_content"`
	Message string        `json:"message" validate:"max=2000"`
}

func (r *ResolveReportRequest) Validate() map[string]string {
	return validateStruct(r)
}
