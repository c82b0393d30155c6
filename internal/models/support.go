package models

import "strings"

type SupportRequest struct {
	Name           string `json:"name" validate:"required,max=120"`
	Email          string `json:"email" validate:"required,max=254,email"`
	Message        string `json:"message" validate:"required,max=4000"`
	RecaptchaToken string `json:"recaptchaToken" validate:"required"`
}

func (r *SupportRequest) Validate() map[string]string {
	r.Name = strings.TrimSpace(r.Name)
	r.Email = strings.TrimSpace(r.Email)
	r.Message = strings.TrimSpace(r.Message)
	r.RecaptchaToken = strings.TrimSpace(r.RecaptchaToken)
	return validateStruct(r)
}

// SupportMessage is what gets forwarded to the support inbox.
type SupportMessage struct {
	Ticket  string
	UserID  string
	Name    string
	Email   string
	Message string
}
