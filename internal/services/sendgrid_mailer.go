package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/asktopedia/backend/internal/models"
)

// Mailer delivers activity notices by email.
type Mailer interface {
	SendActivityEmail(ctx context.Context, toEmail, toName string, a *models.Activity) error
}

// SupportMailer delivers contact-form messages to the support inbox.
type SupportMailer interface {
	SendSupportEmail(ctx context.Context, msg *models.SupportMessage) error
}

type SendGridMailer struct {
	APIKey       string
	FromEmail    string
	SupportEmail string
	HTTPClient   *http.Client
	Endpoint     string
}

func NewSendGridMailer(apiKey, fromEmail, supportEmail string) *SendGridMailer {
	return &SendGridMailer{
		APIKey:       strings.TrimSpace(apiKey),
		FromEmail:    strings.TrimSpace(fromEmail),
		SupportEmail: strings.TrimSpace(supportEmail),
		Endpoint:     "https://api.sendgrid.com/v3/mail/send",
		HTTPClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sendGridEmailAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sendGridPersonalization struct {
	To         []sendGridEmailAddress `json:"to"`
	Subject    string                 `json:"subject"`
	CustomArgs map[string]string      `json:"custom_args,omitempty"`
}

type sendGridMailSendRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             sendGridEmailAddress      `json:"from"`
	Content          []sendGridContent         `json:"content"`
}

var activitySubjects = map[models.ActivityType]string{
	models.ActivityWarning: "Asktopedia: moderation warning",
	models.ActivityInfo:    "Asktopedia: notice from the moderators",
	models.ActivityBan:     "Asktopedia: your account has been suspended",
}

func activityBody(toName string, a *models.Activity) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Hi %s,\n\n%s\n", strings.TrimSpace(toName), strings.TrimSpace(a.Message))
	if c := a.Content; c != nil {
		b.WriteString("\nRelated content:\n")
		if c.Title != "" {
			fmt.Fprintf(&b, "  %s\n", c.Title)
		}
		if c.Text != "" {
			fmt.Fprintf(&b, "  %s\n", c.Text)
		}
	}
	b.WriteString("\n- The Asktopedia moderation team\n")
	return b.String()
}

func (m *SendGridMailer) SendActivityEmail(ctx context.Context, toEmail, toName string, a *models.Activity) error {
	subject, ok := activitySubjects[a.Type]
	if !ok {
		subject = "Asktopedia notification"
	}
	return m.send(ctx, sendGridPersonalization{
		To:      []sendGridEmailAddress{{Email: strings.TrimSpace(toEmail), Name: strings.TrimSpace(toName)}},
		Subject: subject,
		CustomArgs: map[string]string{
			"activity_id":   a.ID,
			"activity_type": string(a.Type),
		},
	}, activityBody(toName, a))
}

// SendSupportEmail forwards a contact-form message to the support inbox.
func (m *SendGridMailer) SendSupportEmail(ctx context.Context, msg *models.SupportMessage) error {
	if m == nil || m.SupportEmail == "" {
		return fmt.Errorf("missing SUPPORT_EMAIL")
	}
	body := fmt.Sprintf("Ticket: %s\nFrom: %s <%s>\nUser: %s\n\n%s\n",
		msg.Ticket, msg.Name, msg.Email, orDefault(msg.UserID, "anonymous"), msg.Message)
	return m.send(ctx, sendGridPersonalization{
		To:         []sendGridEmailAddress{{Email: m.SupportEmail}},
		Subject:    "Asktopedia support request " + msg.Ticket,
		CustomArgs: map[string]string{"ticket": msg.Ticket},
	}, body)
}

func (m *SendGridMailer) send(ctx context.Context, p sendGridPersonalization, body string) error {
	if m == nil {
		return fmt.Errorf("sendgrid mailer not configured")
	}
	if m.APIKey == "" {
		return fmt.Errorf("missing SENDGRID_API_KEY")
	}
	if m.FromEmail == "" {
		return fmt.Errorf("missing MAIL_FROM_EMAIL")
	}
	if len(p.To) == 0 || p.To[0].Email == "" {
		return fmt.Errorf("missing recipient email")
	}

	reqBody := sendGridMailSendRequest{
		Personalizations: []sendGridPersonalization{p},
		From: sendGridEmailAddress{
			Email: m.FromEmail,
			Name:  "Asktopedia",
		},
		Content: []sendGridContent{
			{Type: "text/plain", Value: body},
		},
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, m.Endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+m.APIKey)
	req.Header.Set("Content-Type", "application/json")

	client := m.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// SendGrid returns 202 Accepted on success.
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("sendgrid mail send http %d", resp.StatusCode)
	}
	return nil
}
