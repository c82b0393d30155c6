package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/asktopedia/backend/internal/models"
)

// SupportService forwards contact-form messages to the support inbox.
type SupportService struct {
	captcha CaptchaVerifier
	mailer  SupportMailer
	log     *zap.Logger
	now     func() time.Time
}

// NewSupportService accepts a nil captcha to skip bot checks; a nil mailer
// makes every submission fail with ErrSupportUnavailable.
func NewSupportService(captcha CaptchaVerifier, mailer SupportMailer, log *zap.Logger) *SupportService {
	return &SupportService{captcha: captcha, mailer: mailer, log: log, now: time.Now}
}

// Submit verifies the captcha token, mails the message and returns the
// ticket reference shown to the sender. userID is empty for anonymous senders.
func (s *SupportService) Submit(ctx context.Context, userID, remoteIP string, req *models.SupportRequest) (string, error) {
	if s.mailer == nil {
		return "", ErrSupportUnavailable
	}
	if s.captcha != nil {
		if err := s.captcha.Verify(ctx, req.RecaptchaToken, remoteIP); err != nil {
			if errors.Is(err, ErrCaptchaFailed) {
				s.log.Info("support captcha rejected", zap.String("remote_ip", remoteIP), zap.Error(err))
			}
			return "", err
		}
	}

	ticket := s.ticket()
	msg := &models.SupportMessage{
		Ticket:  ticket,
		UserID:  userID,
		Name:    req.Name,
		Email:   req.Email,
		Message: req.Message,
	}
	if err := s.mailer.SendSupportEmail(ctx, msg); err != nil {
		return "", fmt.Errorf("send support email %s: %w", ticket, err)
	}
	s.log.Info("support request sent", zap.String("ticket", ticket), zap.String("user_id", userID))
	return ticket, nil
}

// ticket looks like AQ-20260131-032508-A1B2C3D4.
func (s *SupportService) ticket() string {
	stamp := s.now().UTC().Format("20060102-150405")
	id := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))
	return "AQ-" + stamp + "-" + id[:8]
}
