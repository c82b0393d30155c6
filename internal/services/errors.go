package services

import (
	"errors"
	"fmt"

	"github.com/asktopedia/backend/internal/storage"
)

var (
	ErrUserNotFound       = errors.New("user not found")
	ErrEmailExists        = errors.New("email or username already registered")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserBanned         = errors.New("account is banned")
	ErrCaptchaFailed      = errors.New("captcha verification failed")

	ErrSupportUnavailable = errors.New("support requests are not available right now")

	ErrForbidden = errors.New("not authorized to perform this action")

	ErrQuestionNotFound = errors.New("question not found")
	ErrAnswerNotFound   = errors.New("answer not found")
	ErrSelfVote         = errors.New("you cannot vote on your own content")
	ErrAlreadyVoted     = errors.New("you have already voted on this")

	ErrBadgeExists   = errors.New("a badge with this name already exists")
	ErrBadgeNameless = errors.New("badge name is required")

	ErrReportNotFound   = errors.New("report not found")
	ErrActivityNotFound = errors.New("activity not found")
	ErrMeetupNotFound   = errors.New("meetup not found")

	ErrImageNotFound = errors.New("image not found")
	ErrInvalidImage  = errors.New("invalid image file")
	// ErrImageRejected is returned when SafeSearch flags an image as unsafe.
	ErrImageRejected = errors.New("image rejected: violates community guidelines")
)

// translate maps storage.ErrNotFound onto the caller's domain error and wraps
// anything else with op for context.
func translate(err error, op string, notFound error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, storage.ErrNotFound) && notFound != nil {
		return notFound
	}
	return fmt.Errorf("%s: %w", op, err)
}
