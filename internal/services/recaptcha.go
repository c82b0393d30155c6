package services

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// CaptchaVerifier guards registration against bots.
type CaptchaVerifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

type RecaptchaVerifier struct {
	Secret     string
	HTTPClient *http.Client
	Endpoint   string
}

type recaptchaVerifyResponse struct {
	Success    bool     `json:"success"`
	Hostname   string   `json:"hostname"`
	ErrorCodes []string `json:"error-codes"`
}

func NewRecaptchaVerifier(secret string) *RecaptchaVerifier {
	return &RecaptchaVerifier{
		Secret:   strings.TrimSpace(secret),
		Endpoint: "https://www.google.com/recaptcha/api/siteverify",
		HTTPClient: &http.Client{
			Timeout: 8 * time.Second,
		},
	}
}

// Verify checks a reCAPTCHA v2 token. A rejected token yields an error
// wrapping ErrCaptchaFailed; transport failures are returned as is.
func (v *RecaptchaVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	if v.Secret == "" {
		return fmt.Errorf("%w: verifier not configured", ErrCaptchaFailed)
	}
	tok := strings.TrimSpace(token)
	if tok == "" {
		return fmt.Errorf("%w: missing token", ErrCaptchaFailed)
	}

	form := url.Values{}
	form.Set("secret", v.Secret)
	form.Set("response", tok)
	if ip := strings.TrimSpace(remoteIP); ip != "" {
		form.Set("remoteip", ip)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, v.Endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	client := v.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 8 * time.Second}
	}

	resp, err := client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("recaptcha verify http %d", resp.StatusCode)
	}

	var out recaptchaVerifyResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return err
	}
	if out.Success {
		return nil
	}
	reason := "verification_failed"
	if len(out.ErrorCodes) > 0 {
		reason = strings.Join(out.ErrorCodes, ",")
	}
	return fmt.Errorf("%w: %s", ErrCaptchaFailed, reason)
}
