package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/youdub-team/youdub-backend/pkg/config"
)

// Notifier sends transactional email to users.
type Notifier interface {
	SendFirstDubCompleted(ctx context.Context, toEmail, displayName, mixedAudioURL string) error
}

// ResendClient is a minimal client for the Resend email API
type ResendClient struct {
	apiKey    string
	baseURL   string
	fromEmail string
	client    *http.Client
}

// NewResendClient creates a Resend client using values from the provided
// config. Pass a nil config to fall back to environment variables.
func NewResendClient(cfg *config.ResendConfig) *ResendClient {
	var apiKey string
	if cfg != nil {
		apiKey = cfg.APIKey
	}
	if apiKey == "" {
		apiKey = os.Getenv("RESEND_API_KEY")
	}

	var base string
	if cfg != nil && cfg.BaseURL != "" {
		base = cfg.BaseURL
	} else {
		base = os.Getenv("RESEND_API_URL")
		if base == "" {
			base = "https://api.resend.com"
		}
	}

	var from string
	if cfg != nil && cfg.FromEmail != "" {
		from = cfg.FromEmail
	} else {
		from = "YouDub <no-reply@youdub.app>"
	}

	return &ResendClient{
		apiKey:    apiKey,
		baseURL:   base,
		fromEmail: from,
		client:    &http.Client{Timeout: 15 * time.Second},
	}
}

// emailRequest is the shape for Resend send requests
type emailRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// SendFirstDubCompleted congratulates a user on finishing their first dub
func (r *ResendClient) SendFirstDubCompleted(ctx context.Context, toEmail, displayName, mixedAudioURL string) error {
	if r.apiKey == "" {
		return fmt.Errorf("resend api key not configured")
	}

	name := displayName
	if name == "" {
		name = "there"
	}

	reqBody := emailRequest{
		From:    r.fromEmail,
		To:      []string{toEmail},
		Subject: "Your first dub is live! 🎙️",
		HTML: fmt.Sprintf(
			"<p>Hi %s,</p><p>Congratulations on completing your first dub! "+
				"Your voice is now part of the scene.</p>"+
				"<p><a href=%q>Listen to your mix</a></p>"+
				"<p>— The YouDub team</p>",
			name, mixedAudioURL),
	}

	b, err := json.Marshal(reqBody)
	if err != nil {
		return err
	}

	endpoint := r.baseURL + "/emails"
	req, err := http.NewRequestWithContext(ctx, "POST", endpoint, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+r.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("resend returned status %d", resp.StatusCode)
	}
	return nil
}
