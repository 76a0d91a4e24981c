package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// WebhookAuthenticator asks an external approval service to confirm a send.
// The timeout is generous because a human may be on the other end; callers
// can still cancel earlier through the context.
type WebhookAuthenticator struct {
	url    string
	client *http.Client
}

func NewWebhookAuthenticator(url string) *WebhookAuthenticator {
	return &WebhookAuthenticator{
		url: url,
		client: &http.Client{
			Timeout: 60 * time.Second,
		},
	}
}

type authRequest struct {
	Prompt string `json:"prompt"`
}

type authResponse struct {
	Decision string `json:"decision"`
	Reason   string `json:"reason"`
}

func (a *WebhookAuthenticator) Authenticate(ctx context.Context, prompt string) (Decision, error) {
	reqBody, err := json.Marshal(authRequest{Prompt: prompt})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.url, bytes.NewReader(reqBody))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("unexpected status code: %d body=%q", resp.StatusCode, string(body))
	}

	var ar authResponse
	if err := json.Unmarshal(body, &ar); err != nil {
		return "", fmt.Errorf("failed to decode json: %w body=%q", err, string(body))
	}

	switch Decision(strings.ToLower(ar.Decision)) {
	case Approved:
		return Approved, nil
	case Denied:
		return Denied, nil
	case Cancelled:
		return Cancelled, nil
	default:
		return "", fmt.Errorf("unknown decision %q body=%q", ar.Decision, string(body))
	}
}
