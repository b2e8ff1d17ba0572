package channel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// PushSender delivers notifications to a push webhook endpoint via HTTP POST.
type PushSender struct {
	url        string
	httpClient *http.Client
}

// NewPushSender creates a new push sender targeting the given webhook URL.
func NewPushSender(url string) *PushSender {
	return &PushSender{
		url: url,
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Name returns the channel name.
func (s *PushSender) Name() string { return "push" }

// Target returns the webhook URL.
func (s *PushSender) Target() string { return s.url }

// Send posts the notification payload to the webhook.
func (s *PushSender) Send(ctx context.Context, n *Notification) error {
	if s.url == "" {
		return fmt.Errorf("push webhook URL is required")
	}
	if !isValidURL(s.url) {
		return fmt.Errorf("invalid push webhook URL: %q (must be a valid HTTP/HTTPS URL)", s.url)
	}

	body, err := json.Marshal(BuildPushPayload(n))
	if err != nil {
		return fmt.Errorf("failed to marshal push payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send push notification: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("push webhook returned status %d", resp.StatusCode)
	}

	slog.Info("Sent push notification",
		"alert_id", n.AlertID,
		"severity", n.Severity,
		"webhook_url", s.url,
	)
	return nil
}

func isValidURL(raw string) bool {
	return strings.HasPrefix(raw, "http://") || strings.HasPrefix(raw, "https://")
}
