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

// SMSSender delivers notifications through an HTTP SMS gateway that fans the
// message out to the configured recipients.
type SMSSender struct {
	gatewayURL string
	recipients []string
	httpClient *http.Client
}

// NewSMSSender creates a new SMS sender. Recipients is a comma-separated
// list of phone numbers.
func NewSMSSender(gatewayURL, recipients string) *SMSSender {
	return &SMSSender{
		gatewayURL: gatewayURL,
		recipients: parseRecipients(recipients),
		httpClient: &http.Client{
			Timeout: 5 * time.Second,
		},
	}
}

// Name returns the channel name.
func (s *SMSSender) Name() string { return "sms" }

// Target returns the gateway URL.
func (s *SMSSender) Target() string { return s.gatewayURL }

type smsRequest struct {
	To   []string `json:"to"`
	Text string   `json:"text"`
}

// Send posts the notification text to the SMS gateway.
func (s *SMSSender) Send(ctx context.Context, n *Notification) error {
	if s.gatewayURL == "" {
		return fmt.Errorf("sms gateway URL is required")
	}
	if len(s.recipients) == 0 {
		return fmt.Errorf("sms recipient is required")
	}

	body, err := json.Marshal(smsRequest{
		To:   s.recipients,
		Text: BuildSMSText(n),
	})
	if err != nil {
		return fmt.Errorf("failed to marshal sms request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.gatewayURL, bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("failed to create HTTP request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	slog.Info("Sent sms notification",
		"alert_id", n.AlertID,
		"severity", n.Severity,
		"recipients", len(s.recipients),
	)
	return nil
}

// parseRecipients splits a comma-separated recipient list, dropping empty
// entries.
func parseRecipients(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
