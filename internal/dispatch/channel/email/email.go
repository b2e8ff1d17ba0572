// Package email implements the email delivery channel on top of the
// provider registry.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/aiscientist/hazardwatch/internal/dispatch/channel"
	"github.com/aiscientist/hazardwatch/internal/dispatch/channel/email/provider"
)

// Sender implements the email delivery channel.
type Sender struct {
	from       string
	recipients []string
	registry   *provider.Registry
}

// NewSender creates an email sender with the default provider registry
// (Resend primary, SES fallback). Recipients is a comma-separated list of
// addresses.
func NewSender(from, recipients string) *Sender {
	registry := provider.NewRegistry()
	registry.Register(provider.NewResendProvider())
	registry.Register(provider.NewSESProvider())
	registry.SetPrimary("resend")
	registry.SetFallback("ses")

	return NewSenderWithRegistry(from, recipients, registry)
}

// NewSenderWithRegistry creates an email sender with a custom provider
// registry. Used by tests.
func NewSenderWithRegistry(from, recipients string, registry *provider.Registry) *Sender {
	return &Sender{
		from:       from,
		recipients: parseRecipients(recipients),
		registry:   registry,
	}
}

// Name returns the channel name.
func (s *Sender) Name() string { return "email" }

// Target returns the recipient list.
func (s *Sender) Target() string { return strings.Join(s.recipients, ",") }

// Send delivers the notification as an email through the best available
// provider.
func (s *Sender) Send(ctx context.Context, n *channel.Notification) error {
	if len(s.recipients) == 0 {
		return fmt.Errorf("email recipient is required")
	}
	for _, r := range s.recipients {
		if !strings.Contains(r, "@") {
			return fmt.Errorf("invalid email address format: %q", r)
		}
	}

	payload := channel.BuildEmailPayload(n)

	err := s.registry.Send(ctx, &provider.EmailRequest{
		From:    s.from,
		To:      s.recipients,
		Subject: payload.Subject,
		Body:    payload.Body,
	})
	if err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	slog.Info("Sent email notification",
		"alert_id", n.AlertID,
		"severity", n.Severity,
		"to", len(s.recipients),
	)
	return nil
}

func parseRecipients(raw string) []string {
	var out []string
	for _, r := range strings.Split(raw, ",") {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	return out
}
