package channel

import (
	"fmt"
	"strings"
	"time"
)

// PushPayload is the JSON body posted to push webhook endpoints.
type PushPayload struct {
	AlertID   string `json:"alert_id"`
	Category  string `json:"category"`
	Scope     string `json:"scope"`
	Severity  string `json:"severity"`
	Reason    string `json:"reason"`
	Title     string `json:"title"`
	Timestamp string `json:"timestamp"`
}

// BuildPushPayload builds a push payload from a notification.
func BuildPushPayload(n *Notification) PushPayload {
	return PushPayload{
		AlertID:   n.AlertID,
		Category:  n.Category,
		Scope:     n.Scope,
		Severity:  n.Severity,
		Reason:    n.Reason,
		Title:     Title(n),
		Timestamp: time.Unix(n.EventTS, 0).UTC().Format(time.RFC3339),
	}
}

// Title builds the one-line headline used across channels.
func Title(n *Notification) string {
	return fmt.Sprintf("[%s] %s hazard alert for %s", n.Severity, categoryLabel(n.Category), n.Scope)
}

// BuildSMSText builds the compact text used for SMS delivery.
func BuildSMSText(n *Notification) string {
	return fmt.Sprintf("%s (%s). Alert %s.", Title(n), strings.ToLower(n.Reason), n.AlertID)
}

// EmailPayload represents email message content.
type EmailPayload struct {
	Subject string
	Body    string
}

// BuildEmailPayload builds email subject and body from a notification.
func BuildEmailPayload(n *Notification) EmailPayload {
	var sb strings.Builder
	sb.WriteString("Hazard Alert\n")
	sb.WriteString("============\n\n")
	sb.WriteString(fmt.Sprintf("Severity: %s\n", n.Severity))
	sb.WriteString(fmt.Sprintf("Category: %s\n", n.Category))
	sb.WriteString(fmt.Sprintf("Scope: %s\n", n.Scope))
	sb.WriteString(fmt.Sprintf("Reason: %s\n", n.Reason))
	sb.WriteString(fmt.Sprintf("Alert ID: %s\n", n.AlertID))
	sb.WriteString(fmt.Sprintf("Observed: %s\n", time.Unix(n.EventTS, 0).UTC().Format(time.RFC3339)))

	return EmailPayload{
		Subject: Title(n),
		Body:    sb.String(),
	}
}

func categoryLabel(category string) string {
	switch category {
	case "KP_INDEX":
		return "Geomagnetic storm"
	case "CME":
		return "Solar ejection"
	case "EARTHQUAKE":
		return "Earthquake"
	case "WATER_LEVEL":
		return "Flood"
	default:
		return category
	}
}
