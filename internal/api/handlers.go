// Package api provides the HTTP handlers for alert queries, acknowledgement,
// and service metrics.
package api

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/aiscientist/hazardwatch/internal/lifecycle"
)

// Handlers wraps dependencies for HTTP handlers.
type Handlers struct {
	repo    AlertRepository
	reader  ServiceMetricsReader
	metrics MetricsRecorder
}

// NewHandlers creates a new handlers instance. If m is nil, a no-op metrics
// implementation is used.
func NewHandlers(repo AlertRepository, reader ServiceMetricsReader, m MetricsRecorder) *Handlers {
	if m == nil {
		m = NoOpMetrics{}
	}
	return &Handlers{
		repo:    repo,
		reader:  reader,
		metrics: m,
	}
}

// AlertResponse is the JSON shape of an alert.
type AlertResponse struct {
	AlertID                  string   `json:"alert_id"`
	Category                 string   `json:"category"`
	Scope                    string   `json:"scope"`
	Severity                 string   `json:"severity"`
	Status                   string   `json:"status"`
	TriggeringMeasurementIDs []string `json:"triggering_measurement_ids"`
	AcknowledgedBy           string   `json:"acknowledged_by,omitempty"`
	CreatedAt                string   `json:"created_at"`
	UpdatedAt                string   `json:"updated_at"`
	ExpiresAt                string   `json:"expires_at"`
}

func toAlertResponse(a *lifecycle.Alert) AlertResponse {
	resp := AlertResponse{
		AlertID:                  a.AlertID,
		Category:                 a.Category,
		Scope:                    a.Scope,
		Severity:                 a.Severity,
		Status:                   a.Status,
		TriggeringMeasurementIDs: a.TriggeringMeasurementIDs,
		CreatedAt:                a.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:                a.UpdatedAt.UTC().Format(time.RFC3339),
		ExpiresAt:                a.ExpiresAt.UTC().Format(time.RFC3339),
	}
	if a.AcknowledgedBy.Valid {
		resp.AcknowledgedBy = a.AcknowledgedBy.String
	}
	return resp
}

// ListAlerts handles GET /api/v1/alerts with optional status, severity,
// category, scope, limit, and offset query parameters.
func (h *Handlers) ListAlerts(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}
	h.listAlerts(w, r, filter)
}

// ActiveAlerts handles GET /api/v1/alerts/active. Equivalent to filtering
// by ACTIVE status; the lazy expiry predicate keeps overdue alerts out.
func (h *Handlers) ActiveAlerts(w http.ResponseWriter, r *http.Request) {
	filter, ok := parseListFilter(w, r)
	if !ok {
		return
	}
	filter.Status = lifecycle.StatusActive
	h.listAlerts(w, r, filter)
}

func (h *Handlers) listAlerts(w http.ResponseWriter, r *http.Request, filter lifecycle.ListFilter) {
	alerts, err := h.repo.ListAlerts(r.Context(), filter)
	if handleStoreError(w, err, "") {
		return
	}

	resp := make([]AlertResponse, 0, len(alerts))
	for _, a := range alerts {
		resp = append(resp, toAlertResponse(a))
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"alerts": resp,
		"count":  len(resp),
	})
}

// GetAlert handles GET /api/v1/alerts?alert_id=<id>.
func (h *Handlers) GetAlert(w http.ResponseWriter, r *http.Request) {
	alertID := r.URL.Query().Get("alert_id")
	if alertID == "" {
		http.Error(w, "alert_id query parameter is required", http.StatusBadRequest)
		return
	}

	alert, err := h.repo.GetAlert(r.Context(), alertID)
	if handleStoreError(w, err, alertID) {
		return
	}
	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

// AcknowledgeRequest is the JSON body for POST /api/v1/alerts/acknowledge.
type AcknowledgeRequest struct {
	AlertID        string `json:"alert_id"`
	AcknowledgedBy string `json:"acknowledged_by"`
}

// AcknowledgeAlert handles POST /api/v1/alerts/acknowledge. Only ACTIVE
// alerts can be acknowledged.
func (h *Handlers) AcknowledgeAlert(w http.ResponseWriter, r *http.Request) {
	var req AcknowledgeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if req.AlertID == "" {
		http.Error(w, "alert_id is required", http.StatusBadRequest)
		return
	}
	if req.AcknowledgedBy == "" {
		http.Error(w, "acknowledged_by is required", http.StatusBadRequest)
		return
	}

	alert, err := h.repo.Acknowledge(r.Context(), req.AlertID, req.AcknowledgedBy)
	if handleStoreError(w, err, req.AlertID) {
		return
	}

	h.metrics.IncrementCustom("alerts_acknowledged")
	writeJSON(w, http.StatusOK, toAlertResponse(alert))
}

// GetServiceMetrics handles GET /api/v1/services/metrics, reporting the
// health of every pipeline service.
func (h *Handlers) GetServiceMetrics(w http.ResponseWriter, r *http.Request) {
	all, err := h.reader.GetAllServiceMetrics(r.Context())
	if err != nil {
		slog.Error("Failed to read service metrics", "error", err)
		http.Error(w, "Failed to read service metrics", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, all)
}

func parseListFilter(w http.ResponseWriter, r *http.Request) (lifecycle.ListFilter, bool) {
	q := r.URL.Query()
	filter := lifecycle.ListFilter{
		Status:   q.Get("status"),
		Severity: q.Get("severity"),
		Category: q.Get("category"),
		Scope:    q.Get("scope"),
	}

	if filter.Status != "" && !validStatus(filter.Status) {
		http.Error(w, "status must be one of: ACTIVE, ACKNOWLEDGED, EXPIRED", http.StatusBadRequest)
		return filter, false
	}
	if filter.Severity != "" && !events.ValidSeverity(filter.Severity) {
		http.Error(w, "severity must be one of: INFO, WARNING, CRITICAL", http.StatusBadRequest)
		return filter, false
	}
	if filter.Category != "" && !events.ValidCategory(filter.Category) {
		http.Error(w, "unknown category", http.StatusBadRequest)
		return filter, false
	}

	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			http.Error(w, "limit must be a non-negative integer", http.StatusBadRequest)
			return filter, false
		}
		filter.Limit = limit
	}
	if raw := q.Get("offset"); raw != "" {
		offset, err := strconv.Atoi(raw)
		if err != nil || offset < 0 {
			http.Error(w, "offset must be a non-negative integer", http.StatusBadRequest)
			return filter, false
		}
		filter.Offset = offset
	}

	return filter, true
}

func validStatus(status string) bool {
	switch status {
	case lifecycle.StatusActive, lifecycle.StatusAcknowledged, lifecycle.StatusExpired:
		return true
	}
	return false
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}
