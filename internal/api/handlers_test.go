package api

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/aiscientist/hazardwatch/internal/lifecycle"
	"github.com/aiscientist/hazardwatch/pkg/metrics"
)

// fakeRepo is a test fake for AlertRepository.
type fakeRepo struct {
	alerts     map[string]*lifecycle.Alert
	listErr    error
	lastFilter lifecycle.ListFilter
}

func newFakeRepo(alerts ...*lifecycle.Alert) *fakeRepo {
	r := &fakeRepo{alerts: make(map[string]*lifecycle.Alert)}
	for _, a := range alerts {
		r.alerts[a.AlertID] = a
	}
	return r
}

func (f *fakeRepo) ListAlerts(ctx context.Context, filter lifecycle.ListFilter) ([]*lifecycle.Alert, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	f.lastFilter = filter
	var out []*lifecycle.Alert
	for _, a := range f.alerts {
		if filter.Status != "" && a.Status != filter.Status {
			continue
		}
		if filter.Severity != "" && a.Severity != filter.Severity {
			continue
		}
		out = append(out, a)
	}
	return out, nil
}

func (f *fakeRepo) GetAlert(ctx context.Context, alertID string) (*lifecycle.Alert, error) {
	a, ok := f.alerts[alertID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrNotFound, alertID)
	}
	return a, nil
}

func (f *fakeRepo) Acknowledge(ctx context.Context, alertID, actor string) (*lifecycle.Alert, error) {
	a, ok := f.alerts[alertID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", lifecycle.ErrNotFound, alertID)
	}
	if a.Status != lifecycle.StatusActive {
		return nil, fmt.Errorf("%w: alert %s is %s", lifecycle.ErrInvalidState, alertID, a.Status)
	}
	a.Status = lifecycle.StatusAcknowledged
	a.AcknowledgedBy = sql.NullString{String: actor, Valid: true}
	return a, nil
}

// fakeMetricsReader is a test fake for ServiceMetricsReader.
type fakeMetricsReader struct {
	metrics map[string]*metrics.ServiceMetrics
	err     error
}

func (f *fakeMetricsReader) GetAllServiceMetrics(ctx context.Context) (map[string]*metrics.ServiceMetrics, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.metrics, nil
}

func testAlert(id, severity, status string) *lifecycle.Alert {
	now := time.Now()
	return &lifecycle.Alert{
		AlertID:                  id,
		Category:                 events.CategoryKpIndex,
		Scope:                    "global",
		Severity:                 severity,
		Status:                   status,
		TriggeringMeasurementIDs: []string{"m1"},
		CreatedAt:                now,
		UpdatedAt:                now,
		ExpiresAt:                now.Add(3 * time.Hour),
	}
}

func newTestRouter(repo AlertRepository, reader ServiceMetricsReader) http.Handler {
	return NewRouter(NewHandlers(repo, reader, nil)).Handler()
}

func TestListAlerts(t *testing.T) {
	repo := newFakeRepo(
		testAlert("a1", events.SeverityWarning, lifecycle.StatusActive),
		testAlert("a2", events.SeverityCritical, lifecycle.StatusExpired),
	)
	router := newTestRouter(repo, &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp struct {
		Alerts []AlertResponse `json:"alerts"`
		Count  int             `json:"count"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.Count != 2 {
		t.Errorf("count = %d, want 2", resp.Count)
	}
}

func TestListAlerts_SeverityFilter(t *testing.T) {
	repo := newFakeRepo(
		testAlert("a1", events.SeverityWarning, lifecycle.StatusActive),
		testAlert("a2", events.SeverityCritical, lifecycle.StatusActive),
	)
	router := newTestRouter(repo, &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?severity=CRITICAL", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp struct {
		Alerts []AlertResponse `json:"alerts"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Alerts) != 1 || resp.Alerts[0].AlertID != "a2" {
		t.Errorf("alerts = %+v, want only a2", resp.Alerts)
	}
}

func TestListAlerts_InvalidSeverity(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?severity=SHOUTING", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestListAlerts_InvalidLimit(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?limit=banana", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestActiveAlerts_ForcesActiveStatus(t *testing.T) {
	repo := newFakeRepo(
		testAlert("a1", events.SeverityWarning, lifecycle.StatusActive),
		testAlert("a2", events.SeverityWarning, lifecycle.StatusExpired),
	)
	router := newTestRouter(repo, &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/active?status=EXPIRED", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if repo.lastFilter.Status != lifecycle.StatusActive {
		t.Errorf("filter status = %q, want ACTIVE regardless of query", repo.lastFilter.Status)
	}
	var resp struct {
		Alerts []AlertResponse `json:"alerts"`
	}
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if len(resp.Alerts) != 1 || resp.Alerts[0].AlertID != "a1" {
		t.Errorf("alerts = %+v, want only the active alert", resp.Alerts)
	}
}

func TestGetAlert(t *testing.T) {
	repo := newFakeRepo(testAlert("a1", events.SeverityWarning, lifecycle.StatusActive))
	router := newTestRouter(repo, &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?alert_id=a1", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp AlertResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp.AlertID != "a1" {
		t.Errorf("alert_id = %q", resp.AlertID)
	}
}

func TestGetAlert_NotFound(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts?alert_id=missing", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func ackBody(alertID, actor string) *bytes.Buffer {
	body, _ := json.Marshal(AcknowledgeRequest{AlertID: alertID, AcknowledgedBy: actor})
	return bytes.NewBuffer(body)
}

func TestAcknowledgeAlert(t *testing.T) {
	repo := newFakeRepo(testAlert("a1", events.SeverityWarning, lifecycle.StatusActive))
	router := newTestRouter(repo, &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/acknowledge", ackBody("a1", "ops@example.com"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	var resp AlertResponse
	json.Unmarshal(rec.Body.Bytes(), &resp)
	if resp.Status != lifecycle.StatusAcknowledged {
		t.Errorf("status = %q, want ACKNOWLEDGED", resp.Status)
	}
	if resp.AcknowledgedBy != "ops@example.com" {
		t.Errorf("acknowledged_by = %q", resp.AcknowledgedBy)
	}
}

func TestAcknowledgeAlert_NotFound(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/acknowledge", ackBody("missing", "ops"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestAcknowledgeAlert_Conflict(t *testing.T) {
	repo := newFakeRepo(testAlert("a1", events.SeverityWarning, lifecycle.StatusExpired))
	router := newTestRouter(repo, &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/acknowledge", ackBody("a1", "ops"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusConflict {
		t.Errorf("status = %d, want 409", rec.Code)
	}
}

func TestAcknowledgeAlert_MissingFields(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/alerts/acknowledge", ackBody("", "ops"))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestAcknowledgeAlert_MethodNotAllowed(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/alerts/acknowledge", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("status = %d, want 405", rec.Code)
	}
}

func TestGetServiceMetrics(t *testing.T) {
	reader := &fakeMetricsReader{metrics: map[string]*metrics.ServiceMetrics{
		"evaluator": {ServiceName: "evaluator", Status: "healthy"},
	}}
	router := newTestRouter(newFakeRepo(), reader)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	var resp map[string]*metrics.ServiceMetrics
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if resp["evaluator"] == nil || resp["evaluator"].Status != "healthy" {
		t.Errorf("response = %+v", resp)
	}
}

func TestGetServiceMetrics_Error(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{err: errors.New("redis down")})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/services/metrics", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestHealth(t *testing.T) {
	router := newTestRouter(newFakeRepo(), &fakeMetricsReader{})

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}
