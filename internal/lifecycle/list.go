package lifecycle

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// ListFilter narrows a ListAlerts query. Empty fields match everything.
type ListFilter struct {
	Status   string
	Severity string
	Category string
	Scope    string
	Limit    int
	Offset   int
}

// ListAlerts returns alerts matching the filter, newest first. Lazy expiry
// is applied in the query: an ACTIVE row past its expires_at is reported,
// and filtered, as EXPIRED.
func (db *DB) ListAlerts(ctx context.Context, filter ListFilter) ([]*Alert, error) {
	effective := `CASE WHEN status = 'ACTIVE' AND expires_at <= NOW() THEN 'EXPIRED' ELSE status END`

	var conditions []string
	var args []interface{}

	addCondition := func(expr string, value string) {
		args = append(args, value)
		conditions = append(conditions, fmt.Sprintf(expr, len(args)))
	}

	if filter.Status != "" {
		addCondition(effective+" = $%d", filter.Status)
	}
	if filter.Severity != "" {
		addCondition("severity = $%d", filter.Severity)
	}
	if filter.Category != "" {
		addCondition("category = $%d", filter.Category)
	}
	if filter.Scope != "" {
		addCondition("scope = $%d", filter.Scope)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	args = append(args, limit, offset)

	query := fmt.Sprintf(`
		SELECT alert_id, category, scope, severity, %s AS status, triggering_measurement_ids, acknowledged_by, created_at, updated_at, expires_at
		FROM alerts
		%s
		ORDER BY created_at DESC
		LIMIT $%d OFFSET $%d
	`, effective, where, len(args)-1, len(args))

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var alert Alert
		err := rows.Scan(
			&alert.AlertID,
			&alert.Category,
			&alert.Scope,
			&alert.Severity,
			&alert.Status,
			pq.Array(&alert.TriggeringMeasurementIDs),
			&alert.AcknowledgedBy,
			&alert.CreatedAt,
			&alert.UpdatedAt,
			&alert.ExpiresAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, &alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alerts: %w", err)
	}
	return alerts, nil
}

// GetAlert returns a single alert by ID with lazy expiry applied.
func (db *DB) GetAlert(ctx context.Context, alertID string) (*Alert, error) {
	query := `
		SELECT alert_id, category, scope, severity,
		       CASE WHEN status = 'ACTIVE' AND expires_at <= NOW() THEN 'EXPIRED' ELSE status END AS status,
		       triggering_measurement_ids, acknowledged_by, created_at, updated_at, expires_at
		FROM alerts
		WHERE alert_id = $1
	`
	alert, err := scanAlert(db.conn.QueryRowContext(ctx, query, alertID))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get alert: %w", err)
	}
	return alert, nil
}
