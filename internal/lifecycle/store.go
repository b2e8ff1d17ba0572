// Package lifecycle owns alert persistence: deduplication, escalation,
// acknowledgement, and expiry. It enforces the at-most-one-ACTIVE-alert
// invariant per (category, scope).
package lifecycle

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	"github.com/google/uuid"
	"github.com/lib/pq"
)

// Alert statuses.
const (
	StatusActive       = "ACTIVE"
	StatusAcknowledged = "ACKNOWLEDGED"
	StatusExpired      = "EXPIRED"
)

// Sentinel errors surfaced by the store.
var (
	// ErrNotFound means the alert does not exist.
	ErrNotFound = errors.New("alert not found")
	// ErrInvalidState means the requested transition is not legal from the
	// alert's current status.
	ErrInvalidState = errors.New("invalid alert state")
)

// Alert represents an alert row.
type Alert struct {
	AlertID                  string
	Category                 string
	Scope                    string
	Severity                 string
	Status                   string
	TriggeringMeasurementIDs []string
	AcknowledgedBy           sql.NullString
	CreatedAt                time.Time
	UpdatedAt                time.Time
	ExpiresAt                time.Time
}

// alertColumns is the canonical column list scanned into an Alert.
const alertColumns = `alert_id, category, scope, severity, status, triggering_measurement_ids, acknowledged_by, created_at, updated_at, expires_at`

// TTLForCategory returns how long an alert of the category stays active
// without re-triggering.
func TTLForCategory(category string) time.Duration {
	switch category {
	case events.CategoryKpIndex:
		return 3 * time.Hour
	case events.CategoryCME:
		return 6 * time.Hour
	case events.CategoryEarthquake:
		return 24 * time.Hour
	case events.CategoryWaterLevel:
		return 12 * time.Hour
	default:
		return 6 * time.Hour
	}
}

// DB wraps a database connection and provides alert lifecycle operations.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	slog.Info("Successfully connected to PostgreSQL database")

	return &DB{conn: conn}, nil
}

// NewDBWithConn wraps an existing connection. Used by tests.
func NewDBWithConn(conn *sql.DB) *DB {
	return &DB{conn: conn}
}

// Close closes the database connection.
func (db *DB) Close() error {
	if db.conn != nil {
		slog.Info("Closing database connection")
		return db.conn.Close()
	}
	return nil
}

// Upsert applies a trigger intent to the alert table. Returns the affected
// alert (nil for a no-op clear) and the dispatch reason: CREATED, ESCALATED,
// or "" when no delivery should happen (extension, clear, no-op).
//
// The at-most-one-ACTIVE invariant is enforced twice: a row lock on the
// active row serializes writers that can see it, and the partial unique
// index on (category, scope) WHERE status='ACTIVE' catches the
// create/create race between writers that saw no row. The loser of that
// race retries once against the now-current state.
func (db *DB) Upsert(ctx context.Context, intent *events.TriggerIntent) (*Alert, string, error) {
	for attempt := 0; ; attempt++ {
		alert, reason, err := db.tryUpsert(ctx, intent)
		if err != nil && attempt == 0 && isUniqueViolation(err) {
			slog.Warn("Concurrent alert creation detected, retrying upsert",
				"category", intent.Category,
				"scope", intent.Scope,
			)
			continue
		}
		return alert, reason, err
	}
}

func (db *DB) tryUpsert(ctx context.Context, intent *events.TriggerIntent) (*Alert, string, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return nil, "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	active, err := lockActiveAlert(ctx, tx, intent.Category, intent.Scope)
	if err != nil {
		return nil, "", err
	}

	// Lazy expiry: an overdue row that the sweeper has not reached yet is
	// expired here and treated as absent.
	if active != nil && time.Now().After(active.ExpiresAt) {
		if err := expireAlert(ctx, tx, active.AlertID); err != nil {
			return nil, "", err
		}
		active = nil
	}

	var result *Alert
	var reason string

	switch intent.Kind {
	case events.IntentClear:
		if active == nil {
			if err := tx.Commit(); err != nil {
				return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
			}
			return nil, "", nil
		}
		if err := expireAlert(ctx, tx, active.AlertID); err != nil {
			return nil, "", err
		}
		active.Status = StatusExpired
		result = active

	case events.IntentTrigger:
		if active == nil {
			result, err = insertAlert(ctx, tx, intent)
			if err != nil {
				return nil, "", err
			}
			reason = events.DispatchReasonCreated
		} else if events.CompareSeverity(intent.Severity, active.Severity) > 0 {
			result, err = escalateAlert(ctx, tx, active.AlertID, intent)
			if err != nil {
				return nil, "", err
			}
			reason = events.DispatchReasonEscalated
		} else {
			// Equal or lower severity: extend the active alert, never
			// downgrade it, never re-deliver.
			result, err = extendAlert(ctx, tx, active.AlertID, intent)
			if err != nil {
				return nil, "", err
			}
		}

	default:
		return nil, "", fmt.Errorf("unknown intent kind: %q", intent.Kind)
	}

	if err := tx.Commit(); err != nil {
		return nil, "", fmt.Errorf("failed to commit transaction: %w", err)
	}
	return result, reason, nil
}

func lockActiveAlert(ctx context.Context, tx *sql.Tx, category, scope string) (*Alert, error) {
	query := `
		SELECT ` + alertColumns + `
		FROM alerts
		WHERE category = $1 AND scope = $2 AND status = 'ACTIVE'
		FOR UPDATE
	`
	alert, err := scanAlert(tx.QueryRowContext(ctx, query, category, scope))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to lock active alert: %w", err)
	}
	return alert, nil
}

func insertAlert(ctx context.Context, tx *sql.Tx, intent *events.TriggerIntent) (*Alert, error) {
	query := `
		INSERT INTO alerts (alert_id, category, scope, severity, status, triggering_measurement_ids, created_at, updated_at, expires_at)
		VALUES ($1, $2, $3, $4, 'ACTIVE', $5, NOW(), NOW(), NOW() + $6 * INTERVAL '1 second')
		RETURNING ` + alertColumns
	ttl := int64(TTLForCategory(intent.Category).Seconds())
	alert, err := scanAlert(tx.QueryRowContext(ctx, query,
		uuid.NewString(),
		intent.Category,
		intent.Scope,
		intent.Severity,
		pq.Array([]string{intent.MeasurementID}),
		ttl,
	))
	if err != nil {
		return nil, fmt.Errorf("failed to insert alert: %w", err)
	}
	return alert, nil
}

func escalateAlert(ctx context.Context, tx *sql.Tx, alertID string, intent *events.TriggerIntent) (*Alert, error) {
	query := `
		UPDATE alerts
		SET severity = $2,
		    triggering_measurement_ids = array_append(triggering_measurement_ids, $3),
		    updated_at = NOW(),
		    expires_at = NOW() + $4 * INTERVAL '1 second'
		WHERE alert_id = $1
		RETURNING ` + alertColumns
	ttl := int64(TTLForCategory(intent.Category).Seconds())
	alert, err := scanAlert(tx.QueryRowContext(ctx, query, alertID, intent.Severity, intent.MeasurementID, ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to escalate alert: %w", err)
	}
	return alert, nil
}

func extendAlert(ctx context.Context, tx *sql.Tx, alertID string, intent *events.TriggerIntent) (*Alert, error) {
	query := `
		UPDATE alerts
		SET triggering_measurement_ids = array_append(triggering_measurement_ids, $2),
		    updated_at = NOW(),
		    expires_at = NOW() + $3 * INTERVAL '1 second'
		WHERE alert_id = $1
		RETURNING ` + alertColumns
	ttl := int64(TTLForCategory(intent.Category).Seconds())
	alert, err := scanAlert(tx.QueryRowContext(ctx, query, alertID, intent.MeasurementID, ttl))
	if err != nil {
		return nil, fmt.Errorf("failed to extend alert: %w", err)
	}
	return alert, nil
}

func expireAlert(ctx context.Context, tx *sql.Tx, alertID string) error {
	query := `UPDATE alerts SET status = 'EXPIRED', updated_at = NOW() WHERE alert_id = $1`
	if _, err := tx.ExecContext(ctx, query, alertID); err != nil {
		return fmt.Errorf("failed to expire alert: %w", err)
	}
	return nil
}

// Acknowledge transitions an ACTIVE alert to ACKNOWLEDGED, recording the
// actor. Returns ErrNotFound if the alert does not exist and ErrInvalidState
// if it is already expired or acknowledged.
func (db *DB) Acknowledge(ctx context.Context, alertID, actor string) (*Alert, error) {
	query := `
		UPDATE alerts
		SET status = 'ACKNOWLEDGED', acknowledged_by = $2, updated_at = NOW()
		WHERE alert_id = $1 AND status = 'ACTIVE' AND expires_at > NOW()
		RETURNING ` + alertColumns
	alert, err := scanAlert(db.conn.QueryRowContext(ctx, query, alertID, actor))
	if err == nil {
		slog.Info("Alert acknowledged", "alert_id", alertID, "actor", actor)
		return alert, nil
	}
	if err != sql.ErrNoRows {
		return nil, fmt.Errorf("failed to acknowledge alert: %w", err)
	}

	// Distinguish NotFound from InvalidState.
	var status string
	err = db.conn.QueryRowContext(ctx, `SELECT status FROM alerts WHERE alert_id = $1`, alertID).Scan(&status)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, alertID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to look up alert: %w", err)
	}
	return nil, fmt.Errorf("%w: alert %s is %s", ErrInvalidState, alertID, status)
}

// GetStatus returns the current status of an alert, applying lazy expiry:
// an ACTIVE row past its expires_at reports EXPIRED.
func (db *DB) GetStatus(ctx context.Context, alertID string) (string, error) {
	query := `
		SELECT CASE WHEN status = 'ACTIVE' AND expires_at <= NOW() THEN 'EXPIRED' ELSE status END
		FROM alerts
		WHERE alert_id = $1
	`
	var status string
	err := db.conn.QueryRowContext(ctx, query, alertID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrNotFound, alertID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get alert status: %w", err)
	}
	return status, nil
}

// ExpireOverdue transitions every ACTIVE alert past its expires_at to
// EXPIRED. Returns the number of alerts expired. Called by the periodic
// sweeper; the same predicate is applied lazily on reads, so the sweep is a
// cleanup, not a correctness requirement.
func (db *DB) ExpireOverdue(ctx context.Context) (int64, error) {
	query := `
		UPDATE alerts
		SET status = 'EXPIRED', updated_at = NOW()
		WHERE status = 'ACTIVE' AND expires_at <= NOW()
	`
	res, err := db.conn.ExecContext(ctx, query)
	if err != nil {
		return 0, fmt.Errorf("failed to expire overdue alerts: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count expired alerts: %w", err)
	}
	return n, nil
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505" // unique_violation
	}
	return false
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAlert(row rowScanner) (*Alert, error) {
	var alert Alert
	err := row.Scan(
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
		return nil, err
	}
	return &alert, nil
}
