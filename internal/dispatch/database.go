package dispatch

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq" // postgres driver
)

// Attempt outcomes recorded in the delivery log.
const (
	AttemptSent    = "SENT"
	AttemptFailed  = "FAILED"
	AttemptSkipped = "SKIPPED"
)

// ErrAlertNotFound means the dispatch references an alert that does not
// exist in the store.
var ErrAlertNotFound = errors.New("alert not found")

// Attempt is one row of the append-only delivery log.
type Attempt struct {
	AlertID string
	Channel string
	Target  string
	Status  string
	Attempt int    // 1-based attempt number within one delivery
	Error   string // empty on success
}

// DB wraps a database connection for the delivery attempt log and alert
// status lookups.
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

// RecordAttempt appends one delivery attempt to the log. The log is
// append-only; failures here are logged by the caller but never block the
// delivery itself.
func (db *DB) RecordAttempt(ctx context.Context, a *Attempt) error {
	query := `
		INSERT INTO delivery_attempts (attempt_id, alert_id, channel, target, status, attempt, error, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, NOW())
	`
	var errText sql.NullString
	if a.Error != "" {
		errText = sql.NullString{String: a.Error, Valid: true}
	}
	_, err := db.conn.ExecContext(ctx, query,
		uuid.NewString(),
		a.AlertID,
		a.Channel,
		a.Target,
		a.Status,
		a.Attempt,
		errText,
	)
	if err != nil {
		return fmt.Errorf("failed to record delivery attempt: %w", err)
	}
	return nil
}

// GetAlertStatus returns the alert's current status with lazy expiry
// applied. Used to cancel deliveries for alerts that expired or were
// acknowledged while queued.
func (db *DB) GetAlertStatus(ctx context.Context, alertID string) (string, error) {
	query := `
		SELECT CASE WHEN status = 'ACTIVE' AND expires_at <= NOW() THEN 'EXPIRED' ELSE status END
		FROM alerts
		WHERE alert_id = $1
	`
	var status string
	err := db.conn.QueryRowContext(ctx, query, alertID).Scan(&status)
	if err == sql.ErrNoRows {
		return "", fmt.Errorf("%w: %s", ErrAlertNotFound, alertID)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get alert status: %w", err)
	}
	return status, nil
}
