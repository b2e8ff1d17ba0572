package ingest

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/events"
	_ "github.com/lib/pq" // postgres driver
)

// DB wraps a database connection and provides measurement log operations.
// The log is append-only: rows are never updated or deleted by the pipeline.
type DB struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Configure connection pool
	conn.SetMaxOpenConns(25)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	// Test the connection
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

// marshalAttributes serializes measurement attributes for JSONB storage.
// Returns a NullString with Valid=false when there are no attributes.
func marshalAttributes(attrs map[string]string) (sql.NullString, error) {
	if len(attrs) == 0 {
		return sql.NullString{}, nil
	}
	jsonBytes, err := json.Marshal(attrs)
	if err != nil {
		return sql.NullString{}, fmt.Errorf("failed to marshal attributes: %w", err)
	}
	return sql.NullString{String: string(jsonBytes), Valid: true}, nil
}

// InsertMeasurementIdempotent appends a measurement to the log with
// idempotency protection. Uses INSERT ... ON CONFLICT DO NOTHING RETURNING on
// the idempotency key, so redelivered raw events are a no-op, not an error.
// Returns the measurement_id if a new row was inserted, or nil if the
// measurement already existed.
func (db *DB) InsertMeasurementIdempotent(ctx context.Context, m *events.MeasurementEvent) (*string, error) {
	attrsJSON, err := marshalAttributes(m.Attributes)
	if err != nil {
		return nil, err
	}

	query := `
		INSERT INTO measurements (measurement_id, category, source, scope, observed_at, value, unit, attributes, idempotency_key)
		VALUES ($1, $2, $3, $4, to_timestamp($5), $6, $7, $8, $9)
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING measurement_id
	`

	var measurementID string
	err = db.conn.QueryRowContext(ctx, query,
		m.MeasurementID,
		m.Category,
		m.Source,
		m.Scope,
		m.ObservedAt,
		m.Value,
		m.Unit,
		attrsJSON,
		m.IdempotencyKey,
	).Scan(&measurementID)

	if err != nil {
		if err == sql.ErrNoRows {
			// No row was inserted (conflict occurred, measurement already exists)
			slog.Debug("Measurement already ingested, skipping",
				"category", m.Category,
				"scope", m.Scope,
				"idempotency_key", m.IdempotencyKey,
			)
			return nil, nil
		}
		return nil, fmt.Errorf("failed to insert measurement: %w", err)
	}

	slog.Info("Appended measurement to log",
		"measurement_id", measurementID,
		"category", m.Category,
		"scope", m.Scope,
	)

	return &measurementID, nil
}
