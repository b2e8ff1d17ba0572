package thresholds

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/aiscientist/hazardwatch/internal/rules"
	_ "github.com/lib/pq" // postgres driver
	"github.com/redis/go-redis/v9"
)

const (
	// cachePrefix namespaces flood stage entries in Redis.
	cachePrefix = "floodstages:"
	// cacheTTL bounds staleness of cached station thresholds.
	cacheTTL = 10 * time.Minute
)

// Store reads station flood stage configuration from Postgres.
type Store struct {
	conn *sql.DB
}

// NewDB creates a new database connection using the provided DSN.
func NewDB(dsn string) (*sql.DB, error) {
	conn, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxOpenConns(10)
	conn.SetMaxIdleConns(5)
	conn.SetConnMaxLifetime(5 * time.Minute)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return conn, nil
}

// NewStore creates a store over an existing database connection.
func NewStore(conn *sql.DB) *Store {
	return &Store{conn: conn}
}

// GetStages loads the configured flood stages for a station.
func (s *Store) GetStages(ctx context.Context, station string) (*rules.FloodStages, error) {
	query := `
		SELECT action_stage, minor_stage, moderate_stage, major_stage
		FROM station_thresholds
		WHERE station_id = $1
	`
	var stages rules.FloodStages
	err := s.conn.QueryRowContext(ctx, query, station).Scan(
		&stages.Action,
		&stages.Minor,
		&stages.Moderate,
		&stages.Major,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no thresholds configured for station: %s", station)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load station thresholds: %w", err)
	}
	return &stages, nil
}

// CachedProvider serves flood stages through the read-through cache, so the
// evaluator does not hit Postgres on every water-level measurement.
type CachedProvider struct {
	cache *ReadThrough
}

// NewCachedProvider wires the store behind a Redis read-through cache.
func NewCachedProvider(store *Store, redisClient *redis.Client) *CachedProvider {
	loader := func(ctx context.Context, station string) (string, error) {
		stages, err := store.GetStages(ctx, station)
		if err != nil {
			return "", err
		}
		data, err := json.Marshal(stages)
		if err != nil {
			return "", fmt.Errorf("failed to marshal stages: %w", err)
		}
		return string(data), nil
	}
	return &CachedProvider{
		cache: NewReadThrough(NewRedisKV(redisClient), cachePrefix, cacheTTL, loader),
	}
}

// NewCachedProviderWithKV wires the store behind an arbitrary KV. Used by tests.
func NewCachedProviderWithKV(kv KV, loader Loader) *CachedProvider {
	return &CachedProvider{
		cache: NewReadThrough(kv, cachePrefix, cacheTTL, loader),
	}
}

// GetStages implements rules.StageProvider.
func (p *CachedProvider) GetStages(ctx context.Context, station string) (*rules.FloodStages, error) {
	raw, hit, err := p.cache.Get(ctx, station)
	if err != nil {
		return nil, err
	}
	if !hit {
		slog.Debug("Flood stages loaded from store", "station", station)
	}

	var stages rules.FloodStages
	if err := json.Unmarshal([]byte(raw), &stages); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached stages for %s: %w", station, err)
	}
	return &stages, nil
}
