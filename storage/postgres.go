package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// dbtx is the subset of *pgxpool.Pool the store needs.
type dbtx interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

var schema = []string{
	`CREATE TABLE IF NOT EXISTS detections (
		id BIGSERIAL PRIMARY KEY,
		site TEXT NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		"timestamp" BIGINT NOT NULL,
		total_count BIGINT NOT NULL,
		hour_count INTEGER NOT NULL,
		minute_count INTEGER NOT NULL,
		avg_confidence DOUBLE PRECISION NOT NULL DEFAULT 0,
		uptime BIGINT NOT NULL DEFAULT 0,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE TABLE IF NOT EXISTS sites (
		id BIGSERIAL PRIMARY KEY,
		name TEXT UNIQUE NOT NULL,
		latitude DOUBLE PRECISION,
		longitude DOUBLE PRECISION,
		description TEXT NOT NULL DEFAULT '',
		active BOOLEAN NOT NULL DEFAULT TRUE,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now()
	)`,
	`CREATE INDEX IF NOT EXISTS idx_detections_site ON detections(site)`,
	`CREATE INDEX IF NOT EXISTS idx_detections_timestamp ON detections("timestamp")`,
}

type PostgresStore struct {
	pool *pgxpool.Pool
	db   dbtx
}

func NewPostgresStore(ctx context.Context, dsn string) (*PostgresStore, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("db pool init failed: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("db ping failed: %w", err)
	}
	return &PostgresStore{pool: pool, db: pool}, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	if s.pool == nil {
		return nil
	}
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() {
	if s.pool != nil {
		s.pool.Close()
	}
}

func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	for _, stmt := range schema {
		if _, err := s.db.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("ensure schema: %w", err)
		}
	}
	return nil
}

func (s *PostgresStore) AppendDetection(ctx context.Context, d *models.Detection) error {
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	err := s.db.QueryRow(ctx, `
		INSERT INTO detections (site, latitude, longitude, "timestamp", total_count, hour_count, minute_count, avg_confidence, uptime, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id
	`, d.Site, d.Latitude, d.Longitude, d.Timestamp, d.TotalCount, d.HourCount, d.MinuteCount, d.AvgConfidence, d.Uptime, d.CreatedAt).Scan(&d.ID)
	if err != nil {
		return fmt.Errorf("insert detection for site=%s: %w", d.Site, err)
	}
	return nil
}

func (s *PostgresStore) UpsertSite(ctx context.Context, site models.Site) error {
	_, err := s.db.Exec(ctx, `
		INSERT INTO sites (name, latitude, longitude, description)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (name) DO UPDATE SET
			latitude = EXCLUDED.latitude,
			longitude = EXCLUDED.longitude
	`, site.Name, site.Latitude, site.Longitude, site.Description)
	if err != nil {
		return fmt.Errorf("upsert site=%s: %w", site.Name, err)
	}
	return nil
}

func (s *PostgresStore) LatestTotals(ctx context.Context) (map[string]int64, error) {
	rows, err := s.db.Query(ctx, `
		SELECT site, MAX(total_count)
		FROM detections
		GROUP BY site
	`)
	if err != nil {
		return nil, fmt.Errorf("query latest totals: %w", err)
	}
	defer rows.Close()

	totals := make(map[string]int64)
	for rows.Next() {
		var site string
		var total int64
		if err := rows.Scan(&site, &total); err != nil {
			return nil, fmt.Errorf("scan latest totals: %w", err)
		}
		totals[site] = total
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate latest totals: %w", err)
	}
	return totals, nil
}
