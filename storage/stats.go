package storage

import (
	"context"
	"fmt"

	"github.com/m4cd4r4/SwanFlow/models"

	"gorm.io/gorm"
)

// StatsRepository serves the read side from Postgres through gorm.
type StatsRepository struct {
	db *gorm.DB
}

func NewStatsRepository(db *gorm.DB) *StatsRepository {
	return &StatsRepository{db: db}
}

func (r *StatsRepository) ListDetections(ctx context.Context, site string, limit, offset int) ([]models.Detection, error) {
	query := r.db.WithContext(ctx).Model(&models.Detection{})
	if site != "" {
		query = query.Where("site = ?", site)
	}
	var rows []models.Detection
	err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Offset(offset).Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("list detections: %w", err)
	}
	return rows, nil
}

func (r *StatsRepository) ListSites(ctx context.Context) ([]models.Site, error) {
	var sites []models.Site
	if err := r.db.WithContext(ctx).Where("active = ?", true).Order("name").Find(&sites).Error; err != nil {
		return nil, fmt.Errorf("list sites: %w", err)
	}
	return sites, nil
}

func (r *StatsRepository) SiteStats(ctx context.Context, site string, since int64) (models.SiteStats, error) {
	var stats models.SiteStats
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			COUNT(*) AS data_points,
			COALESCE(MAX(total_count), 0) AS current_total,
			COALESCE(AVG(hour_count), 0) AS avg_hourly,
			COALESCE(AVG(avg_confidence), 0) AS avg_confidence,
			COALESCE(MIN("timestamp"), 0) AS first_seen,
			COALESCE(MAX("timestamp"), 0) AS last_seen
		FROM detections
		WHERE site = ? AND "timestamp" > ?
	`, site, since).Scan(&stats).Error
	if err != nil {
		return stats, fmt.Errorf("site stats for %s: %w", site, err)
	}
	if stats.DataPoints == 0 {
		return stats, ErrNotFound
	}
	return stats, nil
}

func (r *StatsRepository) HourlyBuckets(ctx context.Context, site string, since int64) ([]models.HourlyBucket, error) {
	var buckets []models.HourlyBucket
	err := r.db.WithContext(ctx).Raw(`
		SELECT
			to_char(date_trunc('hour', to_timestamp("timestamp" / 1000.0) AT TIME ZONE 'UTC'), 'YYYY-MM-DD HH24:00') AS hour,
			AVG(hour_count) AS avg_count,
			COUNT(*) AS data_points
		FROM detections
		WHERE site = ? AND "timestamp" > ?
		GROUP BY 1
		ORDER BY 1 ASC
	`, site, since).Scan(&buckets).Error
	if err != nil {
		return nil, fmt.Errorf("hourly buckets for %s: %w", site, err)
	}
	return buckets, nil
}

type siteAverage struct {
	Site      string  `gorm:"column:site"`
	AvgHourly float64 `gorm:"column:avg_hourly"`
}

func (r *StatsRepository) AverageHourly(ctx context.Context, since int64) (map[string]float64, error) {
	var rows []siteAverage
	err := r.db.WithContext(ctx).Raw(`
		SELECT site, AVG(hour_count) AS avg_hourly
		FROM detections
		WHERE "timestamp" > ?
		GROUP BY site
	`, since).Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("average hourly: %w", err)
	}
	out := make(map[string]float64, len(rows))
	for _, row := range rows {
		out[row.Site] = row.AvgHourly
	}
	return out, nil
}
