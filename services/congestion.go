package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"
	"github.com/m4cd4r4/SwanFlow/storage"
)

const (
	CongestionCacheKey = "swanflow:congestion"
	CongestionChannel  = "swanflow:congestion"
)

// BuildCongestionSnapshot classifies every site with detections in the
// window ending at now. Sites are sorted by name.
func BuildCongestionSnapshot(ctx context.Context, reader storage.Reader, window time.Duration, now time.Time) (models.CongestionSnapshot, error) {
	snap := models.CongestionSnapshot{
		GeneratedAt: now.UTC(),
		WindowMin:   int(window / time.Minute),
		Sites:       []models.SiteCongestion{},
	}

	averages, err := reader.AverageHourly(ctx, now.Add(-window).UnixMilli())
	if err != nil {
		return snap, fmt.Errorf("build congestion snapshot: %w", err)
	}
	for site, avg := range averages {
		snap.Sites = append(snap.Sites, models.NewSiteCongestion(site, avg))
	}
	sort.Slice(snap.Sites, func(i, j int) bool { return snap.Sites[i].Site < snap.Sites[j].Site })
	return snap, nil
}
