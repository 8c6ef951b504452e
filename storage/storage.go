package storage

import (
	"context"
	"errors"

	"github.com/m4cd4r4/SwanFlow/models"
)

var ErrNotFound = errors.New("not found")

// Sink is the persistence side of detection generation and ingest. Each call
// stands alone; a failure affects only that record.
type Sink interface {
	AppendDetection(ctx context.Context, d *models.Detection) error
	UpsertSite(ctx context.Context, site models.Site) error
}

// TotalsLoader returns the last persisted cumulative total per site.
type TotalsLoader interface {
	LatestTotals(ctx context.Context) (map[string]int64, error)
}

// Reader is the read-side aggregation over stored detections. since is an
// exclusive lower bound in epoch milliseconds.
type Reader interface {
	ListDetections(ctx context.Context, site string, limit, offset int) ([]models.Detection, error)
	ListSites(ctx context.Context) ([]models.Site, error)
	SiteStats(ctx context.Context, site string, since int64) (models.SiteStats, error)
	HourlyBuckets(ctx context.Context, site string, since int64) ([]models.HourlyBucket, error)
	AverageHourly(ctx context.Context, since int64) (map[string]float64, error)
}
