package storage

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/m4cd4r4/SwanFlow/models"

	"gonum.org/v1/gonum/stat"
)

// MemoryStore keeps detections and sites in process. It backs local runs
// without Postgres and the handler tests.
type MemoryStore struct {
	mu         sync.RWMutex
	detections []models.Detection
	sites      map[string]models.Site
	nextID     int64
	nextSiteID int64
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sites: make(map[string]models.Site)}
}

func (m *MemoryStore) AppendDetection(_ context.Context, d *models.Detection) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.nextID++
	d.ID = m.nextID
	if d.CreatedAt.IsZero() {
		d.CreatedAt = time.Now().UTC()
	}
	m.detections = append(m.detections, *d)
	return nil
}

func (m *MemoryStore) UpsertSite(_ context.Context, site models.Site) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if existing, ok := m.sites[site.Name]; ok {
		existing.Latitude = site.Latitude
		existing.Longitude = site.Longitude
		m.sites[site.Name] = existing
		return nil
	}
	m.nextSiteID++
	site.ID = m.nextSiteID
	site.Active = true
	if site.CreatedAt.IsZero() {
		site.CreatedAt = time.Now().UTC()
	}
	m.sites[site.Name] = site
	return nil
}

func (m *MemoryStore) LatestTotals(_ context.Context) (map[string]int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	totals := make(map[string]int64)
	for _, d := range m.detections {
		if cur, ok := totals[d.Site]; !ok || d.TotalCount > cur {
			totals[d.Site] = d.TotalCount
		}
	}
	return totals, nil
}

func (m *MemoryStore) ListDetections(_ context.Context, site string, limit, offset int) ([]models.Detection, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Detection, 0)
	// Newest first: insertion order matches created_at, id.
	for i := len(m.detections) - 1; i >= 0; i-- {
		d := m.detections[i]
		if site != "" && d.Site != site {
			continue
		}
		if offset > 0 {
			offset--
			continue
		}
		if limit > 0 && len(out) >= limit {
			break
		}
		out = append(out, d)
	}
	return out, nil
}

func (m *MemoryStore) ListSites(_ context.Context) ([]models.Site, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]models.Site, 0, len(m.sites))
	for _, s := range m.sites {
		if s.Active {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *MemoryStore) SiteStats(_ context.Context, site string, since int64) (models.SiteStats, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var stats models.SiteStats
	var hourly, confidence []float64
	for _, d := range m.detections {
		if d.Site != site || d.Timestamp <= since {
			continue
		}
		if stats.DataPoints == 0 || d.Timestamp < stats.FirstSeen {
			stats.FirstSeen = d.Timestamp
		}
		if d.Timestamp > stats.LastSeen {
			stats.LastSeen = d.Timestamp
		}
		if d.TotalCount > stats.CurrentTotal {
			stats.CurrentTotal = d.TotalCount
		}
		stats.DataPoints++
		hourly = append(hourly, float64(d.HourCount))
		confidence = append(confidence, d.AvgConfidence)
	}
	if stats.DataPoints == 0 {
		return stats, ErrNotFound
	}
	stats.AvgHourly = stat.Mean(hourly, nil)
	stats.AvgConfidence = stat.Mean(confidence, nil)
	return stats, nil
}

func (m *MemoryStore) HourlyBuckets(_ context.Context, site string, since int64) ([]models.HourlyBucket, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grouped := make(map[string][]float64)
	for _, d := range m.detections {
		if d.Site != site || d.Timestamp <= since {
			continue
		}
		hour := time.UnixMilli(d.Timestamp).UTC().Format(models.HourBucketLayout)
		grouped[hour] = append(grouped[hour], float64(d.HourCount))
	}

	buckets := make([]models.HourlyBucket, 0, len(grouped))
	for hour, counts := range grouped {
		buckets = append(buckets, models.HourlyBucket{
			Hour:       hour,
			AvgCount:   stat.Mean(counts, nil),
			DataPoints: int64(len(counts)),
		})
	}
	sort.Slice(buckets, func(i, j int) bool { return buckets[i].Hour < buckets[j].Hour })
	return buckets, nil
}

func (m *MemoryStore) AverageHourly(_ context.Context, since int64) (map[string]float64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	grouped := make(map[string][]float64)
	for _, d := range m.detections {
		if d.Timestamp <= since {
			continue
		}
		grouped[d.Site] = append(grouped[d.Site], float64(d.HourCount))
	}
	out := make(map[string]float64, len(grouped))
	for site, counts := range grouped {
		out[site] = stat.Mean(counts, nil)
	}
	return out, nil
}
