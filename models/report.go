package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

var ErrInvalidReport = errors.New("invalid detection report")

// DetectionReport is the wire payload posted by sensors, over HTTP or MQTT.
type DetectionReport struct {
	Site          string   `json:"site"`
	Lat           *float64 `json:"lat"`
	Lon           *float64 `json:"lon"`
	Timestamp     *int64   `json:"timestamp"`
	TotalCount    *int64   `json:"total_count"`
	HourCount     int      `json:"hour_count"`
	MinuteCount   int      `json:"minute_count"`
	AvgConfidence float64  `json:"avg_confidence"`
	Uptime        int64    `json:"uptime"`
}

func (r DetectionReport) Validate() error {
	if strings.TrimSpace(r.Site) == "" || r.Timestamp == nil || *r.Timestamp <= 0 || r.TotalCount == nil {
		return fmt.Errorf("%w: missing required fields", ErrInvalidReport)
	}
	if *r.TotalCount < 0 || r.HourCount < 0 || r.MinuteCount < 0 {
		return fmt.Errorf("%w: negative count", ErrInvalidReport)
	}
	if r.AvgConfidence < 0 || r.AvgConfidence > 1 {
		return fmt.Errorf("%w: avg_confidence %v outside [0,1]", ErrInvalidReport, r.AvgConfidence)
	}
	return nil
}

// Detection converts a validated report into a record.
func (r DetectionReport) Detection(now time.Time) Detection {
	return Detection{
		Site:          r.Site,
		Latitude:      r.Lat,
		Longitude:     r.Lon,
		Timestamp:     *r.Timestamp,
		TotalCount:    *r.TotalCount,
		HourCount:     r.HourCount,
		MinuteCount:   r.MinuteCount,
		AvgConfidence: r.AvgConfidence,
		Uptime:        r.Uptime,
		CreatedAt:     now.UTC(),
	}
}

func (r DetectionReport) SiteRecord() Site {
	return Site{Name: r.Site, Latitude: r.Lat, Longitude: r.Lon, Active: true}
}
