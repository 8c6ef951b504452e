package models

import "time"

// Detection is one append-only count report from a roadside sensor or the
// generator. Timestamp is epoch milliseconds.
type Detection struct {
	ID            int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Site          string    `gorm:"column:site" json:"site"`
	Latitude      *float64  `gorm:"column:latitude" json:"latitude"`
	Longitude     *float64  `gorm:"column:longitude" json:"longitude"`
	Timestamp     int64     `gorm:"column:timestamp" json:"timestamp"`
	TotalCount    int64     `gorm:"column:total_count" json:"total_count"`
	HourCount     int       `gorm:"column:hour_count" json:"hour_count"`
	MinuteCount   int       `gorm:"column:minute_count" json:"minute_count"`
	AvgConfidence float64   `gorm:"column:avg_confidence" json:"avg_confidence"`
	Uptime        int64     `gorm:"column:uptime" json:"uptime"`
	CreatedAt     time.Time `gorm:"column:created_at" json:"created_at"`
}

func (Detection) TableName() string { return "detections" }

// SiteStats is the period-bounded aggregate over a site's detections.
type SiteStats struct {
	DataPoints    int64   `gorm:"column:data_points" json:"data_points"`
	CurrentTotal  int64   `gorm:"column:current_total" json:"current_total"`
	AvgHourly     float64 `gorm:"column:avg_hourly" json:"avg_hourly"`
	AvgConfidence float64 `gorm:"column:avg_confidence" json:"avg_confidence"`
	FirstSeen     int64   `gorm:"column:first_seen" json:"first_seen"`
	LastSeen      int64   `gorm:"column:last_seen" json:"last_seen"`
}

type HourlyBucket struct {
	Hour       string  `gorm:"column:hour" json:"hour"`
	AvgCount   float64 `gorm:"column:avg_count" json:"avg_count"`
	DataPoints int64   `gorm:"column:data_points" json:"data_points"`
}

// HourBucketLayout formats the start of an hour bucket, in UTC.
const HourBucketLayout = "2006-01-02 15:00"
