package models

import (
	"time"

	"github.com/m4cd4r4/SwanFlow/traffic"
)

// SiteCongestion is the estimated state of one site over the snapshot window.
type SiteCongestion struct {
	Site      string        `json:"site"`
	AvgHourly float64       `json:"avg_hourly"`
	SpeedKMH  int           `json:"speed_kmh"`
	Level     traffic.Level `json:"level"`
	Color     string        `json:"color"`
}

func NewSiteCongestion(site string, avgHourly float64) SiteCongestion {
	c := traffic.Classify(avgHourly)
	return SiteCongestion{
		Site:      site,
		AvgHourly: avgHourly,
		SpeedKMH:  c.DisplaySpeed(),
		Level:     c.Level,
		Color:     c.Color,
	}
}

type CongestionSnapshot struct {
	GeneratedAt time.Time        `json:"generated_at"`
	WindowMin   int              `json:"window_min"`
	Sites       []SiteCongestion `json:"sites"`
}
