package traffic

import "math"

type Level string

const (
	LevelFlowing  Level = "Flowing"
	LevelModerate Level = "Moderate"
	LevelHeavy    Level = "Heavy"
	LevelGridlock Level = "Gridlock"
)

const (
	ColorGreen   = "#10b981"
	ColorOrange  = "#f59e0b"
	ColorRed     = "#ef4444"
	ColorDarkRed = "#991b1b"
)

// Lower bounds of each tier, inclusive.
const (
	FlowingFromKMH  = 50.0
	ModerateFromKMH = 35.0
	HeavyFromKMH    = 20.0
)

type Congestion struct {
	HourlyCount float64 `json:"hourly_count"`
	SpeedKMH    float64 `json:"speed_kmh"`
	Level       Level   `json:"level"`
	Color       string  `json:"color"`
}

// DisplaySpeed is the speed rounded to whole km/h, as shown on map labels.
func (c Congestion) DisplaySpeed() int {
	return int(math.Round(c.SpeedKMH))
}

func Classify(hourlyCount float64) Congestion {
	c := ClassifySpeed(EstimateSpeed(hourlyCount))
	c.HourlyCount = hourlyCount
	return c
}

func ClassifySpeed(speed float64) Congestion {
	c := Congestion{SpeedKMH: speed}
	switch {
	case speed >= FlowingFromKMH:
		c.Level, c.Color = LevelFlowing, ColorGreen
	case speed >= ModerateFromKMH:
		c.Level, c.Color = LevelModerate, ColorOrange
	case speed >= HeavyFromKMH:
		c.Level, c.Color = LevelHeavy, ColorRed
	default:
		c.Level, c.Color = LevelGridlock, ColorDarkRed
	}
	return c
}
