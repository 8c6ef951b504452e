package traffic

import "math"

// Flow-to-speed calibration for a single-lane 60 km/h arterial.
const (
	SpeedLimitKMH     = 60.0
	MinSpeedKMH       = 5.0
	MaxSpeedKMH       = 65.0
	FreeFlowThreshold = 10.0

	gridlockFrom    = 360.0
	gridlockDivisor = 10.0
	gridlockPenalty = 0.1
)

type densityBucket struct {
	below   float64
	divisor float64
}

// Flow bands below gridlock: density = flow / divisor.
var densityBuckets = []densityBucket{
	{below: 120, divisor: 60},
	{below: 200, divisor: 55},
	{below: 280, divisor: 40},
	{below: gridlockFrom, divisor: 25},
}

// Density returns the estimated vehicles per km for an hourly flow. Flows
// below FreeFlowThreshold have no meaningful density and return 0.
func Density(hourlyCount float64) float64 {
	if !(hourlyCount >= FreeFlowThreshold) {
		return 0
	}
	for _, b := range densityBuckets {
		if hourlyCount < b.below {
			return hourlyCount / b.divisor
		}
	}
	return hourlyCount/gridlockDivisor + (hourlyCount-gridlockFrom)*gridlockPenalty
}

// EstimateSpeed converts an hourly vehicle count into a travel speed in km/h
// using speed = flow / density, clamped to [MinSpeedKMH, MaxSpeedKMH].
// Negative and NaN inputs are treated as zero flow.
func EstimateSpeed(hourlyCount float64) float64 {
	if !(hourlyCount >= FreeFlowThreshold) {
		return SpeedLimitKMH
	}
	speed := hourlyCount / Density(hourlyCount)
	if math.IsNaN(speed) {
		return MinSpeedKMH
	}
	return math.Max(MinSpeedKMH, math.Min(MaxSpeedKMH, speed))
}
