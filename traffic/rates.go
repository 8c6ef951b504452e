package traffic

import (
	"errors"
	"fmt"
	"math"
)

var ErrRateModel = errors.New("invalid rate model")

// HourWindow is an inclusive range of hours of day.
type HourWindow struct {
	From int
	To   int
}

func (w HourWindow) Contains(hour int) bool {
	return hour >= w.From && hour <= w.To
}

var (
	MorningRush = HourWindow{From: 6, To: 9}
	EveningRush = HourWindow{From: 16, To: 19}
)

// DefaultHourlyRates is the base demand in vehicles per minute for each hour
// of day on a single-lane 60 km/h arterial.
var DefaultHourlyRates = [24]float64{
	0.75, 0.58, 0.42, 0.33, 0.50,
	1.33, 3.00, 5.33, 5.83, 4.67,
	3.67, 3.50, 4.00, 3.83, 3.50,
	4.17, 5.50, 6.33, 5.67, 4.67,
	3.33, 2.50, 1.83, 1.17,
}

type RushModifier struct {
	Morning float64
	Evening float64
}

type ZoneModifier struct {
	Factor  float64
	Windows []HourWindow
}

func (z ZoneModifier) activeAt(hour int) bool {
	for _, w := range z.Windows {
		if w.Contains(hour) {
			return true
		}
	}
	return false
}

// RateModel is the diurnal demand model. It is static configuration: build it
// once and share it read-only.
type RateModel struct {
	Hourly [24]float64
	Rush   map[RoadClass]map[Direction]RushModifier
	Zones  map[Zone]ZoneModifier
}

func DefaultRateModel() RateModel {
	return RateModel{
		Hourly: DefaultHourlyRates,
		Rush: map[RoadClass]map[Direction]RushModifier{
			Arterial: {
				Northbound: {Morning: 1.3, Evening: 0.7},
				Southbound: {Morning: 0.7, Evening: 1.3},
			},
		},
		Zones: map[Zone]ZoneModifier{
			ZoneCommercial: {Factor: 1.2, Windows: []HourWindow{{From: 10, To: 16}}},
			ZoneSchool:     {Factor: 1.4, Windows: []HourWindow{{From: 8, To: 9}, {From: 15, To: 16}}},
		},
	}
}

func (m RateModel) Validate() error {
	for hour, rate := range m.Hourly {
		if !validFactor(rate) {
			return fmt.Errorf("%w: hour %d: base rate %v", ErrRateModel, hour, rate)
		}
	}
	for class, byDir := range m.Rush {
		for dir, mod := range byDir {
			if !validFactor(mod.Morning) || !validFactor(mod.Evening) {
				return fmt.Errorf("%w: %s/%s: bad rush modifier", ErrRateModel, class, dir)
			}
		}
	}
	for zone, mod := range m.Zones {
		if !validFactor(mod.Factor) {
			return fmt.Errorf("%w: zone %q: bad factor %v", ErrRateModel, zone, mod.Factor)
		}
		for _, w := range mod.Windows {
			if w.From < 0 || w.To > 23 || w.From > w.To {
				return fmt.Errorf("%w: zone %q: bad window %d-%d", ErrRateModel, zone, w.From, w.To)
			}
		}
	}
	return nil
}

func validFactor(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v >= 0
}

// BaseRate returns the table entry for hour. Hours outside [0,23] wrap.
func (m RateModel) BaseRate(hour int) float64 {
	return m.Hourly[normalizeHour(hour)]
}

// SiteRate composes the base rate with the site multiplier, the directional
// rush modifier and the zone modifier, in that order. No randomness.
func (m RateModel) SiteRate(site SiteProfile, hour int) float64 {
	h := normalizeHour(hour)
	rate := m.Hourly[h] * site.Multiplier
	rate *= m.RushFactor(site, h)
	if site.Zone != ZoneNone {
		if mod, ok := m.Zones[site.Zone]; ok && mod.activeAt(h) {
			rate *= mod.Factor
		}
	}
	return math.Max(0, rate)
}

// RushFactor is 1 outside the rush windows and for road classes or
// directions without a configured modifier.
func (m RateModel) RushFactor(site SiteProfile, hour int) float64 {
	mod, ok := m.Rush[site.RoadClass][site.Direction]
	if !ok {
		return 1.0
	}
	hour = normalizeHour(hour)
	switch {
	case MorningRush.Contains(hour):
		return mod.Morning
	case EveningRush.Contains(hour):
		return mod.Evening
	}
	return 1.0
}

func normalizeHour(hour int) int {
	return ((hour % 24) + 24) % 24
}
