package traffic

import (
	"errors"
	"math"
	"testing"
)

func ptr(v float64) *float64 { return &v }

func approx(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestBaseRateTableFidelity(t *testing.T) {
	want := map[int]float64{
		0: 0.75, 1: 0.58, 2: 0.42, 3: 0.33, 4: 0.50,
		5: 1.33, 6: 3.00, 7: 5.33, 8: 5.83, 9: 4.67,
		10: 3.67, 11: 3.50, 12: 4.00, 13: 3.83, 14: 3.50,
		15: 4.17, 16: 5.50, 17: 6.33, 18: 5.67, 19: 4.67,
		20: 3.33, 21: 2.50, 22: 1.83, 23: 1.17,
	}
	m := DefaultRateModel()
	for hour := 0; hour < 24; hour++ {
		if got := m.BaseRate(hour); got != want[hour] {
			t.Errorf("BaseRate(%d) = %v, want %v", hour, got, want[hour])
		}
	}
}

func TestBaseRateWrapsHour(t *testing.T) {
	m := DefaultRateModel()
	if got, want := m.BaseRate(24), m.BaseRate(0); got != want {
		t.Errorf("BaseRate(24) = %v, want %v", got, want)
	}
	if got, want := m.BaseRate(-1), m.BaseRate(23); got != want {
		t.Errorf("BaseRate(-1) = %v, want %v", got, want)
	}
}

func TestSiteRate(t *testing.T) {
	m := DefaultRateModel()
	nb := SiteProfile{Name: "nb", Multiplier: 1.3, Direction: Northbound, RoadClass: Arterial}
	sb := SiteProfile{Name: "sb", Multiplier: 1.0, Direction: Southbound, RoadClass: Arterial}
	commercialNB := SiteProfile{Name: "c", Multiplier: 1.0, Direction: Northbound, RoadClass: Arterial, Zone: ZoneCommercial}
	schoolSB := SiteProfile{Name: "s", Multiplier: 1.0, Direction: Southbound, RoadClass: Arterial, Zone: ZoneSchool}
	unknownClass := SiteProfile{Name: "u", Multiplier: 1.0, Direction: Northbound, RoadClass: "freeway"}

	tests := []struct {
		name string
		site SiteProfile
		hour int
		want float64
	}{
		{"NB morning rush", nb, 7, 5.33 * 1.3 * 1.3},
		{"NB evening rush", nb, 17, 6.33 * 1.3 * 0.7},
		{"NB off peak", nb, 12, 4.00 * 1.3},
		{"SB morning rush", sb, 6, 3.00 * 0.7},
		{"SB evening rush", sb, 19, 4.67 * 1.3},
		{"rush window lower bound exclusive", sb, 5, 1.33},
		{"rush window upper bound inclusive", sb, 9, 4.67 * 0.7},
		{"commercial midday", commercialNB, 12, 4.00 * 1.2},
		{"commercial stacks on evening rush", commercialNB, 16, 5.50 * 0.7 * 1.2},
		{"commercial inactive at night", commercialNB, 22, 1.83},
		{"school morning stacks on rush", schoolSB, 8, 5.83 * 0.7 * 1.4},
		{"school afternoon", schoolSB, 15, 4.17 * 1.4},
		{"school afternoon stacks on evening rush", schoolSB, 16, 5.50 * 1.3 * 1.4},
		{"school inactive at noon", schoolSB, 12, 4.00},
		{"unknown road class has no rush modifier", unknownClass, 7, 5.33},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := m.SiteRate(tt.site, tt.hour)
			if !approx(got, tt.want) {
				t.Errorf("SiteRate(%s, %d) = %v, want %v", tt.site.Name, tt.hour, got, tt.want)
			}
		})
	}
}

func TestSiteRateDeterministic(t *testing.T) {
	m := DefaultRateModel()
	site := SiteProfile{Name: "x", Multiplier: 1.15, Direction: Southbound, RoadClass: Arterial, Zone: ZoneSchool}
	for hour := 0; hour < 24; hour++ {
		first := m.SiteRate(site, hour)
		for i := 0; i < 5; i++ {
			if got := m.SiteRate(site, hour); got != first {
				t.Fatalf("SiteRate hour %d not deterministic: %v then %v", hour, first, got)
			}
		}
		if first < 0 {
			t.Errorf("SiteRate hour %d negative: %v", hour, first)
		}
	}
}

func TestRushFactorDefaultsToOne(t *testing.T) {
	m := DefaultRateModel()
	m.Rush = nil
	site := SiteProfile{Name: "x", Multiplier: 1, Direction: Northbound, RoadClass: Arterial}
	if got := m.RushFactor(site, 7); got != 1.0 {
		t.Errorf("RushFactor() = %v, want 1.0", got)
	}
}

func TestRateModelValidate(t *testing.T) {
	if err := DefaultRateModel().Validate(); err != nil {
		t.Fatalf("default model invalid: %v", err)
	}

	t.Run("negative base rate", func(t *testing.T) {
		m := DefaultRateModel()
		m.Hourly[3] = -0.1
		if err := m.Validate(); !errors.Is(err, ErrRateModel) {
			t.Errorf("Validate() = %v, want ErrRateModel", err)
		}
	})

	t.Run("NaN base rate", func(t *testing.T) {
		m := DefaultRateModel()
		m.Hourly[0] = math.NaN()
		if err := m.Validate(); !errors.Is(err, ErrRateModel) {
			t.Errorf("Validate() = %v, want ErrRateModel", err)
		}
	})

	t.Run("NaN rush modifier", func(t *testing.T) {
		m := DefaultRateModel()
		mods := m.Rush[Arterial]
		mod := mods[Northbound]
		mod.Morning = math.NaN()
		mods[Northbound] = mod
		if err := m.Validate(); !errors.Is(err, ErrRateModel) {
			t.Errorf("Validate() = %v, want ErrRateModel", err)
		}
	})

	t.Run("infinite zone factor", func(t *testing.T) {
		m := DefaultRateModel()
		mod := m.Zones[ZoneSchool]
		mod.Factor = math.Inf(1)
		m.Zones[ZoneSchool] = mod
		if err := m.Validate(); !errors.Is(err, ErrRateModel) {
			t.Errorf("Validate() = %v, want ErrRateModel", err)
		}
	})

	t.Run("bad zone window", func(t *testing.T) {
		m := DefaultRateModel()
		m.Zones[ZoneCommercial] = ZoneModifier{Factor: 1.2, Windows: []HourWindow{{From: 20, To: 25}}}
		if err := m.Validate(); !errors.Is(err, ErrRateModel) {
			t.Errorf("Validate() = %v, want ErrRateModel", err)
		}
	})
}

func TestValidateProfiles(t *testing.T) {
	lat, lng := -31.97, 115.84
	good := SiteProfile{Name: "a", Multiplier: 1, Direction: Northbound, RoadClass: Arterial, Lat: &lat, Lng: &lng}

	tests := []struct {
		name    string
		sites   []SiteProfile
		wantErr bool
	}{
		{"valid", []SiteProfile{good}, false},
		{"infinite multiplier", []SiteProfile{{Name: "a", Multiplier: math.Inf(1), Direction: Northbound, RoadClass: Arterial}}, true},
		{"NaN latitude", []SiteProfile{{Name: "a", Multiplier: 1, Direction: Northbound, RoadClass: Arterial, Lat: ptr(math.NaN()), Lng: &lng}}, true},
		{"empty set", nil, true},
		{"empty name", []SiteProfile{{Multiplier: 1, Direction: Northbound, RoadClass: Arterial}}, true},
		{"zero multiplier", []SiteProfile{{Name: "a", Direction: Northbound, RoadClass: Arterial}}, true},
		{"bad direction", []SiteProfile{{Name: "a", Multiplier: 1, Direction: "EB", RoadClass: Arterial}}, true},
		{"bad zone", []SiteProfile{{Name: "a", Multiplier: 1, Direction: Northbound, RoadClass: Arterial, Zone: "industrial"}}, true},
		{"half coordinate", []SiteProfile{{Name: "a", Multiplier: 1, Direction: Northbound, RoadClass: Arterial, Lat: &lat}}, true},
		{"duplicate", []SiteProfile{good, good}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateProfiles(tt.sites)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ValidateProfiles() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrInvalidProfile) {
				t.Errorf("error %v does not wrap ErrInvalidProfile", err)
			}
		})
	}
}
