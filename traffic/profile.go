package traffic

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

var ErrInvalidProfile = errors.New("invalid site profile")

type Direction string

const (
	Northbound Direction = "NB"
	Southbound Direction = "SB"
)

func (d Direction) Valid() bool {
	return d == Northbound || d == Southbound
}

type RoadClass string

const Arterial RoadClass = "arterial"

type Zone string

const (
	ZoneNone       Zone = ""
	ZoneCommercial Zone = "commercial"
	ZoneSchool     Zone = "school"
)

func (z Zone) Valid() bool {
	switch z {
	case ZoneNone, ZoneCommercial, ZoneSchool:
		return true
	}
	return false
}

// SiteProfile is the static description of one monitored road segment and
// direction. Profiles are loaded once at startup and never mutated.
type SiteProfile struct {
	Name       string
	Multiplier float64
	Direction  Direction
	RoadClass  RoadClass
	Zone       Zone
	Lat        *float64
	Lng        *float64
}

func (p SiteProfile) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidProfile)
	}
	if !(p.Multiplier > 0) || math.IsInf(p.Multiplier, 1) {
		return fmt.Errorf("%w: site %q: multiplier must be positive, got %v", ErrInvalidProfile, p.Name, p.Multiplier)
	}
	if !p.Direction.Valid() {
		return fmt.Errorf("%w: site %q: unknown direction %q", ErrInvalidProfile, p.Name, p.Direction)
	}
	if p.RoadClass == "" {
		return fmt.Errorf("%w: site %q: missing road class", ErrInvalidProfile, p.Name)
	}
	if !p.Zone.Valid() {
		return fmt.Errorf("%w: site %q: unknown zone %q", ErrInvalidProfile, p.Name, p.Zone)
	}
	if (p.Lat == nil) != (p.Lng == nil) {
		return fmt.Errorf("%w: site %q: latitude and longitude must be set together", ErrInvalidProfile, p.Name)
	}
	if p.Lat != nil && !(*p.Lat >= -90 && *p.Lat <= 90) {
		return fmt.Errorf("%w: site %q: latitude %v out of range", ErrInvalidProfile, p.Name, *p.Lat)
	}
	if p.Lng != nil && !(*p.Lng >= -180 && *p.Lng <= 180) {
		return fmt.Errorf("%w: site %q: longitude %v out of range", ErrInvalidProfile, p.Name, *p.Lng)
	}
	return nil
}

// ValidateProfiles checks every profile and rejects duplicate names.
func ValidateProfiles(profiles []SiteProfile) error {
	if len(profiles) == 0 {
		return fmt.Errorf("%w: no sites configured", ErrInvalidProfile)
	}
	seen := make(map[string]struct{}, len(profiles))
	for _, p := range profiles {
		if err := p.Validate(); err != nil {
			return err
		}
		if _, dup := seen[p.Name]; dup {
			return fmt.Errorf("%w: duplicate site name %q", ErrInvalidProfile, p.Name)
		}
		seen[p.Name] = struct{}{}
	}
	return nil
}
