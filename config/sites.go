package config

import (
	"bytes"
	_ "embed"
	"errors"
	"fmt"
	"os"

	"github.com/m4cd4r4/SwanFlow/traffic"

	"gopkg.in/yaml.v3"
)

var ErrRateTable = errors.New("hourly rate table must have exactly 24 entries")

//go:embed sites.yaml
var defaultSitesYAML []byte

// Network is the static generation setup: every monitored site plus the
// demand model they share.
type Network struct {
	Sites []traffic.SiteProfile
	Model traffic.RateModel
}

type siteFile struct {
	HourlyRates []float64                       `yaml:"hourly_rates"`
	Rush        map[string]map[string]rushEntry `yaml:"rush_modifiers"`
	Sites       []siteEntry                     `yaml:"sites"`
}

type rushEntry struct {
	Morning float64 `yaml:"morning"`
	Evening float64 `yaml:"evening"`
}

type siteEntry struct {
	Name       string   `yaml:"name"`
	Multiplier float64  `yaml:"multiplier"`
	Direction  string   `yaml:"direction"`
	RoadClass  string   `yaml:"road_class"`
	Zone       string   `yaml:"zone"`
	Lat        *float64 `yaml:"lat"`
	Lng        *float64 `yaml:"lng"`
}

// LoadSites reads the site file at path, or the embedded default when path
// is empty. Any problem is a configuration error.
func LoadSites(path string) (*Network, error) {
	if path == "" {
		return ParseSites(defaultSitesYAML)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read sites file: %w", err)
	}
	return ParseSites(data)
}

func ParseSites(data []byte) (*Network, error) {
	var f siteFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&f); err != nil {
		return nil, fmt.Errorf("parse sites file: %w", err)
	}

	model := traffic.DefaultRateModel()
	if f.HourlyRates != nil {
		if len(f.HourlyRates) != len(model.Hourly) {
			return nil, fmt.Errorf("%w, got %d", ErrRateTable, len(f.HourlyRates))
		}
		copy(model.Hourly[:], f.HourlyRates)
	}
	for class, byDir := range f.Rush {
		rc := traffic.RoadClass(class)
		if model.Rush[rc] == nil {
			model.Rush[rc] = make(map[traffic.Direction]traffic.RushModifier)
		}
		for dir, mod := range byDir {
			model.Rush[rc][traffic.Direction(dir)] = traffic.RushModifier{Morning: mod.Morning, Evening: mod.Evening}
		}
	}
	if err := model.Validate(); err != nil {
		return nil, err
	}

	sites := make([]traffic.SiteProfile, 0, len(f.Sites))
	for _, s := range f.Sites {
		class := traffic.RoadClass(s.RoadClass)
		if class == "" {
			class = traffic.Arterial
		}
		sites = append(sites, traffic.SiteProfile{
			Name:       s.Name,
			Multiplier: s.Multiplier,
			Direction:  traffic.Direction(s.Direction),
			RoadClass:  class,
			Zone:       traffic.Zone(s.Zone),
			Lat:        s.Lat,
			Lng:        s.Lng,
		})
	}
	if err := traffic.ValidateProfiles(sites); err != nil {
		return nil, err
	}

	return &Network{Sites: sites, Model: model}, nil
}
