package config

import (
	"fmt"
	"os"
	"time"

	"github.com/caarlos0/env/v6"
	"gopkg.in/yaml.v3"
	"k8s.io/apimachinery/pkg/util/sets"
)

const (
	DefaultConcurrency = 10
)

// Settings are the options a scan is run with. They are handed to every
// check unchanged. Options a check does not know about are ignored.
type Settings struct {
	// GovCloud selects the government cloud scope lists.
	GovCloud bool `env:"CLOUDAUDIT_GOVCLOUD" yaml:"govcloud"`
	// Regions restricts AWS scopes. Empty means every supported region.
	Regions []string `env:"CLOUDAUDIT_REGIONS" envSeparator:"," yaml:"regions"`
	// Locations restricts Azure scopes. Empty means every supported location.
	Locations []string `env:"CLOUDAUDIT_LOCATIONS" envSeparator:"," yaml:"locations"`
	// Concurrency bounds the branches of each fan-out layer.
	Concurrency int `env:"CLOUDAUDIT_CONCURRENCY" yaml:"concurrency"`
	// Timeout aborts a check that runs longer. Zero disables the deadline.
	Timeout time.Duration `env:"CLOUDAUDIT_TIMEOUT" yaml:"timeout"`
}

// Default returns the settings used when nothing is configured.
func Default() Settings {
	return Settings{
		Concurrency: DefaultConcurrency,
	}
}

// FromEnv returns the default settings overridden by environment variables.
func FromEnv() (Settings, error) {
	settings := Default()
	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("parsing environment: %w", err)
	}
	return settings, settings.Validate()
}

// Load reads settings from a YAML file, if path is not blank, and applies
// environment variables on top.
func Load(path string) (Settings, error) {
	settings := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Settings{}, fmt.Errorf("reading settings: %w", err)
		}
		if err := yaml.Unmarshal(data, &settings); err != nil {
			return Settings{}, fmt.Errorf("parsing settings %s: %w", path, err)
		}
	}
	if err := env.Parse(&settings); err != nil {
		return Settings{}, fmt.Errorf("parsing environment: %w", err)
	}
	return settings, settings.Validate()
}

func (s Settings) Validate() error {
	if s.Concurrency < 0 {
		return fmt.Errorf("concurrency must not be negative: %d", s.Concurrency)
	}
	if s.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", s.Timeout)
	}
	return nil
}

// RegionAllowList returns the configured AWS regions. An empty set allows
// all regions.
func (s Settings) RegionAllowList() sets.Set[string] {
	return sets.New(s.Regions...)
}

// LocationAllowList returns the configured Azure locations. An empty set
// allows all locations.
func (s Settings) LocationAllowList() sets.Set[string] {
	return sets.New(s.Locations...)
}
