// Package config provides configuration loading and management for
// enrichquant. It handles loading configuration from YAML files and provides
// default values for the reference analysis setup.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"gopkg.in/yaml.v3"
)

// Configuration is one named channel/mask combination to analyze. A
// configuration is applicable to a condition only when each keyword selector
// resolves to exactly one file in the condition directory. Adding a fifth
// combination is a config edit, not a code change.
type Configuration struct {
	// Name identifies the configuration in output filenames and logs
	Name string `yaml:"name"`

	// ChannelKeywords select the intensity image for this configuration
	ChannelKeywords []string `yaml:"channelKeywords"`

	// ParticleKeywords select the particle-mask ROI archive (no dilation)
	ParticleKeywords []string `yaml:"particleKeywords"`

	// DilatedKeywords select the dilated-mask ROI archive, index-aligned
	// with the particle set
	DilatedKeywords []string `yaml:"dilatedKeywords"`
}

// Config represents the run configuration loaded from YAML.
type Config struct {
	// Processing parameters
	Processing struct {
		// Workers is the number of (condition, configuration) pairs
		// processed concurrently
		Workers int `yaml:"workers"`

		// MaxBackground, when set, caps the background estimate:
		// candidate peaks are restricted to intensities below it
		MaxBackground *float64 `yaml:"maxBackground"`

		// AdditionalEnlargement expands the supplied dilated masks by
		// this many extra 4-connected dilation rounds before ring
		// derivation; 0 uses the supplied masks as-is
		AdditionalEnlargement int `yaml:"additionalEnlargement"`
	} `yaml:"processing"`

	// Output parameters
	Output struct {
		// WriteRingMasks dumps the derived background rings of each
		// configuration as a diagnostic TIFF next to the CSV
		WriteRingMasks bool `yaml:"writeRingMasks"`

		// Verbose lowers the log level to debug
		Verbose bool `yaml:"verbose"`
	} `yaml:"output"`

	// Configurations is the table of channel/mask combinations analyzed
	// for every condition
	Configurations []Configuration `yaml:"configurations"`
}

// DefaultConfig returns a configuration with default values: the four
// reference-domain combinations (two marker channels crossed with the
// primary and secondary structure masks).
func DefaultConfig() *Config {
	cfg := &Config{}

	cfg.Processing.Workers = runtime.NumCPU()
	cfg.Processing.AdditionalEnlargement = 0

	cfg.Output.WriteRingMasks = false
	cfg.Output.Verbose = false

	cfg.Configurations = []Configuration{
		{
			Name:             "cap_pbody",
			ChannelKeywords:  []string{"Cap", "Intensity"},
			ParticleKeywords: []string{"PB", "Mask"},
			DilatedKeywords:  []string{"PB", "Dilated", "Mask"},
		},
		{
			Name:             "g3bp1_pbody",
			ChannelKeywords:  []string{"G3BP1", "Intensity"},
			ParticleKeywords: []string{"PB", "Mask"},
			DilatedKeywords:  []string{"PB", "Dilated", "Mask"},
		},
		{
			Name:             "cap_granule",
			ChannelKeywords:  []string{"Cap", "Intensity"},
			ParticleKeywords: []string{"SG", "Mask"},
			DilatedKeywords:  []string{"SG", "Dilated", "Mask"},
		},
		{
			Name:             "g3bp1_granule",
			ChannelKeywords:  []string{"G3BP1", "Intensity"},
			ParticleKeywords: []string{"SG", "Mask"},
			DilatedKeywords:  []string{"SG", "Dilated", "Mask"},
		},
	}

	return cfg
}

// LoadConfig loads configuration from a YAML file. If the file doesn't
// exist, it returns the default configuration.
func LoadConfig(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		return cfg, nil
	}

	data, err := os.ReadFile(configPath)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("error parsing config file: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Validate checks the configuration invariants.
func (c *Config) Validate() error {
	if c.Processing.Workers < 1 {
		return fmt.Errorf("workers must be at least 1, got %d", c.Processing.Workers)
	}
	if c.Processing.AdditionalEnlargement < 0 {
		return fmt.Errorf("additionalEnlargement must be non-negative, got %d",
			c.Processing.AdditionalEnlargement)
	}
	if mb := c.Processing.MaxBackground; mb != nil && *mb <= 0 {
		return fmt.Errorf("maxBackground must be positive when set, got %g", *mb)
	}
	if len(c.Configurations) == 0 {
		return fmt.Errorf("at least one configuration is required")
	}
	seen := make(map[string]bool, len(c.Configurations))
	for _, conf := range c.Configurations {
		if conf.Name == "" {
			return fmt.Errorf("configuration with empty name")
		}
		if seen[conf.Name] {
			return fmt.Errorf("duplicate configuration name %q", conf.Name)
		}
		seen[conf.Name] = true
		if len(conf.ChannelKeywords) == 0 || len(conf.ParticleKeywords) == 0 || len(conf.DilatedKeywords) == 0 {
			return fmt.Errorf("configuration %q: all three keyword selectors are required", conf.Name)
		}
	}
	return nil
}

// SaveConfig saves the configuration to a YAML file.
func SaveConfig(cfg *Config, configPath string) error {
	dir := filepath.Dir(configPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("error creating config directory: %w", err)
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("error marshaling config: %w", err)
	}

	if err := os.WriteFile(configPath, data, 0644); err != nil {
		return fmt.Errorf("error writing config file: %w", err)
	}

	return nil
}
