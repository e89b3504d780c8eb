// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Defaults holds the scan settings a config file or profile can set.
type Defaults struct {
	RulesDir        string   `yaml:"rules_dir"`
	LicensesDir     string   `yaml:"licenses_dir"`
	Format          string   `yaml:"format"`
	Output          string   `yaml:"output"`
	Workers         int      `yaml:"workers"`
	MinScore        float64  `yaml:"min_score"`
	SuppressionFile string   `yaml:"suppression_file"`
	Verbose         bool     `yaml:"verbose"`
	Debug           bool     `yaml:"debug"`
	NoColor         bool     `yaml:"no_color"`
	Recursive       bool     `yaml:"recursive"`
	ShowSuppressed  bool     `yaml:"show_suppressed"`
	ExcludePatterns []string `yaml:"exclude_patterns"`
}

// Profile is a named settings bundle for a scanning scenario, e.g. a
// strict CI profile versus a permissive local one.
type Profile struct {
	Description string `yaml:"description"`
	Defaults    `yaml:",inline"`
}

// Config is the on-disk configuration file.
type Config struct {
	Defaults Defaults           `yaml:"defaults"`
	Profiles map[string]Profile `yaml:"profiles"`
}

// configFileNames are searched in order when no path is given.
var configFileNames = []string{".lichen-scan.yaml", "lichen-scan.yaml"}

// LoadConfig loads configuration from the given path. An empty path
// searches the default locations; a missing file yields defaults.
func LoadConfig(configPath string) (*Config, error) {
	config := defaultConfig()

	if configPath == "" {
		configPath = FindConfigFile()
		if configPath == "" {
			return config, nil
		}
	}

	data, err := os.ReadFile(filepath.Clean(configPath))
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", configPath, err)
	}
	applyDefaults(&config.Defaults)
	if err := ValidateConfig(config); err != nil {
		return nil, err
	}
	return config, nil
}

// LoadConfigOrDefault loads the config, falling back to defaults on any
// error so the CLI keeps working without a config file.
func LoadConfigOrDefault(configPath string) *Config {
	config, err := LoadConfig(configPath)
	if err != nil {
		return defaultConfig()
	}
	return config
}

func defaultConfig() *Config {
	config := &Config{Profiles: make(map[string]Profile)}
	applyDefaults(&config.Defaults)
	return config
}

func applyDefaults(d *Defaults) {
	if d.Format == "" {
		d.Format = "text"
	}
}

// FindConfigFile looks for a config file in the working directory, then
// the user's home directory.
func FindConfigFile() string {
	for _, name := range configFileNames {
		if fileExists(name) {
			return name
		}
	}
	if home, err := os.UserHomeDir(); err == nil {
		for _, name := range configFileNames {
			path := filepath.Join(home, name)
			if fileExists(path) {
				return path
			}
		}
	}
	return ""
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

// ListProfiles returns the configured profile names.
func (c *Config) ListProfiles() []string {
	var names []string
	for name := range c.Profiles {
		names = append(names, name)
	}
	return names
}

// GetProfile returns a profile by name, nil if not configured.
func (c *Config) GetProfile(name string) *Profile {
	if profile, exists := c.Profiles[name]; exists {
		return &profile
	}
	return nil
}

// Effective returns the defaults with a profile's non-zero settings
// layered on top. A nil profile returns the defaults unchanged.
func (c *Config) Effective(profile *Profile) Defaults {
	out := c.Defaults
	if profile == nil {
		return out
	}
	p := profile.Defaults
	if p.RulesDir != "" {
		out.RulesDir = p.RulesDir
	}
	if p.LicensesDir != "" {
		out.LicensesDir = p.LicensesDir
	}
	if p.Format != "" {
		out.Format = p.Format
	}
	if p.Output != "" {
		out.Output = p.Output
	}
	if p.Workers != 0 {
		out.Workers = p.Workers
	}
	if p.MinScore != 0 {
		out.MinScore = p.MinScore
	}
	if p.SuppressionFile != "" {
		out.SuppressionFile = p.SuppressionFile
	}
	if p.Verbose {
		out.Verbose = true
	}
	if p.Debug {
		out.Debug = true
	}
	if p.NoColor {
		out.NoColor = true
	}
	if p.Recursive {
		out.Recursive = true
	}
	if p.ShowSuppressed {
		out.ShowSuppressed = true
	}
	if len(p.ExcludePatterns) > 0 {
		out.ExcludePatterns = append(out.ExcludePatterns, p.ExcludePatterns...)
	}
	return out
}

// ValidateConfig checks settings that would otherwise fail deep inside
// the pipeline.
func ValidateConfig(config *Config) error {
	if config.Defaults.Workers < 0 {
		return fmt.Errorf("workers must not be negative, got %d", config.Defaults.Workers)
	}
	if config.Defaults.MinScore < 0 || config.Defaults.MinScore > 100 {
		return fmt.Errorf("min_score must be between 0 and 100, got %g", config.Defaults.MinScore)
	}
	for name, profile := range config.Profiles {
		if profile.MinScore < 0 || profile.MinScore > 100 {
			return fmt.Errorf("profile %s: min_score must be between 0 and 100, got %g", name, profile.MinScore)
		}
	}
	return nil
}
