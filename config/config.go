// Package config loads the application configuration file and performs the only
// environment lookups in the module.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/muikit/muikit"
	"github.com/muikit/muikit/internal/logging"
	"github.com/muikit/muikit/manifest"
)

// EnvConfigPath names the variable consulted when no --config flag is given.
const EnvConfigPath = "MUIKIT_CONFIG"

// ExternalHostEnvVars are checked in order by ExternalHostFromEnv.
var ExternalHostEnvVars = []string{"MUI_EXTERNAL_HOST", "PUBLIC_HOST", "PUBLIC_IP", "HOST_IP"}

// Config is the root of the configuration file.
type Config struct {
	Log        logging.Config       `yaml:"log"`
	Components []*manifest.Manifest `yaml:"components"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Log: logging.Config{Level: "info", Format: "text", Outputs: []string{"stderr"}},
	}
}

// Load reads path; an empty path yields Default. Unset log fields keep their defaults.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path) // #nosec G304 -- path is chosen by the operator
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes and validates a configuration document.
func Parse(data []byte) (*Config, error) {
	cfg := Default()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("%w: config: %w", muikit.ErrConfig, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the log format and every component manifest.
func (c *Config) Validate() error {
	var errs []error
	switch strings.ToLower(c.Log.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("%w: log format must be text or json, got %q", muikit.ErrConfig, c.Log.Format))
	}
	for i, m := range c.Components {
		if m == nil {
			errs = append(errs, fmt.Errorf("%w: component %d is empty", muikit.ErrInvalidManifest, i))
			continue
		}
		if err := m.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("component %d: %w", i, err))
		}
	}
	return errors.Join(errs...)
}

// Component returns the first component for provider, or nil.
func (c *Config) Component(provider string) *manifest.Manifest {
	for _, m := range c.Components {
		if m != nil && m.Provider == provider {
			return m
		}
	}
	return nil
}

// ExternalHostFromEnv returns the first non-empty value among ExternalHostEnvVars.
// getenv is usually os.Getenv.
func ExternalHostFromEnv(getenv func(string) string) string {
	for _, name := range ExternalHostEnvVars {
		if v := strings.TrimSpace(getenv(name)); v != "" {
			return v
		}
	}
	return ""
}

// PathFromEnv returns flagValue, or the EnvConfigPath variable when flagValue is empty.
func PathFromEnv(flagValue string, getenv func(string) string) string {
	if flagValue != "" {
		return flagValue
	}
	return getenv(EnvConfigPath)
}
