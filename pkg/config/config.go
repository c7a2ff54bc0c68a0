// Package config loads the CLI configuration from a YAML file, applying
// defaults and struct validation.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/qutlas/designcore/pkg/telemetry"
)

// Duration is a time.Duration that unmarshals from YAML strings like
// "10s" or "2m".
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var raw string
	if err := value.Decode(&raw); err != nil {
		return err
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", raw, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration {
	return time.Duration(d)
}

// EvaluatorConfig describes how to reach the external geometry evaluator.
// An empty command means no evaluator is configured and the pipeline runs
// on local fallback geometry.
type EvaluatorConfig struct {
	Command      []string `yaml:"command"`
	ReadyTimeout Duration `yaml:"ready_timeout"`
	OpTimeout    Duration `yaml:"op_timeout"`
}

// StoreConfig locates the local run database.
type StoreConfig struct {
	Path string `yaml:"path" validate:"required"`
}

// Config is the full CLI configuration.
type Config struct {
	Evaluator    EvaluatorConfig  `yaml:"evaluator"`
	Subdivisions int              `yaml:"subdivisions" validate:"omitempty,min=1"`
	Store        StoreConfig      `yaml:"store"`
	Telemetry    telemetry.Config `yaml:"telemetry"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Evaluator: EvaluatorConfig{
			ReadyTimeout: Duration(10 * time.Second),
			OpTimeout:    Duration(30 * time.Second),
		},
		Subdivisions: 16,
		Store: StoreConfig{
			Path: "designcore.db",
		},
		Telemetry: telemetry.DefaultConfig(),
	}
}

// Load reads a configuration file, layering it over the defaults. An
// empty path returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(content, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Validate checks the configuration's structural constraints.
func (c *Config) Validate() error {
	return validator.New().Struct(c)
}
