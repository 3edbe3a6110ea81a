// Package config provides configuration loading for the funcmodel CLI and
// services.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config is the funcmodel.yaml file structure.
type Config struct {
	DataDir  string        `yaml:"data_dir"`
	LogLevel string        `yaml:"log_level"`
	Tracing  TracingConfig `yaml:"tracing"`
	Engine   EngineConfig  `yaml:"engine"`
}

// TracingConfig configures the OTLP trace exporter.
type TracingConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Endpoint string `yaml:"endpoint"`
}

// EngineConfig carries execution defaults.
type EngineConfig struct {
	Variables map[string]any `yaml:"variables"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		DataDir:  "./data",
		LogLevel: "info",
	}
}

// Load reads a YAML configuration file, filling unset fields with defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse YAML config: %w", err)
	}

	if cfg.DataDir == "" {
		cfg.DataDir = "./data"
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}

	return cfg, nil
}
