// Package config loads and validates the service configuration from a YAML
// or JSON file with optional environment overrides.
package config

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/gridsense/tapctl/infra/bus"
	"github.com/gridsense/tapctl/infra/telemetry"
)

// Config aggregates all service settings.
type Config struct {
	MQTT      bus.Config       `json:"mqtt"`
	Registry  RegistryConfig   `json:"registry"`
	Telemetry telemetry.Config `json:"telemetry"`
	Control   ControlConfig    `json:"control"`
	Metrics   MetricsConfig    `json:"metrics"`
}

// Load reads the configuration file at path. Environment variables prefixed
// with TAPCTL_ override file values, with __ separating nesting levels.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	ext := strings.ToLower(filepath.Ext(path))
	var parser koanf.Parser
	switch ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, err
	}
	if err := k.Load(env.Provider("TAPCTL_", "__", func(s string) string {
		s = strings.TrimPrefix(strings.ToLower(s), "tapctl_")
		return strings.ReplaceAll(s, "__", ".")
	}), nil); err != nil {
		return nil, err
	}
	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "json"}); err != nil {
		return nil, err
	}
	cfg.MQTT.SetDefaults()
	cfg.Registry.SetDefaults()
	cfg.Telemetry.SetDefaults()
	cfg.Control.SetDefaults()
	cfg.Metrics.SetDefaults()
	if err := cfg.MQTT.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Registry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Telemetry.Validate(); err != nil {
		return nil, err
	}
	if err := cfg.Control.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
