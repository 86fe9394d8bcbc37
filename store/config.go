package store

import (
	"fmt"
	"os"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/seed"
)

// Config holds initialization parameters for every store subsystem. Each
// section is handed to that subsystem's config-driven constructor.
type Config struct {
	Silo      config.SiloConfig       `json:"silo" yaml:"silo" toml:"silo"`
	Watch     config.WatchConfig      `json:"watch" yaml:"watch" toml:"watch"`
	Server    config.ServerConfig     `json:"server" yaml:"server" toml:"server"`
	Seed      config.SeedConfig       `json:"seed" yaml:"seed" toml:"seed"`
	Modifiers []config.ModifierConfig `json:"modifiers,omitempty" yaml:"modifiers,omitempty" toml:"modifiers,omitempty"`

	// State holds inline slot values, keyed like seed files ("panel/open").
	State map[string]any `json:"state,omitempty" yaml:"state,omitempty" toml:"state,omitempty"`
}

// DefaultConfig returns a Config with defaults for all subsystems.
func DefaultConfig() Config {
	return Config{
		Silo:   config.DefaultSiloConfig(),
		Watch:  config.DefaultWatchConfig(),
		Server: config.DefaultServerConfig(),
		Seed:   config.DefaultSeedConfig(),
	}
}

// Merge applies non-zero values from source into c, delegating to each
// subsystem's Merge method.
func (c *Config) Merge(source *Config) {
	c.Silo.Merge(&source.Silo)
	c.Watch.Merge(&source.Watch)
	c.Server.Merge(&source.Server)
	c.Seed.Merge(&source.Seed)

	if len(source.Modifiers) > 0 {
		c.Modifiers = source.Modifiers
	}
	if len(source.State) > 0 {
		c.State = source.State
	}
}

// LoadConfig reads a JSON, YAML or TOML config file (chosen by extension),
// merges it with defaults, and returns the resulting Config.
func LoadConfig(filename string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var loaded Config
	if err := seed.Unmarshal(filename, data, &loaded); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	cfg.Merge(&loaded)
	return &cfg, nil
}
