package config

// SeedConfig points at a directory of state documents loaded into the root
// scope at start-up. An empty Path disables seeding.
type SeedConfig struct {
	Path string `json:"path,omitempty" yaml:"path,omitempty" toml:"path,omitempty"`
}

// DefaultSeedConfig returns the default seed configuration (disabled).
func DefaultSeedConfig() SeedConfig {
	return SeedConfig{}
}

func (c *SeedConfig) Merge(source *SeedConfig) {
	if source.Path != "" {
		c.Path = source.Path
	}
}
