package config

// SiloConfig defines the identity and behaviour of a single silo.
//
// Example JSON:
//
//	{
//	  "name": "market",
//	  "root_name": "root",
//	  "observer": "slog",
//	  "bubble": true
//	}
type SiloConfig struct {
	// Name identifies the silo in emitted events
	Name string `json:"name" yaml:"name" toml:"name"`

	// RootName is the name of the root scope; every slot name is prefixed by it
	RootName string `json:"root_name" yaml:"root_name" toml:"root_name"`

	// Observer specifies which observer implementation to use ("noop", "slog", etc.)
	Observer string `json:"observer" yaml:"observer" toml:"observer"`

	// Bubble forwards notifications to ancestor subscribers after a node's own
	Bubble bool `json:"bubble" yaml:"bubble" toml:"bubble"`
}

// DefaultSiloConfig returns a SiloConfig with a "root" root scope and slog
// observability.
func DefaultSiloConfig() SiloConfig {
	return SiloConfig{
		Name:     "silo",
		RootName: "root",
		Observer: "slog",
	}
}

func (c *SiloConfig) Merge(source *SiloConfig) {
	if source.Name != "" {
		c.Name = source.Name
	}

	if source.RootName != "" {
		c.RootName = source.RootName
	}

	if source.Observer != "" {
		c.Observer = source.Observer
	}

	if source.Bubble {
		c.Bubble = source.Bubble
	}
}
