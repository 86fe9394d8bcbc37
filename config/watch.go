package config

// WatchConfig sizes the channels handed out by watch feeds.
//
// A full channel drops the snapshot instead of stalling the node runner, so
// BufferSize trades memory for tolerance of slow consumers.
type WatchConfig struct {
	BufferSize int `json:"buffer_size" yaml:"buffer_size" toml:"buffer_size"`
}

// DefaultWatchConfig returns a WatchConfig buffering 16 snapshots.
func DefaultWatchConfig() WatchConfig {
	return WatchConfig{
		BufferSize: 16,
	}
}

func (c *WatchConfig) Merge(source *WatchConfig) {
	if source.BufferSize > 0 {
		c.BufferSize = source.BufferSize
	}
}
