package config_test

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/tailored-agentic-units/silo/config"
)

func TestSiloConfig_Default(t *testing.T) {
	cfg := config.DefaultSiloConfig()

	if cfg.Name != "silo" {
		t.Errorf("DefaultSiloConfig().Name = %v, want %v", cfg.Name, "silo")
	}
	if cfg.RootName != "root" {
		t.Errorf("DefaultSiloConfig().RootName = %v, want %v", cfg.RootName, "root")
	}
	if cfg.Observer != "slog" {
		t.Errorf("DefaultSiloConfig().Observer = %v, want %v", cfg.Observer, "slog")
	}
	if cfg.Bubble {
		t.Error("DefaultSiloConfig().Bubble should be false")
	}
}

func TestSiloConfig_Merge(t *testing.T) {
	tests := []struct {
		name   string
		source config.SiloConfig
		want   config.SiloConfig
	}{
		{
			name:   "empty source keeps defaults",
			source: config.SiloConfig{},
			want:   config.DefaultSiloConfig(),
		},
		{
			name:   "partial override",
			source: config.SiloConfig{Name: "market", Bubble: true},
			want:   config.SiloConfig{Name: "market", RootName: "root", Observer: "slog", Bubble: true},
		},
		{
			name:   "full override",
			source: config.SiloConfig{Name: "a", RootName: "app", Observer: "noop", Bubble: true},
			want:   config.SiloConfig{Name: "a", RootName: "app", Observer: "noop", Bubble: true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.DefaultSiloConfig()
			cfg.Merge(&tt.source)
			if cfg != tt.want {
				t.Errorf("Merge() = %+v, want %+v", cfg, tt.want)
			}
		})
	}
}

func TestSiloConfig_JSONUnmarshalFromString(t *testing.T) {
	var cfg config.SiloConfig
	err := json.Unmarshal([]byte(`{"name":"market","root_name":"app","observer":"noop","bubble":true}`), &cfg)
	if err != nil {
		t.Fatalf("json.Unmarshal() error = %v", err)
	}

	want := config.SiloConfig{Name: "market", RootName: "app", Observer: "noop", Bubble: true}
	if cfg != want {
		t.Errorf("Unmarshaled = %+v, want %+v", cfg, want)
	}
}

func TestWatchConfig_Merge(t *testing.T) {
	cfg := config.DefaultWatchConfig()
	if cfg.BufferSize != 16 {
		t.Errorf("DefaultWatchConfig().BufferSize = %d, want 16", cfg.BufferSize)
	}

	cfg.Merge(&config.WatchConfig{BufferSize: 0})
	if cfg.BufferSize != 16 {
		t.Errorf("Merge(zero) BufferSize = %d, want 16", cfg.BufferSize)
	}

	cfg.Merge(&config.WatchConfig{BufferSize: 4})
	if cfg.BufferSize != 4 {
		t.Errorf("Merge(4) BufferSize = %d, want 4", cfg.BufferSize)
	}
}

func TestServerConfig_Merge(t *testing.T) {
	cfg := config.DefaultServerConfig()
	if cfg.Addr != ":8420" {
		t.Errorf("DefaultServerConfig().Addr = %q, want %q", cfg.Addr, ":8420")
	}
	if cfg.ShutdownTimeout != 5*time.Second {
		t.Errorf("DefaultServerConfig().ShutdownTimeout = %v, want 5s", cfg.ShutdownTimeout)
	}

	cfg.Merge(&config.ServerConfig{Addr: "127.0.0.1:9000", ShutdownTimeout: time.Second})
	if cfg.Addr != "127.0.0.1:9000" {
		t.Errorf("Addr = %q, want %q", cfg.Addr, "127.0.0.1:9000")
	}
	if cfg.ShutdownTimeout != time.Second {
		t.Errorf("ShutdownTimeout = %v, want 1s", cfg.ShutdownTimeout)
	}
	if cfg.ReadHeaderTimeout != 10*time.Second {
		t.Errorf("ReadHeaderTimeout = %v, want 10s (unchanged)", cfg.ReadHeaderTimeout)
	}
}

func TestSeedConfig_Merge(t *testing.T) {
	cfg := config.DefaultSeedConfig()
	if cfg.Path != "" {
		t.Errorf("DefaultSeedConfig().Path = %q, want empty", cfg.Path)
	}

	cfg.Merge(&config.SeedConfig{Path: "/var/lib/silo"})
	if cfg.Path != "/var/lib/silo" {
		t.Errorf("Path = %q, want %q", cfg.Path, "/var/lib/silo")
	}
}

func TestModifierConfig_KindOrDefault(t *testing.T) {
	tests := []struct {
		kind string
		want string
	}{
		{kind: "", want: config.ModifierKindNode},
		{kind: "node", want: config.ModifierKindNode},
		{kind: "indexed", want: config.ModifierKindIndexed},
	}

	for _, tt := range tests {
		cfg := config.ModifierConfig{Kind: tt.kind}
		if got := cfg.KindOrDefault(); got != tt.want {
			t.Errorf("KindOrDefault(%q) = %q, want %q", tt.kind, got, tt.want)
		}
	}
}
