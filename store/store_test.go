package store_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/observability"
	"github.com/tailored-agentic-units/silo/seed"
	"github.com/tailored-agentic-units/silo/silo"
	"github.com/tailored-agentic-units/silo/store"
)

func newStore(t *testing.T, cfg *store.Config, opts ...store.Option) (*store.Store, *observability.CountingObserver) {
	t.Helper()

	counter := observability.NewCountingObserver()
	opts = append([]store.Option{store.WithObserver(counter)}, opts...)

	st, err := store.New(context.Background(), cfg, opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	t.Cleanup(st.Close)
	return st, counter
}

func settle(t *testing.T, st *store.Store) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := st.Settle(ctx); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}
}

func marketConfig() *store.Config {
	cfg := store.DefaultConfig()
	cfg.State = map[string]any{
		"count":      0,
		"list":       []any{1, 2, 3},
		"panel/open": false,
	}
	cfg.Modifiers = []config.ModifierConfig{
		{Slot: "count", Name: "increment", Type: "increment"},
		{Slot: "list", Name: "double", Kind: config.ModifierKindIndexed, Type: "expr", Expr: "current * 2"},
		{Slot: "panel", Name: "patchPanel", Type: "merge-patch"},
	}
	return &cfg
}

func TestNew(t *testing.T) {
	st, counter := newStore(t, marketConfig())

	if len(st.Slots()) != 3 {
		t.Errorf("Slots() = %d, want 3", len(st.Slots()))
	}
	if counter.Count(store.EventStoreReady) != 1 {
		t.Errorf("Count(%s) = %d, want 1", store.EventStoreReady, counter.Count(store.EventStoreReady))
	}

	state, err := st.State("")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	want := map[string]any{
		"count": 0,
		"list":  []any{1, 2, 3},
		"panel": map[string]any{"open": false},
	}
	if diff := cmp.Diff(want, state.Values()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestNew_Errors(t *testing.T) {
	t.Run("unknown observer", func(t *testing.T) {
		cfg := store.DefaultConfig()
		cfg.Silo.Observer = "missing"

		if _, err := store.New(context.Background(), &cfg); err == nil {
			t.Error("New() should fail for an unknown observer")
		}
	})

	t.Run("modifier on missing slot", func(t *testing.T) {
		cfg := store.DefaultConfig()
		cfg.Silo.Observer = "noop"
		cfg.Modifiers = []config.ModifierConfig{{Slot: "ghost", Name: "set", Type: "set"}}

		if _, err := store.New(context.Background(), &cfg); !errors.Is(err, silo.ErrNodeNotFound) {
			t.Errorf("New() error = %v, want %v", err, silo.ErrNodeNotFound)
		}
	})

	t.Run("broken seed", func(t *testing.T) {
		dir := t.TempDir()
		if err := os.WriteFile(filepath.Join(dir, "bad.json"), []byte("{"), 0o644); err != nil {
			t.Fatal(err)
		}

		cfg := store.DefaultConfig()
		cfg.Silo.Observer = "noop"
		cfg.Seed.Path = dir

		if _, err := store.New(context.Background(), &cfg); !errors.Is(err, seed.ErrLoadFailed) {
			t.Errorf("New() error = %v, want %v", err, seed.ErrLoadFailed)
		}
	})
}

func TestNew_SeedSources(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "user.json"), []byte(`{"name": "ann"}`), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg := store.DefaultConfig()
	cfg.Seed.Path = dir

	st, _ := newStore(t, &cfg, store.WithSource(seed.NewMapSource(map[string]any{"flag": true})))

	state, err := st.State("user")
	if err != nil {
		t.Fatalf("State() error = %v", err)
	}
	want := map[string]any{"user": map[string]any{"name": "ann"}, "flag": true}
	if diff := cmp.Diff(want, state.Values()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
}

func TestResolve(t *testing.T) {
	st, _ := newStore(t, marketConfig())

	tests := []struct {
		path    string
		want    string
		wantErr error
	}{
		{path: "", want: "root"},
		{path: "count", want: "root_count"},
		{path: "list/2", want: "root_list_2"},
		{path: "panel/open", want: "root_panel_open"},
		{path: "panel/closed", wantErr: silo.ErrNodeNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			n, err := st.Resolve(tt.path)
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Resolve() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("Resolve() error = %v", err)
			}
			if n.Name() != tt.want {
				t.Errorf("Resolve() = %q, want %q", n.Name(), tt.want)
			}
		})
	}
}

func TestInvoke(t *testing.T) {
	st, counter := newStore(t, marketConfig())
	ctx := context.Background()

	if err := st.Invoke(ctx, "count", "increment", nil, 2); err != nil {
		t.Fatalf("Invoke(increment) error = %v", err)
	}
	if err := st.Invoke(ctx, "list", "double", 0, nil); err != nil {
		t.Fatalf("Invoke(double) error = %v", err)
	}
	// modifiers visible in state are reachable from any node in the scope
	if err := st.Invoke(ctx, "list/1", "increment", nil, 1); err != nil {
		t.Fatalf("Invoke(increment) from list/1 error = %v", err)
	}
	if err := st.Invoke(ctx, "panel", "patchPanel", nil, map[string]any{"open": true}); err != nil {
		t.Fatalf("Invoke(patchPanel) error = %v", err)
	}
	settle(t, st)

	state, _ := st.State("")
	want := map[string]any{
		"count": 3,
		"list":  []any{2, 2, 3},
		"panel": map[string]any{"open": true},
	}
	if diff := cmp.Diff(want, state.Values()); diff != "" {
		t.Errorf("State() mismatch (-want +got):\n%s", diff)
	}
	if counter.Count(store.EventStoreInvoke) != 4 {
		t.Errorf("Count(%s) = %d, want 4", store.EventStoreInvoke, counter.Count(store.EventStoreInvoke))
	}
}

func TestInvoke_Errors(t *testing.T) {
	st, _ := newStore(t, marketConfig())
	ctx := context.Background()

	tests := []struct {
		name     string
		path     string
		modifier string
		index    any
		want     error
	}{
		{name: "missing node", path: "ghost", modifier: "increment", want: silo.ErrNodeNotFound},
		{name: "missing modifier", path: "count", modifier: "reset", want: silo.ErrNotCallable},
		{name: "indexed without index", path: "list", modifier: "double", want: store.ErrIndexRequired},
		{name: "indexed out of range", path: "list", modifier: "double", index: 9, want: silo.ErrChildNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := st.Invoke(ctx, tt.path, tt.modifier, tt.index, nil); !errors.Is(err, tt.want) {
				t.Errorf("Invoke() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestWatch(t *testing.T) {
	st, _ := newStore(t, marketConfig())

	w, err := st.Watch("count")
	if err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	if err := st.Invoke(context.Background(), "count", "increment", nil, nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	update, err := w.Receive(ctx)
	if err != nil {
		t.Fatalf("Receive() error = %v", err)
	}
	if update.Value != 1 || update.Node != "root_count" {
		t.Errorf("update = (%s, %v), want (root_count, 1)", update.Node, update.Value)
	}

	if _, err := st.Watch("ghost"); !errors.Is(err, silo.ErrNodeNotFound) {
		t.Errorf("Watch(ghost) error = %v, want %v", err, silo.ErrNodeNotFound)
	}
}

func TestClose(t *testing.T) {
	cfg := marketConfig()
	counter := observability.NewCountingObserver()

	st, err := store.New(context.Background(), cfg, store.WithObserver(counter))
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := st.Watch("count"); err != nil {
		t.Fatalf("Watch() error = %v", err)
	}

	st.Close()

	if st.Feed().Len() != 0 {
		t.Errorf("Feed().Len() = %d after Close, want 0", st.Feed().Len())
	}
	if err := st.Invoke(context.Background(), "count", "increment", nil, nil); !errors.Is(err, silo.ErrClosed) {
		t.Errorf("Invoke() after Close error = %v, want %v", err, silo.ErrClosed)
	}
	if counter.Count(store.EventStoreClose) != 1 {
		t.Errorf("Count(%s) = %d, want 1", store.EventStoreClose, counter.Count(store.EventStoreClose))
	}
}
