package modifiers_test

import (
	"context"
	"errors"
	"slices"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/modifiers"
	"github.com/tailored-agentic-units/silo/silo"
)

func constBuilder(v any) modifiers.Builder {
	return func(config.ModifierConfig) (silo.Modifier, error) {
		return silo.NodeModifier(func(context.Context, any, any) (any, error) { return v, nil }), nil
	}
}

func TestRegister(t *testing.T) {
	tests := []struct {
		name    string
		typ     string
		wantErr error
	}{
		{name: "valid type", typ: "register_valid"},
		{name: "empty name", typ: "", wantErr: modifiers.ErrEmptyName},
		{name: "builtin collision", typ: "set", wantErr: modifiers.ErrAlreadyExists},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := modifiers.Register(tt.typ, constBuilder(1))
			if tt.wantErr != nil {
				if !errors.Is(err, tt.wantErr) {
					t.Errorf("Register() error = %v, want %v", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Errorf("Register() unexpected error: %v", err)
			}
			if _, ok := modifiers.Get(tt.typ); !ok {
				t.Errorf("Get(%q) not found after Register", tt.typ)
			}
		})
	}
}

func TestReplace(t *testing.T) {
	if err := modifiers.Replace("replace_missing", constBuilder(1)); !errors.Is(err, modifiers.ErrNotFound) {
		t.Errorf("Replace() error = %v, want %v", err, modifiers.ErrNotFound)
	}

	if err := modifiers.Register("replace_target", constBuilder(1)); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if err := modifiers.Replace("replace_target", constBuilder(2)); err != nil {
		t.Fatalf("Replace() error = %v", err)
	}

	m, err := modifiers.Build(config.ModifierConfig{Name: "r", Type: "replace_target"})
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	got, _ := m.Fn(context.Background(), nil, nil)
	if got != 2 {
		t.Errorf("replaced builder returned %v, want 2", got)
	}
}

func TestList_Builtins(t *testing.T) {
	names := modifiers.List()
	for _, want := range []string{"append", "expr", "increment", "json-patch", "merge-patch", "set", "toggle"} {
		if !slices.Contains(names, want) {
			t.Errorf("List() missing builtin %q", want)
		}
	}
	if !slices.IsSorted(names) {
		t.Errorf("List() = %v, want sorted", names)
	}
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name string
		cfg  config.ModifierConfig
		want error
	}{
		{name: "unknown type", cfg: config.ModifierConfig{Name: "x", Type: "nope"}, want: modifiers.ErrNotFound},
		{name: "unknown kind", cfg: config.ModifierConfig{Name: "x", Type: "set", Kind: "sideways"}, want: modifiers.ErrInvalidConfig},
		{name: "empty expr", cfg: config.ModifierConfig{Name: "x", Type: "expr"}, want: modifiers.ErrInvalidConfig},
		{name: "bad expr", cfg: config.ModifierConfig{Name: "x", Type: "expr", Expr: "current +"}, want: modifiers.ErrInvalidConfig},
		{
			name: "bad step",
			cfg:  config.ModifierConfig{Name: "x", Type: "increment", Args: map[string]any{"step": "two"}},
			want: modifiers.ErrInvalidConfig,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := modifiers.Build(tt.cfg); !errors.Is(err, tt.want) {
				t.Errorf("Build() error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestAttach(t *testing.T) {
	cfg := config.DefaultSiloConfig()
	cfg.Observer = "noop"
	s, err := silo.New(cfg)
	if err != nil {
		t.Fatalf("silo.New() error = %v", err)
	}
	defer s.Close()

	count, _ := s.CreateNode("count", 1, silo.WithParent(s.Root()))
	list, _ := s.CreateNode("list", []any{1, 2}, silo.WithParent(s.Root()))

	err = modifiers.Attach(s, []config.ModifierConfig{
		{Slot: "count", Name: "increment", Type: "increment"},
		{Slot: "count", Name: "reset", Type: "set"},
		{Slot: "list", Name: "double", Kind: config.ModifierKindIndexed, Type: "expr", Expr: "current * 2"},
	})
	if err != nil {
		t.Fatalf("Attach() error = %v", err)
	}

	if diff := cmp.Diff([]string{"increment", "reset"}, count.ModifierNames()); diff != "" {
		t.Errorf("count modifiers mismatch (-want +got):\n%s", diff)
	}

	double, ok := list.Modifier("double")
	if !ok || double.Kind() != silo.Indexed {
		t.Fatalf("list modifier double = (%v, %v), want indexed", double, ok)
	}
	if err := double.InvokeAt(1, nil); err != nil {
		t.Fatalf("InvokeAt() error = %v", err)
	}
	inc, _ := count.Modifier("increment")
	if err := inc.Invoke(nil); err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.Settle(ctx); err != nil {
		t.Fatalf("Settle() error = %v", err)
	}

	if count.Value() != 2 {
		t.Errorf("count = %v, want 2", count.Value())
	}
	if diff := cmp.Diff([]any{1, 4}, list.Value()); diff != "" {
		t.Errorf("list mismatch (-want +got):\n%s", diff)
	}
}

func TestAttach_Errors(t *testing.T) {
	cfg := config.DefaultSiloConfig()
	cfg.Observer = "noop"
	s, err := silo.New(cfg)
	if err != nil {
		t.Fatalf("silo.New() error = %v", err)
	}
	defer s.Close()

	s.CreateNode("count", 1, silo.WithParent(s.Root()))

	tests := []struct {
		name string
		cfgs []config.ModifierConfig
		want error
	}{
		{
			name: "missing slot",
			cfgs: []config.ModifierConfig{{Slot: "ghost", Name: "set", Type: "set"}},
			want: silo.ErrNodeNotFound,
		},
		{
			name: "missing name",
			cfgs: []config.ModifierConfig{{Slot: "count", Type: "set"}},
			want: modifiers.ErrInvalidConfig,
		},
		{
			name: "indexed on primitive",
			cfgs: []config.ModifierConfig{{Slot: "count", Name: "set", Kind: config.ModifierKindIndexed, Type: "set"}},
			want: silo.ErrModifierKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := modifiers.Attach(s, tt.cfgs); !errors.Is(err, tt.want) {
				t.Errorf("Attach() error = %v, want %v", err, tt.want)
			}
		})
	}
}
