// Package modifiers builds silo modifiers from configuration.
//
// A Builder turns a config.ModifierConfig into a silo.Modifier. Builders are
// kept in a global registry keyed by type name; the built-in types are
// registered at init:
//
//	set          replace the value with the payload
//	increment    add the payload (or Args["step"], default 1) to a number
//	toggle       negate a boolean
//	append       append the payload to an array
//	expr         evaluate Expr with current, payload and index in scope
//	json-patch   apply the payload as an RFC 6902 patch
//	merge-patch  apply the payload as an RFC 7386 merge patch
//
// Every type can be declared node-scoped or indexed.
package modifiers

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/silo"
)

// Builder creates a modifier from its configuration.
type Builder func(cfg config.ModifierConfig) (silo.Modifier, error)

type registry struct {
	builders map[string]Builder
	mu       sync.RWMutex
}

var register = &registry{
	builders: make(map[string]Builder),
}

// Register adds a modifier type to the global registry.
// Returns ErrAlreadyExists if the type is already registered; use Replace to
// override it.
func Register(name string, builder Builder) error {
	if name == "" {
		return ErrEmptyName
	}

	register.mu.Lock()
	defer register.mu.Unlock()

	if _, exists := register.builders[name]; exists {
		return fmt.Errorf("%w: %s", ErrAlreadyExists, name)
	}

	register.builders[name] = builder
	return nil
}

// Replace swaps the builder of a registered type.
func Replace(name string, builder Builder) error {
	if name == "" {
		return ErrEmptyName
	}

	register.mu.Lock()
	defer register.mu.Unlock()

	if _, exists := register.builders[name]; !exists {
		return fmt.Errorf("%w: %s", ErrNotFound, name)
	}

	register.builders[name] = builder
	return nil
}

// Get retrieves a builder by type name.
func Get(name string) (Builder, bool) {
	register.mu.RLock()
	defer register.mu.RUnlock()

	builder, exists := register.builders[name]
	return builder, exists
}

// List returns the registered type names in sorted order.
func List() []string {
	register.mu.RLock()
	defer register.mu.RUnlock()

	return slices.Sorted(maps.Keys(register.builders))
}

// Build creates the modifier described by cfg.
func Build(cfg config.ModifierConfig) (silo.Modifier, error) {
	builder, exists := Get(cfg.Type)
	if !exists {
		return silo.Modifier{}, fmt.Errorf("%w: %s", ErrNotFound, cfg.Type)
	}

	m, err := builder(cfg)
	if err != nil {
		return silo.Modifier{}, fmt.Errorf("modifier %s (%s): %w", cfg.Name, cfg.Type, err)
	}
	return m, nil
}

// Attach builds every configured modifier and links it to its slot under the
// silo's root scope. Modifiers are grouped per slot and all of them are
// built before any is attached.
func Attach(s *silo.Silo, cfgs []config.ModifierConfig) error {
	grouped := make(map[string]map[string]silo.Modifier)
	for _, cfg := range cfgs {
		if cfg.Name == "" {
			return fmt.Errorf("%w: modifier on slot %q has no name", ErrInvalidConfig, cfg.Slot)
		}

		m, err := Build(cfg)
		if err != nil {
			return err
		}

		if grouped[cfg.Slot] == nil {
			grouped[cfg.Slot] = make(map[string]silo.Modifier)
		}
		grouped[cfg.Slot][cfg.Name] = m
	}

	for _, key := range slices.Sorted(maps.Keys(grouped)) {
		slot, ok := s.Root().Child(key)
		if !ok {
			return fmt.Errorf("%w: slot %s", silo.ErrNodeNotFound, key)
		}
		if err := slot.AttachModifiers(grouped[key]); err != nil {
			return fmt.Errorf("slot %s: %w", key, err)
		}
	}

	return nil
}

// update is the shared form of every built-in: index is nil for node-scoped
// invocations.
type update func(ctx context.Context, current, index, payload any) (any, error)

// declare wraps fn as a modifier of the configured kind.
func declare(cfg config.ModifierConfig, fn update) (silo.Modifier, error) {
	switch kind := cfg.KindOrDefault(); kind {
	case config.ModifierKindNode:
		return silo.NodeModifier(func(ctx context.Context, current, payload any) (any, error) {
			return fn(ctx, current, nil, payload)
		}), nil
	case config.ModifierKindIndexed:
		return silo.IndexedModifier(silo.IndexedFunc(fn)), nil
	default:
		return silo.Modifier{}, fmt.Errorf("%w: unknown kind %q", ErrInvalidConfig, kind)
	}
}
