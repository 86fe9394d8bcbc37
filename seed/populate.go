package seed

import (
	"context"
	"fmt"
	"strings"

	"github.com/tailored-agentic-units/silo/silo"
)

// Populate loads every document in src and creates it as a slot under the
// silo's root scope, creating intermediate scopes for nested keys. It
// returns the created slots in key order.
func Populate(ctx context.Context, s *silo.Silo, src Source) ([]*silo.Node, error) {
	keys, err := src.List(ctx)
	if err != nil {
		return nil, err
	}

	entries, err := src.Load(ctx, keys...)
	if err != nil {
		return nil, err
	}

	nodes := make([]*silo.Node, 0, len(entries))
	for _, entry := range entries {
		segments := strings.Split(entry.Key, "/")

		parent := s.Root()
		for _, segment := range segments[:len(segments)-1] {
			if parent, err = scope(s, parent, segment); err != nil {
				return nil, fmt.Errorf("seed %s: %w", entry.Key, err)
			}
		}

		n, err := s.CreateNode(segments[len(segments)-1], entry.Value, silo.WithParent(parent))
		if err != nil {
			return nil, fmt.Errorf("seed %s: %w", entry.Key, err)
		}
		nodes = append(nodes, n)
	}

	return nodes, nil
}

// scope returns the child scope named key, creating it when missing.
func scope(s *silo.Silo, parent *silo.Node, key string) (*silo.Node, error) {
	if child, ok := parent.Child(key); ok {
		if !child.IsScope() {
			return nil, fmt.Errorf("%s is a slot, not a scope: %w", child.Name(), silo.ErrNotScope)
		}
		return child, nil
	}
	return s.NewScope(key, parent)
}
