package seed

import (
	"context"
	"fmt"
	"maps"
	"slices"
)

type mapSource struct {
	values map[string]any
}

// NewMapSource creates a Source over in-memory values keyed like a
// FileSource.
func NewMapSource(values map[string]any) Source {
	return &mapSource{values: maps.Clone(values)}
}

func (s *mapSource) List(_ context.Context) ([]string, error) {
	return slices.Sorted(maps.Keys(s.values)), nil
}

func (s *mapSource) Load(_ context.Context, keys ...string) ([]Entry, error) {
	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		value, ok := s.values[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}
	return entries, nil
}
