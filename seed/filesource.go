package seed

import (
	"context"
	"fmt"
	"io/fs"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/tailored-agentic-units/silo/config"
)

type fileSource struct {
	root string
}

// NewFileSource creates a Source backed by a directory. Every supported file
// becomes one key: its path relative to root, slash separated, without the
// extension. Hidden files and directories are skipped.
func NewFileSource(root string) Source {
	return &fileSource{root: root}
}

// NewSource creates a Source from configuration. It returns a nil Source when
// Path is empty, meaning seeding is disabled.
func NewSource(cfg *config.SeedConfig) Source {
	if cfg.Path == "" {
		return nil
	}
	return NewFileSource(cfg.Path)
}

func (s *fileSource) List(_ context.Context) ([]string, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}
	return slices.Sorted(maps.Keys(files)), nil
}

func (s *fileSource) Load(_ context.Context, keys ...string) ([]Entry, error) {
	files, err := s.files()
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(keys))
	for _, key := range keys {
		path, ok := files[key]
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrKeyNotFound, key)
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrLoadFailed, key, err)
		}

		var value any
		if err := Unmarshal(path, data, &value); err != nil {
			return nil, fmt.Errorf("%w: %s: %w", ErrLoadFailed, key, err)
		}
		entries = append(entries, Entry{Key: key, Value: value})
	}

	return entries, nil
}

// files maps every key to its file. Two files differing only by extension
// claim the same key and fail with ErrDuplicateKey.
func (s *fileSource) files() (map[string]string, error) {
	files := make(map[string]string)

	err := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			if os.IsNotExist(err) && path == s.root {
				return fs.SkipAll
			}
			return err
		}

		if path != s.root && strings.HasPrefix(d.Name(), ".") {
			if d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}

		if d.IsDir() || !Supported(path) {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		key := strings.TrimSuffix(filepath.ToSlash(rel), filepath.Ext(rel))

		if other, exists := files[key]; exists {
			return fmt.Errorf("%w: %s (%s, %s)", ErrDuplicateKey, key, filepath.Base(other), d.Name())
		}
		files[key] = path
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrLoadFailed, err)
	}

	return files, nil
}
