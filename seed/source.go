// Package seed loads initial state documents into a silo's root scope.
//
// A Source lists slot keys and loads their decoded values. Keys are
// /-separated; every segment but the last names a scope, so the key
// "panel/open" becomes the slot "open" inside the scope "panel".
package seed

import (
	"context"
	"errors"
)

// Sentinel errors for seed operations.
var (
	ErrKeyNotFound     = errors.New("seed key not found")
	ErrLoadFailed      = errors.New("seed load failed")
	ErrDuplicateKey    = errors.New("seed key defined twice")
	ErrUnsupportedType = errors.New("unsupported seed format")
)

// Entry is one decoded state document.
type Entry struct {
	Key   string
	Value any
}

// Source is a read-only provider of state documents.
type Source interface {
	// List returns all available keys in sorted order.
	List(ctx context.Context) ([]string, error)
	// Load decodes the documents stored under keys.
	Load(ctx context.Context, keys ...string) ([]Entry, error)
}
