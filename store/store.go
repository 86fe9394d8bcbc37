// Package store assembles a ready-to-use silo from configuration: the silo
// itself, its seeded slots, configured modifiers and a watch feed.
//
// The store initializes from configuration via New. Functional options allow
// tests to override the observer, logger or seed sources.
//
//	cfg, err := store.LoadConfig("silo.yaml")
//	st, err := store.New(ctx, cfg)
//	err = st.Invoke(ctx, "count", "increment", nil, 1)
package store

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/tailored-agentic-units/silo/modifiers"
	"github.com/tailored-agentic-units/silo/observability"
	"github.com/tailored-agentic-units/silo/seed"
	"github.com/tailored-agentic-units/silo/silo"
	"github.com/tailored-agentic-units/silo/watch"
)

// Option configures a Store before its subsystems are built.
type Option func(*options)

type options struct {
	observer observability.Observer
	logger   *slog.Logger
	sources  []seed.Source
	onError  func(error)
}

// WithObserver overrides the observer named in the silo config.
func WithObserver(o observability.Observer) Option {
	return func(opts *options) { opts.observer = o }
}

// WithLogger sets the logger shared by the silo and the feed.
func WithLogger(l *slog.Logger) Option {
	return func(opts *options) { opts.logger = l }
}

// WithSource adds a seed source loaded after the configured ones.
func WithSource(src seed.Source) Option {
	return func(opts *options) { opts.sources = append(opts.sources, src) }
}

// WithErrorHandler receives errors from runners started by invocations.
func WithErrorHandler(fn func(error)) Option {
	return func(opts *options) { opts.onError = fn }
}

// Store is an assembled silo with its watch feed.
type Store struct {
	silo     *silo.Silo
	feed     *watch.Feed
	observer observability.Observer
	logger   *slog.Logger
	slots    []*silo.Node
}

// New creates a Store from configuration. Seeds load in order: inline
// cfg.State, then cfg.Seed.Path, then WithSource sources. Modifiers are
// attached once every slot exists.
func New(ctx context.Context, cfg *Config, opts ...Option) (*Store, error) {
	o := options{logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}

	if o.observer == nil {
		observer, err := observability.GetObserver(cfg.Silo.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		o.observer = observer
	}

	siloOpts := []silo.Option{
		silo.WithObserver(o.observer),
		silo.WithLogger(o.logger),
		silo.WithContext(ctx),
	}
	if o.onError != nil {
		siloOpts = append(siloOpts, silo.WithErrorHandler(o.onError))
	}

	s, err := silo.New(cfg.Silo, siloOpts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create silo: %w", err)
	}

	var sources []seed.Source
	if len(cfg.State) > 0 {
		sources = append(sources, seed.NewMapSource(cfg.State))
	}
	if src := seed.NewSource(&cfg.Seed); src != nil {
		sources = append(sources, src)
	}
	sources = append(sources, o.sources...)

	st := &Store{
		silo:     s,
		observer: o.observer,
		logger:   o.logger,
	}

	for _, src := range sources {
		nodes, err := seed.Populate(ctx, s, src)
		if err != nil {
			s.Close()
			return nil, fmt.Errorf("failed to seed state: %w", err)
		}
		st.slots = append(st.slots, nodes...)
	}

	if err := modifiers.Attach(s, cfg.Modifiers); err != nil {
		s.Close()
		return nil, fmt.Errorf("failed to attach modifiers: %w", err)
	}

	st.feed = watch.New(ctx, cfg.Watch, watch.WithLogger(o.logger))

	st.emit(ctx, EventStoreReady, observability.LevelInfo, map[string]any{
		"slots":     len(st.slots),
		"modifiers": len(cfg.Modifiers),
		"sources":   len(sources),
	})

	return st, nil
}

// Silo returns the underlying silo.
func (st *Store) Silo() *silo.Silo {
	return st.silo
}

// Feed returns the store's watch feed.
func (st *Store) Feed() *watch.Feed {
	return st.feed
}

// Slots returns the slots created from seed sources, in load order. Slots
// replaced by shape-changing updates are reported as their replacements.
func (st *Store) Slots() []*silo.Node {
	slots := make([]*silo.Node, len(st.slots))
	for i, n := range st.slots {
		slots[i] = n.Current()
	}
	return slots
}

// Resolve walks a /-separated key path from the root scope. Segments are
// child keys, so "list/1" reaches the second element of the list slot. The
// empty path resolves to the root.
func (st *Store) Resolve(path string) (*silo.Node, error) {
	n := st.silo.Root()
	if path == "" {
		return n, nil
	}

	for segment := range strings.SplitSeq(path, "/") {
		child, ok := n.Child(segment)
		if !ok {
			return nil, fmt.Errorf("%w: %s", silo.ErrNodeNotFound, path)
		}
		n = child
	}
	return n, nil
}

// State returns the snapshot visible from the node at path.
func (st *Store) State(path string) (silo.Snapshot, error) {
	n, err := st.Resolve(path)
	if err != nil {
		return nil, err
	}
	return n.State(), nil
}

// Invoke looks a modifier up by name and invokes it. The node's own
// modifiers are searched first, then the modifiers visible in its state.
// A nil index invokes a node-scoped modifier; indexed modifiers need one.
func (st *Store) Invoke(ctx context.Context, path, modifier string, index, payload any) error {
	n, err := st.Resolve(path)
	if err != nil {
		return err
	}

	linked, ok := n.Modifier(modifier)
	if !ok {
		linked, ok = n.State().Modifier(modifier)
	}
	if !ok {
		return fmt.Errorf("%w: modifier %s from %s", silo.ErrNotCallable, modifier, n.Name())
	}

	st.emit(ctx, EventStoreInvoke, observability.LevelVerbose, map[string]any{
		"path":     path,
		"modifier": modifier,
		"target":   linked.Node().Name(),
	})

	switch linked.Kind() {
	case silo.Indexed:
		if index == nil {
			return fmt.Errorf("%w: %s", ErrIndexRequired, modifier)
		}
		return linked.InvokeAt(index, payload)
	default:
		return linked.Invoke(payload)
	}
}

// Watch opens a watch on the node at path.
func (st *Store) Watch(path string) (*watch.Watch, error) {
	n, err := st.Resolve(path)
	if err != nil {
		return nil, err
	}
	return st.feed.Watch(n)
}

// Settle waits for pending updates and returns their errors.
func (st *Store) Settle(ctx context.Context) error {
	return st.silo.Settle(ctx)
}

// Close shuts the feed down and closes the silo.
func (st *Store) Close() {
	st.feed.Shutdown()
	st.silo.Close()

	st.emit(context.Background(), EventStoreClose, observability.LevelInfo, nil)
}

func (st *Store) emit(ctx context.Context, t observability.EventType, level observability.Level, data map[string]any) {
	st.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    "store." + st.silo.Name(),
		Data:      data,
	})
}
