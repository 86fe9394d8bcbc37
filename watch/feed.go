package watch

import (
	"context"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/silo"
)

// Update is one notification delivered to a watcher.
type Update struct {
	// Node is the full name of the watched node
	Node string

	// Sequence counts notifications seen by this watch, starting at 1.
	// Gaps mean updates were dropped.
	Sequence uint64

	Time time.Time

	// Value is the watched node's materialized value
	Value any

	// State is the node's snapshot without linked modifiers
	State map[string]any

	// Modifiers lists the linked modifier names visible in the snapshot
	Modifiers []string
}

// NewUpdate describes n and the state it was notified with. Sequence is
// left zero.
func NewUpdate(n *silo.Node, state silo.Snapshot) Update {
	var modifiers []string
	for key, val := range state {
		if _, ok := val.(*silo.Linked); ok {
			modifiers = append(modifiers, key)
		}
	}
	slices.Sort(modifiers)

	return Update{
		Node:      n.Name(),
		Time:      time.Now(),
		Value:     n.Value(),
		State:     state.Values(),
		Modifiers: modifiers,
	}
}

// Option configures a Feed.
type Option func(*Feed)

// WithLogger sets the logger for watcher lifecycle and drop reports.
// Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(f *Feed) { f.logger = l }
}

// Feed turns node subscriptions into buffered channels of updates.
//
// The subscriber runs on the node's runner, so delivery never blocks: when a
// watcher's buffer is full the update is dropped and counted.
type Feed struct {
	bufferSize int
	logger     *slog.Logger
	metrics    *Metrics

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	watches map[uuid.UUID]*Watch
}

func New(ctx context.Context, cfg config.WatchConfig, opts ...Option) *Feed {
	feedCtx, cancel := context.WithCancel(ctx)

	f := &Feed{
		bufferSize: cfg.BufferSize,
		logger:     slog.Default(),
		metrics:    NewMetrics(),
		ctx:        feedCtx,
		cancel:     cancel,
		watches:    make(map[uuid.UUID]*Watch),
	}

	for _, opt := range opts {
		opt(f)
	}

	return f
}

// Watch subscribes to n and returns the watch receiving its updates.
func (f *Feed) Watch(n *silo.Node) (*Watch, error) {
	if f.ctx.Err() != nil {
		return nil, fmt.Errorf("feed shut down: %w", ErrClosed)
	}

	w := &Watch{
		node:    n,
		channel: NewChannel[Update](f.ctx, f.bufferSize),
		feed:    f,
	}
	w.id = n.Subscribe(w.deliver)

	f.mu.Lock()
	f.watches[w.id] = w
	f.mu.Unlock()

	f.metrics.RecordWatcher(1)
	f.logger.DebugContext(
		f.ctx,
		"watcher registered",
		slog.String("node", n.Name()),
		slog.String("watch_id", w.id.String()),
	)

	return w, nil
}

func (f *Feed) Metrics() MetricsSnapshot {
	return f.metrics.Snapshot()
}

// Len reports the number of open watches.
func (f *Feed) Len() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.watches)
}

// Shutdown closes every open watch.
func (f *Feed) Shutdown() {
	f.mu.Lock()
	watches := make([]*Watch, 0, len(f.watches))
	for _, w := range f.watches {
		watches = append(watches, w)
	}
	f.mu.Unlock()

	for _, w := range watches {
		w.Close()
	}
	f.cancel()

	f.logger.DebugContext(
		context.Background(),
		"feed shut down",
		slog.Int("watchers", len(watches)),
	)
}

func (f *Feed) remove(w *Watch) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	if _, ok := f.watches[w.id]; !ok {
		return false
	}
	delete(f.watches, w.id)
	return true
}

// Watch is one watcher's view of a node.
type Watch struct {
	id       uuid.UUID
	node     *silo.Node
	channel  *Channel[Update]
	feed     *Feed
	sequence atomic.Uint64
}

func (w *Watch) ID() uuid.UUID {
	return w.id
}

// Node returns the watched node, following replacements.
func (w *Watch) Node() *silo.Node {
	return w.node.Current()
}

// Receive waits for the next update.
func (w *Watch) Receive(ctx context.Context) (Update, error) {
	return w.channel.Receive(ctx)
}

// TryReceive returns a buffered update without waiting.
func (w *Watch) TryReceive() (Update, bool) {
	return w.channel.TryReceive()
}

// Close unsubscribes from the node and releases blocked receivers.
func (w *Watch) Close() {
	if !w.feed.remove(w) {
		return
	}

	w.node.Unsubscribe(w.id)
	w.channel.Close()
	w.feed.metrics.RecordWatcher(-1)

	w.feed.logger.DebugContext(
		w.feed.ctx,
		"watcher closed",
		slog.String("node", w.node.Name()),
		slog.String("watch_id", w.id.String()),
	)
}

func (w *Watch) deliver(state silo.Snapshot) {
	update := NewUpdate(w.node, state)
	update.Sequence = w.sequence.Add(1)

	if w.channel.TrySend(update) {
		w.feed.metrics.RecordDelivered(1)
		return
	}

	if w.channel.IsClosed() {
		return
	}

	w.feed.metrics.RecordDropped(1)
	w.feed.logger.WarnContext(
		w.feed.ctx,
		"watch buffer full, update dropped",
		slog.String("node", w.node.Name()),
		slog.Uint64("sequence", update.Sequence),
		slog.Int("buffer_size", w.channel.BufferSize()),
	)
}
