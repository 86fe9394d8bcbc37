package silo

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/tailored-agentic-units/silo/config"
	"github.com/tailored-agentic-units/silo/observability"
)

// Option configures a Silo after config-driven initialization.
type Option func(*Silo)

// WithObserver overrides the observer resolved from SiloConfig.Observer.
func WithObserver(o observability.Observer) Option {
	return func(s *Silo) { s.observer = o }
}

// WithLogger sets the logger used for runner failures. Defaults to slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Silo) { s.logger = l }
}

// WithErrorHandler registers a callback for errors produced by runners that
// were started by modifier invocations. Runners started through Node.Run
// return their errors to the caller instead.
func WithErrorHandler(fn func(error)) Option {
	return func(s *Silo) { s.onError = fn }
}

// WithContext sets the base context handed to every task. Cancelling it (or
// calling Close) cancels in-flight tasks that honour their context.
func WithContext(ctx context.Context) Option {
	return func(s *Silo) { s.parentCtx = ctx }
}

// Silo owns a tree of nodes. Every node lives in the silo's arena and refers
// to its parent by NodeID, so parent links are handles, not owners.
type Silo struct {
	name     string
	bubble   bool
	observer observability.Observer
	logger   *slog.Logger
	onError  func(error)

	parentCtx context.Context
	ctx       context.Context
	cancel    context.CancelFunc
	closed    atomic.Bool

	nextID   atomic.Uint64
	createMu sync.Mutex
	mu       sync.RWMutex
	nodes    map[NodeID]*Node
	names    map[string]NodeID

	root    *Node
	tracker runTracker
}

// New creates a Silo with an empty root scope named cfg.RootName.
//
// The observer is resolved from the observability registry by
// cfg.Observer unless WithObserver is supplied.
//
// Example:
//
//	s, err := silo.New(config.DefaultSiloConfig())
//	count, err := s.CreateNode("count", 0, silo.WithParent(s.Root()))
func New(cfg config.SiloConfig, opts ...Option) (*Silo, error) {
	if cfg.RootName == "" {
		return nil, fmt.Errorf("root name: %w", ErrEmptyName)
	}

	s := &Silo{
		name:      cfg.Name,
		bubble:    cfg.Bubble,
		logger:    slog.Default(),
		parentCtx: context.Background(),
		nodes:     make(map[NodeID]*Node),
		names:     make(map[string]NodeID),
	}

	for _, opt := range opts {
		opt(s)
	}

	if s.observer == nil {
		observer, err := observability.GetObserver(cfg.Observer)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve observer: %w", err)
		}
		s.observer = observer
	}

	s.ctx, s.cancel = context.WithCancel(s.parentCtx)

	s.root = s.newNode(cfg.RootName, Object, NoParent)
	s.root.scope = true
	s.root.children = make(map[string]*Node)
	s.register(s.root)

	return s, nil
}

// Name returns the silo identifier used as the event source.
func (s *Silo) Name() string {
	return s.name
}

// Root returns the root scope.
func (s *Silo) Root() *Node {
	return s.root
}

// Node resolves a handle to its node. NoParent and ids of replaced nodes
// resolve to nil.
func (s *Silo) Node(id NodeID) *Node {
	if id == NoParent {
		return nil
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.nodes[id]
}

// Lookup finds a live node by its full name ("root_list_1").
func (s *Silo) Lookup(name string) (*Node, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.names[name]
	if !ok {
		return nil, false
	}
	return s.nodes[id], true
}

// Len reports how many live nodes the arena holds, root included.
func (s *Silo) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.nodes)
}

// Settle blocks until every runner started by a modifier invocation has
// returned, then reports the errors those runners produced since the
// previous Settle. Tasks left queued behind a failed task are not run.
func (s *Silo) Settle(ctx context.Context) error {
	return s.tracker.wait(ctx)
}

// Close rejects further modifier invocations and cancels the context handed
// to in-flight tasks.
func (s *Silo) Close() {
	if s.closed.CompareAndSwap(false, true) {
		s.cancel()
	}
}

func (s *Silo) newNode(name string, kind Kind, parent NodeID) *Node {
	return &Node{
		id:     NodeID(s.nextID.Add(1)),
		name:   name,
		kind:   kind,
		parent: parent,
		silo:   s,
	}
}

func (s *Silo) register(n *Node) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nodes[n.id] = n
	s.names[n.name] = n.id
}

// unregister drops the given subtrees from the arena. A name is only
// released if it still points at the dropped node; rebuilt children reuse
// their predecessors' names.
func (s *Silo) unregister(roots ...*Node) {
	var dropped []*Node
	for _, n := range roots {
		dropped = collect(n, dropped)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, n := range dropped {
		delete(s.nodes, n.id)
		if s.names[n.name] == n.id {
			delete(s.names, n.name)
		}
	}
}

func collect(n *Node, into []*Node) []*Node {
	into = append(into, n)
	for _, child := range n.Children() {
		into = collect(child, into)
	}
	return into
}

func (s *Silo) nameTaken(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, taken := s.names[name]
	return taken
}

func (s *Silo) emit(ctx context.Context, t observability.EventType, level observability.Level, node string, data map[string]any) {
	s.observer.OnEvent(ctx, observability.Event{
		Type:      t,
		Level:     level,
		Timestamp: time.Now(),
		Source:    s.name,
		Node:      node,
		Data:      data,
	})
}

func (s *Silo) reportError(err error) {
	s.logger.ErrorContext(
		s.ctx,
		"silo runner failed",
		slog.String("silo", s.name),
		slog.String("error", err.Error()),
	)
	if s.onError != nil {
		s.onError(err)
	}
}
