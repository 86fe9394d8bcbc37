package silo

import (
	"context"
	"fmt"
	"slices"

	"github.com/tailored-agentic-units/silo/observability"
)

// NodeOption configures CreateNode.
type NodeOption func(*nodeOptions)

type nodeOptions struct {
	parent    *Node
	modifiers map[string]Modifier
	kind      *Kind
}

// WithParent attaches the new node under parent, which must be a scope. The
// node is named parent.Name()+"_"+key and becomes one of the scope's slots.
func WithParent(parent *Node) NodeOption {
	return func(o *nodeOptions) { o.parent = parent }
}

// WithModifiers links modifiers to the new node once it is built.
func WithModifiers(mods map[string]Modifier) NodeOption {
	return func(o *nodeOptions) { o.modifiers = mods }
}

// WithKind asserts the kind the value must decompose to.
func WithKind(kind Kind) NodeOption {
	return func(o *nodeOptions) { o.kind = &kind }
}

// CreateNode decomposes value into a new subtree and returns its root.
//
// Without WithParent the node is detached and named key. With a parent the
// node is named parent_key and attached to the parent, which must be a scope.
// Composite slots own their children and rebuild them on every update, so
// they cannot adopt nodes. Modifiers are validated before anything is
// built, so a failing call leaves the silo unchanged.
func (s *Silo) CreateNode(key string, value any, opts ...NodeOption) (*Node, error) {
	return s.create(key, value, false, opts)
}

// NewScope creates an empty scope container under parent (or detached when
// parent is nil). A scope's children are state slots: State exposes each of
// them, and their modifiers, under the slot's key.
func (s *Silo) NewScope(key string, parent *Node) (*Node, error) {
	var opts []NodeOption
	if parent != nil {
		opts = append(opts, WithParent(parent))
	}
	return s.create(key, map[string]any{}, true, opts)
}

func (s *Silo) create(key string, value any, scope bool, opts []NodeOption) (*Node, error) {
	var o nodeOptions
	for _, opt := range opts {
		opt(&o)
	}

	if key == "" {
		return nil, fmt.Errorf("node key: %w", ErrEmptyName)
	}

	kind, elems := classify(value)
	if o.kind != nil && *o.kind != kind {
		return nil, fmt.Errorf("%w: %q decomposes to %s, want %s", ErrKindMismatch, key, kind, *o.kind)
	}

	if err := validateModifiers(kind, o.modifiers); err != nil {
		return nil, err
	}

	name := key
	parentID := NoParent
	if o.parent != nil {
		if o.parent.silo != s {
			return nil, fmt.Errorf("%w: parent %s belongs to another silo", ErrNodeNotFound, o.parent.name)
		}
		if o.parent.Replaced() || !o.parent.scope {
			return nil, fmt.Errorf("%w: %s", ErrNotScope, o.parent.name)
		}
		name = childName(o.parent.name, key)
		parentID = o.parent.id
	}

	s.createMu.Lock()
	if s.nameTaken(name) {
		s.createMu.Unlock()
		return nil, fmt.Errorf("%w: %s", ErrDuplicateName, name)
	}

	n := s.decompose(name, kind, elems, value, parentID, scope)

	if o.parent != nil {
		o.parent.attach(n)
	}
	s.createMu.Unlock()

	s.emit(s.ctx, EventNodeCreate, observability.LevelVerbose, n.name, map[string]any{
		"kind":  n.kind.String(),
		"scope": scope,
	})

	if len(o.modifiers) > 0 {
		n.link(o.modifiers)
	}

	return n, nil
}

// decompose builds a node and its whole subtree. A composite's children map
// is assigned only after every child exists, and a node is registered only
// after its children, so no reader ever sees it half-built.
func (s *Silo) decompose(name string, kind Kind, elems []element, value any, parent NodeID, scope bool) *Node {
	n := s.newNode(name, kind, parent)
	n.scope = scope

	switch kind {
	case Primitive:
		n.value = value
	case Object, Array:
		n.children, n.order = s.buildChildren(n, elems)
	default:
		panic(fmt.Sprintf("silo: decompose of unknown kind %v", kind))
	}

	s.register(n)
	return n
}

func (s *Silo) buildChildren(parent *Node, elems []element) (map[string]*Node, []string) {
	children := make(map[string]*Node, len(elems))
	order := make([]string, 0, len(elems))

	for _, e := range elems {
		name := childName(parent.name, e.key)
		kind, grandchildren := classify(e.value)
		children[name] = s.decompose(name, kind, grandchildren, e.value, parent.id, false)
		order = append(order, name)
	}

	return children, order
}

// attach adds an independently created node to this object's children.
func (n *Node) attach(child *Node) {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.children == nil {
		n.children = make(map[string]*Node)
	}
	n.children[child.name] = child
	n.order = append(n.order, child.name)
}

// rebuild replaces a composite node's children with the decomposition of
// value, which must have the node's kind. The replaced subtree is dropped
// from the arena.
func (n *Node) rebuild(ctx context.Context, kind Kind, elems []element) {
	children, order := n.silo.buildChildren(n, elems)

	n.mu.Lock()
	previous := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		previous = append(previous, n.children[name])
	}
	n.children, n.order = children, order
	n.mu.Unlock()

	n.silo.unregister(previous...)

	n.silo.emit(ctx, EventNodeRebuild, observability.LevelVerbose, n.name, map[string]any{
		"kind":     kind.String(),
		"children": len(order),
		"replaced": len(previous),
	})
}

// replace swaps n for a new node decomposed from value, which has another
// kind. The replacement takes n's name, parent slot, modifiers, subscribers
// and pending tasks, and is created Running so the caller's runner keeps
// draining it in order. n forwards to it from then on and leaves the arena
// with its subtree.
func (n *Node) replace(ctx context.Context, kind Kind, elems []element, value any) *Node {
	s := n.silo

	r := s.newNode(n.name, kind, n.parent)
	r.state = Running
	switch kind {
	case Primitive:
		r.value = value
	case Object, Array:
		r.children, r.order = s.buildChildren(r, elems)
	default:
		panic(fmt.Sprintf("silo: replace with unknown kind %v", kind))
	}

	n.successor.Store(r)

	n.mu.Lock()
	r.mu.Lock()
	if len(n.modifiers) > 0 && r.modifiers == nil {
		r.modifiers = make(map[string]*Linked, len(n.modifiers))
	}
	for name, linked := range n.modifiers {
		if _, ok := r.modifiers[name]; !ok {
			r.modifiers[name] = linked
		}
	}
	r.mu.Unlock()
	n.mu.Unlock()

	n.smu.Lock()
	r.smu.Lock()
	r.subscribers = append(slices.Clone(n.subscribers), r.subscribers...)
	n.subscribers = nil
	r.smu.Unlock()
	n.smu.Unlock()

	n.qmu.Lock()
	r.qmu.Lock()
	r.queue = append(n.queue, r.queue...)
	n.queue = nil
	n.state = Idle
	r.qmu.Unlock()
	n.qmu.Unlock()

	// A parent rebuilt meanwhile has already dropped n; r then stays out of
	// the arena.
	if n.parent == NoParent {
		s.register(r)
	} else if parent := n.Parent(); parent != nil {
		parent.mu.Lock()
		if parent.children[n.name] == n {
			parent.children[n.name] = r
			s.register(r)
		}
		parent.mu.Unlock()
	}
	s.unregister(n)

	s.emit(ctx, EventNodeReplace, observability.LevelInfo, n.name, map[string]any{
		"previous_kind": n.kind.String(),
		"kind":          kind.String(),
		"previous_id":   uint64(n.id),
		"id":            uint64(r.id),
	})

	return r
}
