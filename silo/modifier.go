package silo

import (
	"context"
	"fmt"
	"maps"
	"slices"

	"github.com/tailored-agentic-units/silo/observability"
)

// ModifierKind declares how a modifier addresses its node. There is no zero
// kind: a Modifier must say what it is.
type ModifierKind int

const (
	// NodeScoped modifiers replace the value of the node they are attached to.
	NodeScoped ModifierKind = iota + 1
	// Indexed modifiers replace the value of one child, addressed by index or
	// key at invocation time, on that child's own queue.
	Indexed
)

func (k ModifierKind) String() string {
	switch k {
	case NodeScoped:
		return "node"
	case Indexed:
		return "indexed"
	default:
		return fmt.Sprintf("ModifierKind(%d)", int(k))
	}
}

// Func computes a node's next value from its current materialized value and
// the caller's payload. It may block; the node's queue waits for it.
type Func func(ctx context.Context, current any, payload any) (any, error)

// IndexedFunc computes the next value of the child at index.
type IndexedFunc func(ctx context.Context, current any, index any, payload any) (any, error)

// Modifier is a user update function plus its declared kind. Only the
// function matching Kind is used.
type Modifier struct {
	Kind      ModifierKind
	Fn        Func
	IndexedFn IndexedFunc
}

// NodeModifier declares a node-scoped modifier.
func NodeModifier(fn Func) Modifier {
	return Modifier{Kind: NodeScoped, Fn: fn}
}

// IndexedModifier declares an indexed modifier.
func IndexedModifier(fn IndexedFunc) Modifier {
	return Modifier{Kind: Indexed, IndexedFn: fn}
}

func (m Modifier) validate(name string, kind Kind) error {
	switch m.Kind {
	case NodeScoped:
		if m.Fn == nil {
			return fmt.Errorf("%w: %s has no node function", ErrNotCallable, name)
		}
	case Indexed:
		if m.IndexedFn == nil {
			return fmt.Errorf("%w: %s has no indexed function", ErrNotCallable, name)
		}
		if kind == Primitive {
			return fmt.Errorf("%w: indexed modifier %s on a primitive node", ErrModifierKind, name)
		}
	default:
		return fmt.Errorf("%w: %s has undeclared kind %s", ErrNotCallable, name, m.Kind)
	}
	return nil
}

func validateModifiers(kind Kind, mods map[string]Modifier) error {
	for _, name := range slices.Sorted(maps.Keys(mods)) {
		if name == "" {
			return fmt.Errorf("modifier name: %w", ErrEmptyName)
		}
		if err := mods[name].validate(name, kind); err != nil {
			return err
		}
	}
	return nil
}

// AttachModifiers wraps each modifier and installs it on the node, replacing
// any modifier already linked under the same name. Every modifier is
// validated first; on error nothing is installed.
func (n *Node) AttachModifiers(mods map[string]Modifier) error {
	n = n.Current()
	if err := validateModifiers(n.kind, mods); err != nil {
		return err
	}
	n.link(mods)
	return nil
}

func (n *Node) link(mods map[string]Modifier) {
	n.mu.Lock()
	if next := n.successor.Load(); next != nil {
		n.mu.Unlock()
		next.link(mods)
		return
	}
	if n.modifiers == nil {
		n.modifiers = make(map[string]*Linked, len(mods))
	}
	for name, m := range mods {
		n.modifiers[name] = &Linked{
			name:      name,
			kind:      m.Kind,
			node:      n,
			fn:        m.Fn,
			indexedFn: m.IndexedFn,
		}
	}
	n.mu.Unlock()

	for _, name := range slices.Sorted(maps.Keys(mods)) {
		n.silo.emit(n.silo.ctx, EventModifierAttach, observability.LevelVerbose, n.name, map[string]any{
			"modifier": name,
			"kind":     mods[name].Kind.String(),
		})
	}
}

// Linked is the callable entry point produced by attaching a modifier.
// Invoking it never blocks: it queues a task and makes sure a runner is
// draining the target node. Task outcomes surface through subscribers, the
// observer, the silo's error handler and Silo.Settle.
type Linked struct {
	name      string
	kind      ModifierKind
	node      *Node
	fn        Func
	indexedFn IndexedFunc
}

func (l *Linked) Name() string {
	return l.name
}

func (l *Linked) Kind() ModifierKind {
	return l.kind
}

// Node returns the node the modifier is attached to, following replacements.
func (l *Linked) Node() *Node {
	return l.node.Current()
}

// Invoke queues a node-scoped update. When the task runs, the modifier
// receives the node's value as materialized at that moment, so queued
// invocations compose in order.
func (l *Linked) Invoke(payload any) error {
	if l.kind != NodeScoped {
		return fmt.Errorf("%w: %s is %s, use InvokeAt", ErrModifierKind, l.name, l.kind)
	}

	n, fn := l.node, l.fn
	return n.submit(l.name, func(ctx context.Context) (any, error) {
		return fn(ctx, Materialize(n.Current()), payload)
	})
}

// InvokeAt queues an update of the child at index (an array index or object
// key) on the child's own queue. Updates to different children run
// independently of each other and of the parent.
func (l *Linked) InvokeAt(index any, payload any) error {
	if l.kind != Indexed {
		return fmt.Errorf("%w: %s is %s, use Invoke", ErrModifierKind, l.name, l.kind)
	}

	name := childName(l.node.name, fmt.Sprint(index))
	child, ok := l.node.Current().childNamed(name)
	if !ok {
		return fmt.Errorf("%w: %s", ErrChildNotFound, name)
	}

	fn := l.indexedFn
	return child.submit(l.name, func(ctx context.Context) (any, error) {
		return fn(ctx, Materialize(child.Current()), index, payload)
	})
}
