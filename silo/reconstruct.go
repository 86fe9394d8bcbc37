package silo

import (
	"fmt"
	"maps"
)

// Snapshot is the flattened state visible from a node: every slot of every
// enclosing scope, keyed by slot key, plus the slots' linked modifiers.
type Snapshot map[string]any

// Values returns a copy of the snapshot without its linked modifiers.
func (s Snapshot) Values() map[string]any {
	out := make(map[string]any, len(s))
	for key, val := range s {
		if _, isModifier := val.(*Linked); !isModifier {
			out[key] = val
		}
	}
	return out
}

// Modifier returns the linked modifier stored under name.
func (s Snapshot) Modifier(name string) (*Linked, bool) {
	linked, ok := s[name].(*Linked)
	return linked, ok
}

// Materialize converts a node's subtree back into a plain value: the leaf
// value for primitives, map[string]any keyed by child key for objects and
// []any in index order for arrays.
func Materialize(n *Node) any {
	n.mu.RLock()
	defer n.mu.RUnlock()

	switch n.kind {
	case Primitive:
		return n.value
	case Object:
		out := make(map[string]any, len(n.order))
		for _, name := range n.order {
			out[keyOf(n.name, name)] = Materialize(n.children[name])
		}
		return out
	case Array:
		out := make([]any, 0, len(n.order))
		for _, name := range n.order {
			out = append(out, Materialize(n.children[name]))
		}
		return out
	default:
		panic(fmt.Sprintf("silo: materialize of unknown kind %v", n.kind))
	}
}

// State returns the snapshot visible from n. The parent's state is computed
// first; a scope then overlays each of its slots' values and modifiers, so
// closer scopes shadow ancestors on key collisions. Other nodes add nothing
// of their own: their value is already part of the enclosing scope's view.
func (s *Silo) State(n *Node) Snapshot {
	state := Snapshot{}

	if parent := n.Parent(); parent != nil {
		maps.Copy(state, s.State(parent))
	}

	if !n.scope {
		return state
	}

	for _, slot := range n.Children() {
		key := keyOf(n.name, slot.name)
		state[key] = Materialize(slot)

		slot.mu.RLock()
		for name, linked := range slot.modifiers {
			state[name] = linked
		}
		slot.mu.RUnlock()
	}

	return state
}
