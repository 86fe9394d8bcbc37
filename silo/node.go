package silo

import (
	"slices"
	"sync"
	"sync/atomic"
)

// NodeID is a node's handle in its silo's arena.
type NodeID uint64

// NoParent is the parent handle of the root scope and of detached nodes.
const NoParent NodeID = 0

// RunState is the state of a node's queue runner.
type RunState int

const (
	Idle RunState = iota
	Running
)

func (r RunState) String() string {
	if r == Running {
		return "RUNNING"
	}
	return "IDLE"
}

// Node is one typed unit of a silo tree: a primitive leaf or a composite
// whose children are named parentName_key.
//
// id, name, kind, scope and parent never change after creation. An update
// whose shape differs from the kind replaces the node (see Current). mu guards
// the value, children and modifiers; qmu guards the queue and run state; smu
// guards subscribers.
type Node struct {
	id     NodeID
	name   string
	kind   Kind
	scope  bool
	parent NodeID
	silo   *Silo

	mu        sync.RWMutex
	value     any
	children  map[string]*Node
	order     []string
	modifiers map[string]*Linked

	qmu   sync.Mutex
	queue []task
	state RunState

	smu         sync.RWMutex
	subscribers []subscription

	successor atomic.Pointer[Node]
}

func (n *Node) ID() NodeID {
	return n.id
}

// Name returns the full name, which encodes the path from the root.
func (n *Node) Name() string {
	return n.name
}

func (n *Node) Kind() Kind {
	return n.kind
}

// IsScope reports whether the node is a scope container whose children are
// exposed by State.
func (n *Node) IsScope() bool {
	return n.scope
}

// Silo returns the silo owning the node.
func (n *Node) Silo() *Silo {
	return n.silo
}

// Current returns the node holding this node's place in the tree: the node
// itself, or the latest replacement when shape-changing updates replaced it.
// Replaced nodes forward Value, State, modifier, subscriber and queue
// operations to Current, so handles taken before a replacement keep working.
func (n *Node) Current() *Node {
	for {
		next := n.successor.Load()
		if next == nil {
			return n
		}
		n = next
	}
}

// Replaced reports whether a shape-changing update replaced the node.
func (n *Node) Replaced() bool {
	return n.successor.Load() != nil
}

// Parent resolves the parent handle. It returns nil for the root and for
// detached nodes.
func (n *Node) Parent() *Node {
	return n.silo.Node(n.parent)
}

// Key returns the key this node was created under: its name with the
// parent's name prefix stripped. Nodes without a parent return their name.
func (n *Node) Key() string {
	parent := n.Parent()
	if parent == nil {
		return n.name
	}
	return keyOf(parent.name, n.name)
}

// Children returns the node's children in key (objects) or index (arrays)
// order. Primitive nodes have none.
func (n *Node) Children() []*Node {
	n.mu.RLock()
	defer n.mu.RUnlock()

	children := make([]*Node, 0, len(n.order))
	for _, name := range n.order {
		children = append(children, n.children[name])
	}
	return children
}

// Child returns the child created under key.
func (n *Node) Child(key string) (*Node, bool) {
	return n.childNamed(childName(n.name, key))
}

func (n *Node) childNamed(name string) (*Node, bool) {
	n.mu.RLock()
	defer n.mu.RUnlock()

	child, ok := n.children[name]
	return child, ok
}

// Value materializes the node's subtree into a plain value.
func (n *Node) Value() any {
	return Materialize(n.Current())
}

// State returns the flattened state visible from this node.
func (n *Node) State() Snapshot {
	return n.silo.State(n.Current())
}

// Modifier returns the linked modifier attached to this node under name.
func (n *Node) Modifier(name string) (*Linked, bool) {
	n = n.Current()
	n.mu.RLock()
	defer n.mu.RUnlock()

	linked, ok := n.modifiers[name]
	return linked, ok
}

// ModifierNames lists the names of the linked modifiers in sorted order.
func (n *Node) ModifierNames() []string {
	n = n.Current()
	n.mu.RLock()
	defer n.mu.RUnlock()

	names := make([]string, 0, len(n.modifiers))
	for name := range n.modifiers {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Pending reports how many tasks wait in the node's queue.
func (n *Node) Pending() int {
	n.qmu.Lock()
	defer n.qmu.Unlock()
	return len(n.queue)
}

// RunState reports whether a runner is draining the node's queue.
func (n *Node) RunState() RunState {
	n.qmu.Lock()
	defer n.qmu.Unlock()
	return n.state
}

func childName(parent, key string) string {
	return parent + "_" + key
}

// keyOf recovers a key by stripping "parent_" from a child name. Extraction
// is by length, so keys may themselves contain underscores.
func keyOf(parent, child string) string {
	return child[len(parent)+1:]
}
