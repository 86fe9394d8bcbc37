// Package silo provides a hierarchical reactive state container.
//
// A value (primitive, map or slice) is decomposed into a tree of typed nodes.
// Each node owns a FIFO update queue, modifiers that enqueue updates on it,
// and subscribers notified after every applied update. State reconstructs
// plain values from the tree on demand.
//
// # Nodes and Naming
//
// Children are named parentName_key, where key is the object key or the
// decimal array index. Materialize strips the parent prefix by length to
// recover keys, so keys may contain underscores.
//
//	s, _ := silo.New(config.DefaultSiloConfig())
//	list, _ := s.CreateNode("list", []any{1, 2}, silo.WithParent(s.Root()))
//	list.Children()[1].Name() // "root_list_1"
//
// Every node lives in the silo's arena. Parent links are NodeID handles;
// NoParent marks the root and detached nodes.
//
// # Scopes
//
// The root and nodes created with NewScope are scopes. A scope's children are
// state slots: State(node) starts from the parent's state and, on a scope,
// adds each slot's materialized value and linked modifiers under their keys.
//
//	state := list.State()
//	state["list"]      // []any{1, 2}
//	state["push"]      // *silo.Linked, if list has a modifier "push"
//
// # Modifiers
//
// A Modifier declares its kind explicitly. NodeScoped modifiers update the
// node they are attached to; Indexed modifiers update the child addressed at
// invocation time, on the child's own queue.
//
//	list.AttachModifiers(map[string]silo.Modifier{
//	    "push": silo.NodeModifier(func(ctx context.Context, cur, p any) (any, error) {
//	        return append(cur.([]any), p), nil
//	    }),
//	})
//	push, _ := list.Modifier("push")
//	push.Invoke(3)
//
// Invoking never blocks. The task is queued, a runner is started and the
// result reaches subscribers. Settle waits for started runners and returns
// their errors.
//
// # Update Queue
//
// At most one runner drains a node at a time; a second Run reports
// ErrRunInProgress. Tasks see the value left by the task before them. A
// failed task is dropped, the runner stops and the remaining tasks wait for
// the next Run. There is no ordering between different nodes.
//
// A node's kind never changes. A task resolving to another shape replaces
// the node with a new one under the same name, which takes over its
// modifiers, subscribers and queue. Node.Current follows the replacement.
//
// # Observability
//
// Tree construction, queue activity and notifications are emitted as
// observability events with the silo name as source and the node name in
// Event.Node.
package silo
