package silo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/silo/observability"
)

// Task is one queued update: it resolves to the node's next value.
type Task func(ctx context.Context) (any, error)

type task struct {
	id       uuid.UUID
	modifier string
	fn       Task
}

func (t task) execute(ctx context.Context) (result any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w: %v", ErrTaskPanic, r)
		}
	}()
	return t.fn(ctx)
}

// Enqueue appends a task to the node's queue without starting a runner and
// returns the task id. It is the only mutation that is safe to call while a
// runner is draining the node; the task runs on the next Run.
func (n *Node) Enqueue(fn Task) (uuid.UUID, error) {
	if fn == nil {
		return uuid.Nil, fmt.Errorf("%w: nil task", ErrNotCallable)
	}
	_, id, err := n.enqueue("", fn)
	return id, err
}

// enqueue appends to the queue of the node currently holding n's place and
// returns that node.
func (n *Node) enqueue(modifier string, fn Task) (*Node, uuid.UUID, error) {
	if n.silo.closed.Load() {
		return nil, uuid.Nil, ErrClosed
	}

	t := task{
		id:       uuid.Must(uuid.NewV7()),
		modifier: modifier,
		fn:       fn,
	}

	for {
		n.qmu.Lock()
		if next := n.successor.Load(); next != nil {
			n.qmu.Unlock()
			n = next
			continue
		}
		n.queue = append(n.queue, t)
		break
	}
	depth := len(n.queue)
	n.qmu.Unlock()

	n.silo.emit(n.silo.ctx, EventTaskEnqueue, observability.LevelVerbose, n.name, map[string]any{
		"task_id":  t.id.String(),
		"modifier": modifier,
		"pending":  depth,
	})

	return n, t.id, nil
}

// submit queues a modifier task and starts a runner for the node.
func (n *Node) submit(modifier string, fn Task) error {
	target, _, err := n.enqueue(modifier, fn)
	if err != nil {
		return err
	}
	target.kick()
	return nil
}

// kick starts a runner on its own goroutine. A runner that finds another one
// already draining the node exits at once; the active runner picks the new
// task up before it goes idle.
func (n *Node) kick() {
	s := n.silo
	s.tracker.add()
	go func() {
		err := n.Run(s.ctx)
		if errors.Is(err, ErrRunInProgress) {
			err = nil
		}
		if err != nil {
			s.reportError(err)
		}
		s.tracker.done(err)
	}()
}

// Run drains the node's queue in FIFO order. Each task runs to completion,
// its result is applied to the node and the subscribers are notified before
// the next task starts. A result with a different shape replaces the node;
// the runner then keeps draining the replacement, which inherits the queue.
//
// If another runner is active Run returns ErrRunInProgress and does nothing.
// If a task fails Run stops, goes idle and returns a *TaskError; the failed
// task is gone and the tasks behind it wait for the next Run. Subscriber
// failures do not stop the queue and are joined into the result.
func (n *Node) Run(ctx context.Context) error {
	for {
		n.qmu.Lock()
		if next := n.successor.Load(); next != nil {
			n.qmu.Unlock()
			n = next
			continue
		}
		break
	}
	if n.state == Running {
		n.qmu.Unlock()
		n.silo.emit(ctx, EventRunBusy, observability.LevelVerbose, n.name, nil)
		return ErrRunInProgress
	}
	n.state = Running
	n.qmu.Unlock()

	var errs []error
	for {
		t, ok := n.next()
		if !ok {
			return errors.Join(errs...)
		}

		result, err := t.execute(ctx)
		if err != nil {
			n.idle()
			n.silo.emit(ctx, EventTaskFail, observability.LevelError, n.name, map[string]any{
				"task_id":  t.id.String(),
				"modifier": t.modifier,
				"error":    err.Error(),
			})
			return errors.Join(append(errs, &TaskError{
				Node:     n.name,
				Modifier: t.modifier,
				TaskID:   t.id,
				Err:      err,
			})...)
		}

		n = n.apply(ctx, result)

		n.silo.emit(ctx, EventTaskApply, observability.LevelInfo, n.name, map[string]any{
			"task_id":  t.id.String(),
			"modifier": t.modifier,
		})

		if err := n.silo.notify(ctx, n); err != nil {
			errs = append(errs, err)
		}
	}
}

// next pops the oldest task. An empty queue switches the node to Idle under
// the same lock, so an enqueue either lands before the check and is drained
// or lands after it and finds the node idle.
func (n *Node) next() (task, bool) {
	n.qmu.Lock()
	defer n.qmu.Unlock()

	if len(n.queue) == 0 {
		n.state = Idle
		return task{}, false
	}

	t := n.queue[0]
	n.queue[0] = task{}
	n.queue = n.queue[1:]
	return t, true
}

func (n *Node) idle() {
	n.qmu.Lock()
	n.state = Idle
	n.qmu.Unlock()
}

// apply stores a resolved value and returns the node now holding it.
// Primitives are reassigned and composites are decomposed again so children
// match the new value. A value of another kind replaces the node.
func (n *Node) apply(ctx context.Context, value any) *Node {
	kind, elems := classify(value)
	if kind != n.kind {
		return n.replace(ctx, kind, elems, value)
	}

	switch kind {
	case Primitive:
		n.mu.Lock()
		n.value = value
		n.mu.Unlock()
	case Object, Array:
		n.rebuild(ctx, kind, elems)
	default:
		panic(fmt.Sprintf("silo: apply of unknown kind %v", kind))
	}
	return n
}
