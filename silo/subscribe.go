package silo

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/google/uuid"

	"github.com/tailored-agentic-units/silo/observability"
)

// Subscriber receives the node's state after every applied update.
type Subscriber func(Snapshot)

type subscription struct {
	id uuid.UUID
	fn Subscriber
}

// Subscribe appends fn to the node's subscribers and returns the handle used
// to remove it. Subscribers run in registration order on the runner's
// goroutine, so a slow subscriber delays the node's next task.
//
// A nil fn is accepted; the notification round that reaches it fails with
// ErrSubscriberNotCallable and the subscribers after it are skipped.
func (n *Node) Subscribe(fn Subscriber) uuid.UUID {
	id := uuid.Must(uuid.NewV7())

	n.smu.Lock()
	for next := n.successor.Load(); next != nil; next = n.successor.Load() {
		n.smu.Unlock()
		n = next
		n.smu.Lock()
	}
	n.subscribers = append(n.subscribers, subscription{id: id, fn: fn})
	n.smu.Unlock()

	n.silo.emit(n.silo.ctx, EventSubscribe, observability.LevelVerbose, n.name, map[string]any{
		"subscription_id": id.String(),
	})
	return id
}

// Unsubscribe removes a subscriber and reports whether it was registered.
func (n *Node) Unsubscribe(id uuid.UUID) bool {
	n.smu.Lock()
	for next := n.successor.Load(); next != nil; next = n.successor.Load() {
		n.smu.Unlock()
		n = next
		n.smu.Lock()
	}
	i := slices.IndexFunc(n.subscribers, func(sub subscription) bool { return sub.id == id })
	if i >= 0 {
		n.subscribers = slices.Delete(n.subscribers, i, i+1)
	}
	n.smu.Unlock()

	if i < 0 {
		return false
	}

	n.silo.emit(n.silo.ctx, EventUnsubscribe, observability.LevelVerbose, n.name, map[string]any{
		"subscription_id": id.String(),
	})
	return true
}

// Subscribers reports how many subscribers the node has.
func (n *Node) Subscribers() int {
	n = n.Current()
	n.smu.RLock()
	defer n.smu.RUnlock()
	return len(n.subscribers)
}

// notifySubscribers runs one notification round with the node's current
// state.
func (n *Node) notifySubscribers(ctx context.Context) error {
	n.smu.RLock()
	subs := slices.Clone(n.subscribers)
	n.smu.RUnlock()

	if len(subs) == 0 {
		return nil
	}

	state := n.State()
	for i, sub := range subs {
		if sub.fn == nil {
			err := fmt.Errorf("%w: subscription %s on %s", ErrSubscriberNotCallable, sub.id, n.name)
			n.silo.emit(ctx, EventNotifyFail, observability.LevelWarning, n.name, map[string]any{
				"subscription_id": sub.id.String(),
				"notified":        i,
				"error":           err.Error(),
			})
			return err
		}
		sub.fn(state)
	}

	n.silo.emit(ctx, EventNotify, observability.LevelVerbose, n.name, map[string]any{
		"subscribers": len(subs),
	})
	return nil
}

// notify runs the updated node's notification round and, when the silo
// bubbles, one round per ancestor from the parent up to the root.
func (s *Silo) notify(ctx context.Context, n *Node) error {
	err := n.notifySubscribers(ctx)
	if !s.bubble {
		return err
	}

	errs := []error{err}
	for p := n.Parent(); p != nil; p = p.Parent() {
		errs = append(errs, p.notifySubscribers(ctx))
	}
	return errors.Join(errs...)
}
