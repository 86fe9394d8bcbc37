package observability

import (
	"context"
	"sync"
	"sync/atomic"
)

// CountingObserver tallies events by type. It is cheap enough to leave
// attached in production and is what tests use to assert that a runner
// applied or rejected a given number of tasks.
type CountingObserver struct {
	counts sync.Map // EventType -> *atomic.Int64
}

// NewCountingObserver creates an empty CountingObserver.
func NewCountingObserver() *CountingObserver {
	return &CountingObserver{}
}

func (c *CountingObserver) OnEvent(_ context.Context, event Event) {
	counter, _ := c.counts.LoadOrStore(event.Type, new(atomic.Int64))
	counter.(*atomic.Int64).Add(1)
}

// Count returns how many events of type t were observed.
func (c *CountingObserver) Count(t EventType) int64 {
	counter, ok := c.counts.Load(t)
	if !ok {
		return 0
	}
	return counter.(*atomic.Int64).Load()
}

// Snapshot returns a copy of all counters.
func (c *CountingObserver) Snapshot() map[EventType]int64 {
	out := make(map[EventType]int64)
	c.counts.Range(func(key, value any) bool {
		out[key.(EventType)] = value.(*atomic.Int64).Load()
		return true
	})
	return out
}
