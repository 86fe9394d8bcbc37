package silo

import (
	"context"
	"errors"
	"sync"
)

// runTracker counts runners started by modifier invocations and keeps the
// errors they return until the next wait. The zero value is ready to use.
type runTracker struct {
	mu     sync.Mutex
	active int
	idle   chan struct{}
	errs   []error
}

func (t *runTracker) add() {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.active == 0 {
		t.idle = make(chan struct{})
	}
	t.active++
}

func (t *runTracker) done(err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if err != nil {
		t.errs = append(t.errs, err)
	}
	t.active--
	if t.active == 0 {
		close(t.idle)
		t.idle = nil
	}
}

// wait blocks until no runner is active, then returns and clears the
// collected errors.
func (t *runTracker) wait(ctx context.Context) error {
	for {
		t.mu.Lock()
		if t.active == 0 {
			err := errors.Join(t.errs...)
			t.errs = nil
			t.mu.Unlock()
			return err
		}
		idle := t.idle
		t.mu.Unlock()

		select {
		case <-idle:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
