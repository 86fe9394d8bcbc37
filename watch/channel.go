package watch

import (
	"context"
	"errors"
)

// ErrClosed is returned by channel operations after Close.
var ErrClosed = errors.New("watch channel closed")

// Channel is a bounded channel bound to a context. The underlying Go channel
// is never closed; Close cancels the context, so a late TrySend from a node
// runner cannot panic.
type Channel[T any] struct {
	channel    chan T
	ctx        context.Context
	cancel     context.CancelFunc
	bufferSize int
}

func NewChannel[T any](ctx context.Context, bufferSize int) *Channel[T] {
	ctx, cancel := context.WithCancel(ctx)
	return &Channel[T]{
		channel:    make(chan T, bufferSize),
		ctx:        ctx,
		cancel:     cancel,
		bufferSize: bufferSize,
	}
}

// Send blocks until the value is buffered, ctx is done or the channel closes.
func (c *Channel[T]) Send(ctx context.Context, value T) error {
	if c.IsClosed() {
		return ErrClosed
	}

	select {
	case c.channel <- value:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-c.ctx.Done():
		return ErrClosed
	}
}

// TrySend buffers the value if there is room and reports whether it did.
func (c *Channel[T]) TrySend(value T) bool {
	if c.IsClosed() {
		return false
	}

	select {
	case c.channel <- value:
		return true
	default:
		return false
	}
}

func (c *Channel[T]) Receive(ctx context.Context) (T, error) {
	var zero T

	select {
	case value := <-c.channel:
		return value, nil
	case <-ctx.Done():
		return zero, ctx.Err()
	case <-c.ctx.Done():
		return zero, ErrClosed
	}
}

func (c *Channel[T]) TryReceive() (T, bool) {
	select {
	case value := <-c.channel:
		return value, true
	default:
		var zero T
		return zero, false
	}
}

// Close releases blocked senders and receivers. Buffered values are
// discarded.
func (c *Channel[T]) Close() {
	c.cancel()
}

func (c *Channel[T]) IsClosed() bool {
	return c.ctx.Err() != nil
}

func (c *Channel[T]) BufferSize() int {
	return c.bufferSize
}

func (c *Channel[T]) QueueLength() int {
	return len(c.channel)
}
