// Package tasks offloads blocking remote calls for interactive callers.
// The remote layer does not cooperate with cancellation: giving up on a task
// abandons the result, it does not abort the call.
package tasks

import (
	"context"
)

// Task is a single in-flight remote call with a deferred result.
type Task[T any] struct {
	done  chan struct{}
	value T
	err   error
}

// Run starts fn on its own goroutine and returns immediately.
func Run[T any](fn func() (T, error)) *Task[T] {
	t := &Task[T]{
		done: make(chan struct{}),
	}

	go func() {
		defer close(t.done)
		t.value, t.err = fn()
	}()

	return t
}

// Done is closed when the result is available. Useful for busy indicators.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Await blocks until the result is available or ctx is cancelled. On
// cancellation the underlying call keeps running to completion; only the wait
// is abandoned.
func (t *Task[T]) Await(ctx context.Context) (T, error) {
	select {
	case <-t.done:
		return t.value, t.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
