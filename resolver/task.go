package resolver

import (
	"context"
	"sync"
)

// Task is a content query started on a View. It settles at most once.
type Task[T any] struct {
	mu      sync.Mutex
	outcome Outcome[T]
	done    chan struct{}
	view    *View
}

func newTask[T any](view *View) *Task[T] {
	return &Task[T]{
		outcome: Outcome[T]{State: Pending},
		done:    make(chan struct{}),
		view:    view,
	}
}

func settledTask[T any](view *View, o Outcome[T]) *Task[T] {
	t := &Task[T]{outcome: o, done: make(chan struct{}), view: view}
	close(t.done)
	return t
}

// Outcome returns the current snapshot without blocking.
func (t *Task[T]) Outcome() Outcome[T] {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.outcome
}

// Done is closed once the task has settled.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Wait blocks until the task settles, the view is closed or ctx is done, and
// returns the snapshot at that point, which is Pending in the latter cases.
func (t *Task[T]) Wait(ctx context.Context) Outcome[T] {
	select {
	case <-t.done:
	case <-t.view.closed:
	case <-ctx.Done():
	}
	return t.Outcome()
}

func (t *Task[T]) settle(o Outcome[T]) {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.done:
		return
	default:
	}
	t.outcome = o
	close(t.done)
}
