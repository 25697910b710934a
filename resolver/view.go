package resolver

import (
	"context"
	"sync"
)

// View scopes the queries made while rendering one page. Once closed, late
// results are discarded and nothing observed through the view changes.
type View struct {
	ctx    context.Context
	static bool

	mu       sync.Mutex
	isClosed bool
	closed   chan struct{}
}

// Static reports whether the view serves bundled content only.
func (v *View) Static() bool {
	return v.static
}

// Close marks the view as left. It is safe to call more than once.
func (v *View) Close() {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.isClosed {
		return
	}
	v.isClosed = true
	close(v.closed)
}

// Closed reports whether Close has been called.
func (v *View) Closed() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.isClosed
}

// apply runs fn unless the view is closed, and reports whether it ran.
func (v *View) apply(fn func()) bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.isClosed {
		return false
	}
	fn()
	return true
}
