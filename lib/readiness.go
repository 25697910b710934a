package site

import "sync"

// Readiness is the boot-completion signal. It starts unready and becomes
// ready once, when MarkReady is called.
type Readiness struct {
	once  sync.Once
	ready chan struct{}
}

func NewReadiness() *Readiness {
	return &Readiness{ready: make(chan struct{})}
}

func (r *Readiness) MarkReady() {
	r.once.Do(func() { close(r.ready) })
}

func (r *Readiness) Ready() bool {
	select {
	case <-r.ready:
		return true
	default:
		return false
	}
}

// Done is closed once the process is ready.
func (r *Readiness) Done() <-chan struct{} {
	return r.ready
}
