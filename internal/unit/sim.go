package unit

import (
	"sync"
	"time"
)

// SimBackend simulates a unit kind for demos and integration tests: each
// primitive kicks off an asynchronous state transition that completes
// after the configured latency and reports back through Done.
type SimBackend struct {
	// Latency is how long simulated operations take
	Latency time.Duration

	// Done is called with the operation's outcome once the simulated
	// transition lands. The embedding process routes this to the job
	// engine's finish path.
	Done func(ok bool)

	// FailStarts makes every start land in the failed state
	FailStarts bool

	mu    sync.Mutex
	state ActiveState
	sub   string
}

// NewSim builds a unit backed by a simulated backend
func NewSim(name, description string, latency time.Duration) (*Unit, *SimBackend) {
	b := &SimBackend{
		Latency: latency,
		state:   Inactive,
		sub:     "dead",
	}
	u := &Unit{Name: name, Description: description, Backend: b}
	return u, b
}

func (b *SimBackend) Start() error {
	b.mu.Lock()
	b.state = Activating
	b.sub = "start"
	b.mu.Unlock()

	b.transition(func() {
		b.mu.Lock()
		ok := !b.FailStarts
		if ok {
			b.state = Active
			b.sub = "running"
		} else {
			b.state = Failed
			b.sub = "failed"
		}
		b.mu.Unlock()
		b.notify(ok)
	})
	return nil
}

func (b *SimBackend) Stop() error {
	b.mu.Lock()
	b.state = Deactivating
	b.sub = "stop"
	b.mu.Unlock()

	b.transition(func() {
		b.mu.Lock()
		b.state = Inactive
		b.sub = "dead"
		b.mu.Unlock()
		b.notify(true)
	})
	return nil
}

func (b *SimBackend) Reload() error {
	b.mu.Lock()
	if !b.state.IsActiveOrReloading() {
		b.mu.Unlock()
		return ErrRefuse
	}
	b.state = Reloading
	b.sub = "reload"
	b.mu.Unlock()

	b.transition(func() {
		b.mu.Lock()
		b.state = Active
		b.sub = "running"
		b.mu.Unlock()
		b.notify(true)
	})
	return nil
}

func (b *SimBackend) ActiveState() ActiveState {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

func (b *SimBackend) SubState() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.sub
}

// transition never runs fn on the caller's stack: the primitive must
// return "async in progress" before the completion lands
func (b *SimBackend) transition(fn func()) {
	if b.Latency <= 0 {
		go fn()
		return
	}
	time.AfterFunc(b.Latency, fn)
}

func (b *SimBackend) notify(ok bool) {
	if b.Done != nil {
		b.Done(ok)
	}
}
