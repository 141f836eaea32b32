package job

import (
	"time"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/unit"
)

// fakeClock is a manually advanced monotonic clock
type fakeClock struct {
	usec uint64
}

func (c *fakeClock) NowUsec() uint64 { return c.usec }

func (c *fakeClock) advance(d time.Duration) {
	c.usec += uint64(d / time.Microsecond)
}

// fakeTimers records armed timers and lets tests fire them by hand
type fakeTimers struct {
	armed []*fakeTimer
}

type fakeTimer struct {
	d       time.Duration
	fn      func()
	stopped bool
}

func (t *fakeTimers) After(d time.Duration, fn func()) func() {
	ft := &fakeTimer{d: d, fn: fn}
	t.armed = append(t.armed, ft)
	return func() { ft.stopped = true }
}

// fire runs every live timer whose duration is at most d
func (t *fakeTimers) fire(d time.Duration) {
	for _, ft := range t.armed {
		if !ft.stopped && ft.d <= d {
			ft.stopped = true
			ft.fn()
		}
	}
}

func (t *fakeTimers) live() int {
	n := 0
	for _, ft := range t.armed {
		if !ft.stopped {
			n++
		}
	}
	return n
}

// statusRecorder captures status banners
type statusRecorder struct {
	lines []string
}

func (r *statusRecorder) JobStatus(_ *Job, _ Result, message string) {
	r.lines = append(r.lines, message)
}

// eventRecorder captures bus events by type
type eventRecorder struct {
	events []events.Event
}

func (r *eventRecorder) handler(e events.Event) {
	r.events = append(r.events, e)
}

func (r *eventRecorder) ofType(t events.EventType) []events.Event {
	var out []events.Event
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

type testEngine struct {
	*Engine
	clock  *fakeClock
	timers *fakeTimers
	status *statusRecorder
	bus    *events.Bus
	rec    *eventRecorder
}

func newTestEngine(opts ...Option) *testEngine {
	te := &testEngine{
		// Start the clock away from zero: a zero begin timestamp means
		// "never started" in the serialization format
		clock:  &fakeClock{usec: 1_000_000},
		timers: &fakeTimers{},
		status: &statusRecorder{},
		bus:    events.NewBus(),
		rec:    &eventRecorder{},
	}
	te.bus.Subscribe(te.rec.handler)
	base := []Option{
		WithClock(te.clock),
		WithTimers(te.timers),
		WithStatusSink(te.status),
		WithBus(te.bus),
	}
	te.Engine = New(append(base, opts...)...)
	return te
}

// after wires b.After = {a} and a.Before = {b}
func after(b, a *unit.Unit) {
	b.After = append(b.After, a)
	a.Before = append(a.Before, b)
}
