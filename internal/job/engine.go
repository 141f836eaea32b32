package job

import (
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/oklog/ulid/v2"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/unit"
)

var (
	// ErrJobNotFound is returned when a job id resolves to nothing
	ErrJobNotFound = errors.New("job not found")

	// ErrSlotOccupied is returned when deserialization finds a job
	// already installed for the unit
	ErrSlotOccupied = errors.New("job slot already occupied")

	// ErrIrreversible is returned when a conflicting request runs into
	// an incumbent that refuses cancellation
	ErrIrreversible = errors.New("conflicting job is irreversible")

	// ErrInvalidType is returned for requests outside the enumerated
	// job types
	ErrInvalidType = errors.New("invalid job type")

	// ErrModeRejected is returned in fail mode when the request
	// conflicts with a job already in flight
	ErrModeRejected = errors.New("job conflicts with pending job")

	// ErrUnknownUnit is returned when a serialized job names a unit the
	// engine has no handle for
	ErrUnknownUnit = errors.New("unknown unit")
)

// Metrics is the engine's hook into whatever instrumentation the embedding
// process carries. All methods are called from the manager loop.
type Metrics interface {
	JobInstalled()
	JobStateChanged(running int)
	JobFinished(result string)
	RunQueueDepth(depth int)
}

// Engine is the job coordination kernel: it owns the id index, the
// per-unit slots, the run queue and the notification queue, and drives
// jobs through their lifecycle against the unit vtable.
//
// The engine is single-threaded by contract. Every method must be called
// from the manager loop; external producers hand work to the loop, never
// to the engine directly.
type Engine struct {
	units map[string]*unit.Unit

	jobs     map[uint32]*Job
	slots    map[*unit.Unit]*Job // regular slot
	nopSlots map[*unit.Unit]*Job // nop slot

	runQueue    []*Job
	notifyQueue []*Job

	nextID     uint32
	nInstalled uint64 // monotonic
	nRunning   int
	nFailed    uint64

	clock  Clock
	timers TimerService
	bus    *events.Bus
	sink   StatusSink
	metric Metrics

	// DefaultJobTimeout applies to units that declare none. Zero
	// disables it.
	DefaultJobTimeout time.Duration

	// ExecuteAction is invoked when a timed-out job's unit declares a
	// timeout action
	ExecuteAction func(action unit.TimeoutAction, rebootArg string)

	reloading       bool
	pendingFinished []*Job

	warnf func(format string, args ...any)

	// wakeup is pinged when the run queue goes non-empty so the loop
	// can schedule a dispatch pass
	wakeup func()
}

// Option configures an Engine
type Option func(*Engine)

// WithClock overrides the monotonic clock
func WithClock(c Clock) Option { return func(e *Engine) { e.clock = c } }

// WithTimers overrides the timer service
func WithTimers(t TimerService) Option { return func(e *Engine) { e.timers = t } }

// WithBus attaches the notification bus
func WithBus(b *events.Bus) Option { return func(e *Engine) { e.bus = b } }

// WithStatusSink attaches the human-readable status sink
func WithStatusSink(s StatusSink) Option { return func(e *Engine) { e.sink = s } }

// WithMetrics attaches instrumentation
func WithMetrics(m Metrics) Option { return func(e *Engine) { e.metric = m } }

// WithWakeup registers the run-queue wakeup hook
func WithWakeup(fn func()) Option { return func(e *Engine) { e.wakeup = fn } }

// WithLogf routes the engine's diagnostics (malformed serialization input
// and the like) to the given printf-style logger
func WithLogf(fn func(format string, args ...any)) Option {
	return func(e *Engine) { e.warnf = fn }
}

// New creates an empty engine. Engines are value trees: tests can
// instantiate as many independent ones per process as they like.
func New(opts ...Option) *Engine {
	e := &Engine{
		units:    make(map[string]*unit.Unit),
		jobs:     make(map[uint32]*Job),
		slots:    make(map[*unit.Unit]*Job),
		nopSlots: make(map[*unit.Unit]*Job),
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.clock == nil {
		e.clock = NewSystemClock()
	}
	if e.timers == nil {
		e.timers = TimerFunc(func(d time.Duration, fn func()) func() {
			t := time.AfterFunc(d, fn)
			return func() { t.Stop() }
		})
	}
	return e
}

// AddUnit registers a unit handle so deserialization and introspection can
// resolve it by name
func (e *Engine) AddUnit(u *unit.Unit) {
	e.units[u.Name] = u
}

// Unit resolves a registered unit by name
func (e *Engine) Unit(name string) *unit.Unit {
	return e.units[name]
}

// Get returns the installed job with the given id, or nil
func (e *Engine) Get(id uint32) *Job {
	return e.jobs[id]
}

// JobFor returns the unit's regular-slot job, or nil
func (e *Engine) JobFor(u *unit.Unit) *Job {
	return e.slots[u]
}

// NopJobFor returns the unit's nop-slot job, or nil
func (e *Engine) NopJobFor(u *unit.Unit) *Job {
	return e.nopSlots[u]
}

// Jobs returns every installed job in id order
func (e *Engine) Jobs() []*Job {
	out := make([]*Job, 0, len(e.jobs))
	for _, j := range e.jobs {
		out = append(out, j)
	}
	sort.Slice(out, func(i, k int) bool { return out[i].id < out[k].id })
	return out
}

// InstalledCount returns the total number of jobs ever installed; it
// never decreases
func (e *Engine) InstalledCount() uint64 { return e.nInstalled }

// RunningCount returns the number of installed jobs in the running state
func (e *Engine) RunningCount() int { return e.nRunning }

// FailedCount returns the number of jobs finished with a failure result
func (e *Engine) FailedCount() uint64 { return e.nFailed }

func (e *Engine) slotFor(u *unit.Unit, t Type) (map[*unit.Unit]*Job, *Job) {
	if t == TypeNop {
		return e.nopSlots, e.nopSlots[u]
	}
	return e.slots, e.slots[u]
}

func (e *Engine) newJob(u *unit.Unit, t Type) *Job {
	e.nextID++
	if e.nextID == 0 { // skip 0 after wrap, it means "no job"
		e.nextID = 1
	}
	j := &Job{
		id:         e.nextID,
		u:          u,
		kind:       t,
		state:      StateWaiting,
		result:     ResultInvalidValue,
		invocation: ulid.Make(),
	}
	e.jobs[j.id] = j
	return j
}

// Install reconciles a new request of type t against the unit's slot
// occupant: place it, merge into the incumbent, or cancel a conflicting
// incumbent and retry. The returned job is the live job representing the
// request, which is the incumbent when the request merged. A redundant
// request returns a job that has already finished with result done.
func (e *Engine) Install(u *unit.Unit, t Type, fl Flags) (*Job, error) {
	return e.install(u, t, fl, ModeReplace)
}

// InstallMode is Install with explicit reconciliation mode. Fail rejects
// the request if it conflicts with a pending job; replace-irreversibly
// additionally marks the new job irreversible. The transaction-level
// modes (isolate, flush, ignore-*) are not the engine's to interpret.
func (e *Engine) InstallMode(u *unit.Unit, t Type, fl Flags, mode Mode) (*Job, error) {
	switch mode {
	case ModeFail, ModeReplace:
	case ModeReplaceIrreversibly:
		fl |= FlagIrreversible
	default:
		return nil, fmt.Errorf("mode %s not handled by the job engine", mode)
	}
	return e.install(u, t, fl, mode)
}

func (e *Engine) install(u *unit.Unit, t Type, fl Flags, mode Mode) (*Job, error) {
	if !t.Valid() {
		return nil, ErrInvalidType
	}
	if _, ok := e.units[u.Name]; !ok {
		e.units[u.Name] = u
	}

	state := u.Backend.ActiveState()
	t = Collapse(t, state)

	slot, uj := e.slotFor(u, t)

	for uj != nil && t != TypeNop && IsConflicting(uj.kind, t) {
		if uj.irreversible {
			return nil, fmt.Errorf("cannot supersede job %d: %w", uj.id, ErrIrreversible)
		}
		if mode == ModeFail {
			return nil, fmt.Errorf("job %d pending for %s: %w", uj.id, u.Name, ErrModeRejected)
		}
		e.Finish(uj, ResultCanceled, false, false)
		uj = slot[u]
	}

	if uj != nil && t != TypeNop {
		// Non-conflicting incumbent: fold the request in
		merged, ok := MergeAndCollapse(uj.kind, t, state)
		if !ok {
			// Cannot happen: conflict was handled above
			return nil, fmt.Errorf("merge of %s into %s failed unexpectedly", t, uj.kind)
		}
		uj.applyFlags(fl)

		if uj.state == StateWaiting || (lateMergeAllowed(t) && IsSuperset(uj.kind, t)) {
			uj.kind = merged
			e.enqueueNotify(uj)
			return uj, nil
		}

		// Running and the incumbent does not entail the request: the
		// broader merged type must be re-dispatched from scratch
		uj.kind = merged
		e.setState(uj, StateWaiting)
		e.addToRunQueue(uj)
		e.enqueueNotify(uj)
		return uj, nil
	}

	if uj != nil {
		// Nop slot occupied: the existing observer already covers it
		uj.applyFlags(fl)
		return uj, nil
	}

	j := e.newJob(u, t)
	j.applyFlags(fl)
	j.installed = true
	slot[u] = j
	e.nInstalled++
	if e.metric != nil {
		e.metric.JobInstalled()
	}
	e.startTimer(j)
	e.enqueueNotify(j)

	if t != TypeNop && IsRedundant(t, state) {
		// The desired effect already holds; retire the job without
		// bothering the unit
		e.Finish(j, ResultDone, false, true)
		return j, nil
	}

	e.addToRunQueue(j)
	return j, nil
}

// Cancel finishes the job with result canceled. Recursive cancellation
// additionally fails dependent jobs; a plain user cancel does not.
func (e *Engine) Cancel(id uint32, recursive bool) error {
	j := e.jobs[id]
	if j == nil {
		return ErrJobNotFound
	}
	e.Finish(j, ResultCanceled, recursive, false)
	return nil
}

// uninstall removes the job from its slot, the id index and every queue,
// stops its timer and emits the removal notification. After uninstall the
// job is dead unless a live-reload parks it in pendingFinished.
func (e *Engine) uninstall(j *Job) {
	if !j.installed {
		panic(fmt.Sprintf("job %d uninstalled twice", j.id))
	}

	slot, occupant := e.slotFor(j.u, j.kind)
	if occupant != j {
		panic(fmt.Sprintf("job %d not in its unit's slot", j.id))
	}
	delete(slot, j.u)

	j.installed = false
	e.stopTimer(j)
	e.removeFromRunQueue(j)
	e.removeFromNotifyQueue(j)
	delete(e.jobs, j.id)

	if e.reloading && j.reloaded {
		// Remember the job until the reload completes so its removal
		// signal is not lost
		e.pendingFinished = append(e.pendingFinished, j)
		return
	}
	e.emitRemoved(j)
}

func (e *Engine) setState(j *Job, s State) {
	if j.state == s {
		return
	}
	j.state = s
	if !j.installed {
		return
	}
	if s == StateRunning {
		e.nRunning++
	} else {
		e.nRunning--
	}
	if e.metric != nil {
		e.metric.JobStateChanged(e.nRunning)
	}
}
