// Package manager runs the job engine on a single goroutine event loop.
// External producers (the API server, the CLI, timer firings) hand the
// loop closures; nothing outside the loop ever touches engine state.
package manager

import (
	"bytes"
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/job"
	"github.com/RevCBH/unitd/internal/unit"
)

// Manager owns one engine instance and the loop driving it
type Manager struct {
	mu     sync.Mutex
	engine *job.Engine

	units map[string]*unit.Unit

	bus    *events.Bus
	log    *zap.Logger
	clock  job.Clock
	metric job.Metrics

	defaultTimeout time.Duration

	requests chan func()
	wake     chan struct{}

	running atomic.Bool
	stopped chan struct{}
}

// Config carries the manager's construction parameters
type Config struct {
	Logger            *zap.Logger
	Bus               *events.Bus
	Metrics           job.Metrics
	DefaultJobTimeout time.Duration
}

// New creates a manager with a fresh engine
func New(cfg Config) *Manager {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Bus == nil {
		cfg.Bus = events.NewBus()
	}

	m := &Manager{
		units:          make(map[string]*unit.Unit),
		bus:            cfg.Bus,
		log:            cfg.Logger,
		clock:          job.NewSystemClock(),
		metric:         cfg.Metrics,
		defaultTimeout: cfg.DefaultJobTimeout,
		requests:       make(chan func(), 256),
		wake:           make(chan struct{}, 1),
		stopped:        make(chan struct{}),
	}
	m.engine = m.newEngine()
	return m
}

func (m *Manager) newEngine() *job.Engine {
	sugar := m.log.Sugar()
	e := job.New(
		job.WithClock(m.clock),
		job.WithTimers(job.TimerFunc(m.timerAfter)),
		job.WithBus(m.bus),
		job.WithMetrics(m.metric),
		job.WithWakeup(m.wakeup),
		job.WithLogf(sugar.Warnf),
		job.WithStatusSink(job.StatusFunc(func(j *job.Job, result job.Result, message string) {
			m.log.Info(message,
				zap.String("unit", j.Unit().Name),
				zap.Uint32("job", j.ID()),
				zap.String("result", result.String()),
			)
		})),
	)
	e.DefaultJobTimeout = m.defaultTimeout
	e.ExecuteAction = func(action unit.TimeoutAction, rebootArg string) {
		m.log.Warn("job timeout action requested",
			zap.String("action", string(action)),
			zap.String("reboot_arg", rebootArg),
		)
	}
	return e
}

// Bus returns the manager's event bus
func (m *Manager) Bus() *events.Bus { return m.bus }

// AddUnit registers a unit with the manager and its engine
func (m *Manager) AddUnit(u *unit.Unit) {
	m.do(func(e *job.Engine) {
		m.units[u.Name] = u
		e.AddUnit(u)
	})
}

// wakeup arms a dispatch pass; called by the engine when the run queue
// goes non-empty
func (m *Manager) wakeup() {
	select {
	case m.wake <- struct{}{}:
	default:
	}
}

// timerAfter implements the engine's timer service by bouncing the firing
// through the request channel, keeping engine state on the loop
func (m *Manager) timerAfter(d time.Duration, fn func()) func() {
	t := time.AfterFunc(d, func() {
		select {
		case m.requests <- fn:
		case <-m.stopped:
		}
	})
	return func() { t.Stop() }
}

// Run drives the loop until the context is canceled
func (m *Manager) Run(ctx context.Context) error {
	m.running.Store(true)
	defer m.running.Store(false)
	defer close(m.stopped)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case fn := <-m.requests:
			m.withEngine(fn)
		case <-m.wake:
			m.withEngine(func() {})
		}
	}
}

func (m *Manager) withEngine(fn func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	fn()
	m.engine.Tick()
	m.engine.FlushNotifications()
}

// do runs fn on the loop and waits for it. When the loop is not running
// (tests, CLI one-shots), it runs inline under the manager lock.
func (m *Manager) do(fn func(e *job.Engine)) {
	if !m.running.Load() {
		m.mu.Lock()
		fn(m.engine)
		m.engine.Tick()
		m.engine.FlushNotifications()
		m.mu.Unlock()
		return
	}

	done := make(chan struct{})
	req := func() {
		fn(m.engine)
		close(done)
	}

	select {
	case m.requests <- req:
		select {
		case <-done:
		case <-m.stopped:
		}
	case <-m.stopped:
	}
}

// Install installs a job of the given type on a named unit
func (m *Manager) Install(unitName string, t job.Type, fl job.Flags, mode job.Mode) (JobView, error) {
	var view JobView
	var err error
	m.do(func(e *job.Engine) {
		u, ok := m.units[unitName]
		if !ok {
			err = fmt.Errorf("unit %q not loaded", unitName)
			return
		}
		var j *job.Job
		j, err = e.InstallMode(u, t, fl, mode)
		if err != nil {
			return
		}
		view = snapshot(j)
	})
	return view, err
}

// Cancel cancels the job with the given id
func (m *Manager) Cancel(id uint32, recursive bool) error {
	var err error
	m.do(func(e *job.Engine) {
		err = e.Cancel(id, recursive)
	})
	return err
}

// Get returns a snapshot of one installed job
func (m *Manager) Get(id uint32) (JobView, bool) {
	var view JobView
	found := false
	m.do(func(e *job.Engine) {
		if j := e.Get(id); j != nil {
			view = snapshot(j)
			found = true
		}
	})
	return view, found
}

// Jobs returns snapshots of every installed job in id order
func (m *Manager) Jobs() []JobView {
	var views []JobView
	m.do(func(e *job.Engine) {
		for _, j := range e.Jobs() {
			views = append(views, snapshot(j))
		}
	})
	return views
}

// Counters returns the engine's bookkeeping counters
func (m *Manager) Counters() (installed uint64, running int, failed uint64) {
	m.do(func(e *job.Engine) {
		installed = e.InstalledCount()
		running = e.RunningCount()
		failed = e.FailedCount()
	})
	return
}

// FinishUnitJob reports the async completion of the named unit's running
// job. Unit backends call this (through whatever notification path the
// embedding process wires) when the operation a primitive kicked off
// reaches a terminal state.
func (m *Manager) FinishUnitJob(unitName string, res job.Result, recursive bool) error {
	var err error
	m.do(func(e *job.Engine) {
		u, ok := m.units[unitName]
		if !ok {
			err = fmt.Errorf("unit %q not loaded", unitName)
			return
		}
		j := e.JobFor(u)
		if j == nil {
			err = job.ErrJobNotFound
			return
		}
		e.Finish(j, res, recursive, false)
	})
	return err
}

// Reload performs an in-process live-reload: serialize all jobs, build a
// fresh engine over the same units, deserialize, coldplug, swap
func (m *Manager) Reload() error {
	var err error
	m.do(func(old *job.Engine) {
		m.bus.Emit(events.Event{Type: events.ManagerReloading})

		var buf bytes.Buffer
		if err = old.Serialize(&buf); err != nil {
			err = fmt.Errorf("serialize failed: %w", err)
			return
		}
		old.StopTimers()

		fresh := m.newEngine()
		fresh.BeginReload()
		for _, u := range m.units {
			fresh.AddUnit(u)
		}
		if err = fresh.Deserialize(&buf); err != nil {
			err = fmt.Errorf("deserialize failed: %w", err)
			return
		}
		fresh.Coldplug()
		m.engine = fresh
		fresh.EndReload()

		m.bus.Emit(events.Event{Type: events.ManagerReloaded})
		m.log.Info("live reload complete",
			zap.Int("jobs", len(fresh.Jobs())),
		)
	})
	return err
}
