package manager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/job"
	"github.com/RevCBH/unitd/internal/unit"
)

func TestManager_InstallAndList(t *testing.T) {
	m := New(Config{})
	u, _ := unit.NewFake("a.service", unit.Inactive)
	m.AddUnit(u)

	view, err := m.Install("a.service", job.TypeStart, 0, job.ModeReplace)
	require.NoError(t, err)
	assert.Equal(t, "a.service", view.Unit)
	assert.Equal(t, "start", view.Type)
	assert.NotEmpty(t, view.Invocation)

	jobs := m.Jobs()
	require.Len(t, jobs, 1)
	// The inline tick already dispatched the job
	assert.Equal(t, "running", jobs[0].State)

	installed, running, failed := m.Counters()
	assert.Equal(t, uint64(1), installed)
	assert.Equal(t, 1, running)
	assert.Equal(t, uint64(0), failed)
}

func TestManager_UnknownUnit(t *testing.T) {
	m := New(Config{})
	_, err := m.Install("ghost.service", job.TypeStart, 0, job.ModeReplace)
	require.Error(t, err)
}

func TestManager_Cancel(t *testing.T) {
	m := New(Config{})
	u, _ := unit.NewFake("a.service", unit.Inactive)
	m.AddUnit(u)

	view, err := m.Install("a.service", job.TypeStart, 0, job.ModeReplace)
	require.NoError(t, err)

	require.NoError(t, m.Cancel(view.ID, false))
	_, found := m.Get(view.ID)
	assert.False(t, found)

	assert.ErrorIs(t, m.Cancel(view.ID, false), job.ErrJobNotFound)
}

func TestManager_LiveReloadPreservesJobs(t *testing.T) {
	rec := &recorder{}
	bus := events.NewBus()
	bus.Subscribe(rec.handle)

	m := New(Config{Bus: bus})
	a, _ := unit.NewFake("a.service", unit.Inactive)
	b, _ := unit.NewFake("b.service", unit.Inactive)
	b.After = []*unit.Unit{a}
	a.Before = []*unit.Unit{b}
	m.AddUnit(a)
	m.AddUnit(b)

	va, err := m.Install("a.service", job.TypeStart, 0, job.ModeReplace)
	require.NoError(t, err)
	vb, err := m.Install("b.service", job.TypeStart, 0, job.ModeReplace)
	require.NoError(t, err)

	require.NoError(t, m.Reload())

	jobs := m.Jobs()
	require.Len(t, jobs, 2)
	assert.Equal(t, va.ID, jobs[0].ID)
	assert.Equal(t, vb.ID, jobs[1].ID)
	// a was running before the reload and is still running after
	assert.Equal(t, "running", jobs[0].State)

	// Fresh installs continue the id sequence
	c, _ := unit.NewFake("c.service", unit.Inactive)
	m.AddUnit(c)
	vc, err := m.Install("c.service", job.TypeStart, 0, job.ModeReplace)
	require.NoError(t, err)
	assert.Greater(t, vc.ID, vb.ID)
}

func TestManager_RunLoop(t *testing.T) {
	m := New(Config{})
	u, _ := unit.NewFake("a.service", unit.Inactive)

	ctx, cancel := context.WithCancel(context.Background())
	loopDone := make(chan error, 1)
	go func() { loopDone <- m.Run(ctx) }()

	// Give the loop a moment to come up, then drive it from outside
	require.Eventually(t, func() bool { return m.running.Load() },
		time.Second, time.Millisecond)

	m.AddUnit(u)
	view, err := m.Install("a.service", job.TypeStart, 0, job.ModeReplace)
	require.NoError(t, err)

	got, found := m.Get(view.ID)
	require.True(t, found)
	assert.Equal(t, "running", got.State)

	cancel()
	require.ErrorIs(t, <-loopDone, context.Canceled)
}

type recorder struct {
	events []events.Event
}

func (r *recorder) handle(e events.Event) {
	r.events = append(r.events, e)
}
