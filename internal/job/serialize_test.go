package job

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/unitd/internal/unit"
)

// reloadInto serializes src and deserializes into a fresh engine sharing
// clock and timers, with the same unit handles registered
func reloadInto(t *testing.T, src *testEngine, units ...*unit.Unit) *testEngine {
	t.Helper()

	var buf bytes.Buffer
	require.NoError(t, src.Serialize(&buf))

	dst := newTestEngine(WithClock(src.clock), WithTimers(src.timers))
	dst.clock = src.clock
	dst.timers = src.timers
	for _, u := range units {
		dst.AddUnit(u)
	}
	require.NoError(t, dst.Deserialize(&buf))
	return dst
}

func TestSerialize_RoundTrip(t *testing.T) {
	e := newTestEngine()
	e.clock.advance(5 * time.Second)

	u, _ := unit.NewFake("a.service", unit.Inactive)
	u.JobTimeout = time.Minute
	j, err := e.Install(u, TypeStart, FlagOverride|FlagIgnoreOrder)
	require.NoError(t, err)
	j.Subscribe(":1.42")
	j.Subscribe(":1.43")
	e.Tick()
	require.Equal(t, StateRunning, j.State())
	e.FlushNotifications()

	e2 := reloadInto(t, e, u)

	j2 := e2.Get(j.ID())
	require.NotNil(t, j2)
	assert.Equal(t, j.ID(), j2.ID())
	assert.Equal(t, TypeStart, j2.Type())
	assert.Equal(t, StateRunning, j2.State())
	assert.Equal(t, j.Invocation(), j2.Invocation())
	assert.Equal(t, j.Flags(), j2.Flags())
	assert.Equal(t, j.BeginUsec(), j2.BeginUsec())
	assert.Equal(t, []string{":1.42", ":1.43"}, j2.Subscribers())
	assert.True(t, j2.Reloaded())
	assert.True(t, j2.sentNewSignal, "dbus-new-signal state must survive")
	assert.Equal(t, 1, e2.RunningCount(), "running count re-incremented")
	assert.Same(t, j2, e2.JobFor(u))
}

func TestSerialize_ManagerCountersSurvive(t *testing.T) {
	e := newTestEngine()
	u, b := unit.NewFake("a.service", unit.Inactive)
	b.StartErr = assert.AnError

	_, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)
	e.Tick() // fails
	j, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)
	_ = j

	require.Equal(t, uint64(2), e.InstalledCount())
	require.Equal(t, uint64(1), e.FailedCount())

	e2 := reloadInto(t, e, u)
	assert.Equal(t, uint64(2), e2.InstalledCount())
	assert.Equal(t, uint64(1), e2.FailedCount())

	// Fresh ids continue past the old counter
	v, _ := unit.NewFake("b.service", unit.Inactive)
	jv, err := e2.Install(v, TypeStart, 0)
	require.NoError(t, err)
	assert.Greater(t, jv.ID(), j.ID())
}

func TestDeserialize_SlotOccupied(t *testing.T) {
	e := newTestEngine()
	u, ub := unit.NewFake("a.service", unit.Inactive)
	_, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, e.Serialize(&buf))

	// Deserializing into an engine that already has a job for the unit
	// drops the serialized job and keeps the occupant
	var warnings []string
	e2 := newTestEngine(WithLogf(func(f string, args ...any) {
		warnings = append(warnings, f)
	}))
	e2.AddUnit(u)
	// A stop on an inactive unit would be retired as redundant and leave
	// the slot empty
	ub.State = unit.Active
	occupant, err := e2.Install(u, TypeStop, 0)
	require.NoError(t, err)

	require.NoError(t, e2.Deserialize(&buf))
	assert.Same(t, occupant, e2.JobFor(u))
	assert.NotEmpty(t, warnings)
}

func TestDeserialize_ToleratesUnknownKeys(t *testing.T) {
	stream := strings.Join([]string{
		"current-job-id=7",
		"some-future-manager-key=1",
		"",
		"job-unit=a.service",
		"job-id=3",
		"job-type=start",
		"job-state=waiting",
		"job-override=no",
		"job-irreversible=no",
		"job-sent-dbus-new-signal=yes",
		"job-ignore-order=no",
		"job-shiny-new-field=whatever",
		"",
	}, "\n") + "\n"

	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Inactive)
	e.AddUnit(u)

	require.NoError(t, e.Deserialize(strings.NewReader(stream)))

	j := e.Get(3)
	require.NotNil(t, j, "unknown keys must not sink the job")
	assert.Equal(t, TypeStart, j.Type())
	assert.True(t, j.Reloaded())
}

func TestDeserialize_UnknownUnitDropsJob(t *testing.T) {
	stream := strings.Join([]string{
		"",
		"job-unit=ghost.service",
		"job-id=3",
		"job-type=start",
		"job-state=waiting",
		"",
	}, "\n") + "\n"

	e := newTestEngine()
	require.NoError(t, e.Deserialize(strings.NewReader(stream)))
	assert.Nil(t, e.Get(3))
}

func TestColdplug_RearmsTimersFromPreservedBegin(t *testing.T) {
	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Inactive)
	u.JobTimeout = time.Minute

	j, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)
	begin := j.BeginUsec()
	e.Tick()

	// 40s into the timeout, reload happens
	e.clock.advance(40 * time.Second)
	e2 := reloadInto(t, e, u)
	e2.Coldplug()

	j2 := e2.Get(j.ID())
	require.NotNil(t, j2)
	assert.Equal(t, begin, j2.BeginUsec())

	// Only 20s remain on the re-armed timer
	last := e2.timers.armed[len(e2.timers.armed)-1]
	assert.False(t, last.stopped)
	assert.InDelta(t, float64(20*time.Second), float64(last.d), float64(time.Second))
}

func TestColdplug_RequeuesWaitingJobs(t *testing.T) {
	e := newTestEngine()
	a, _ := unit.NewFake("a.service", unit.Inactive)
	b, _ := unit.NewFake("b.service", unit.Inactive)
	after(b, a)

	_, err := e.Install(a, TypeStart, 0)
	require.NoError(t, err)
	jb, err := e.Install(b, TypeStart, 0)
	require.NoError(t, err)
	e.Tick()
	require.Equal(t, StateWaiting, jb.State())

	e2 := reloadInto(t, e, a, b)
	e2.Coldplug()

	jb2 := e2.Get(jb.ID())
	require.NotNil(t, jb2)
	assert.True(t, jb2.InRunQueue())
}

func TestReload_PendingFinishedJobs(t *testing.T) {
	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Inactive)
	_, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)
	e.Tick()

	e2 := reloadInto(t, e, u)
	e2.BeginReload()

	// The job finishes while the reload window is still open
	j2 := e2.JobFor(u)
	require.NotNil(t, j2)
	e2.Finish(j2, ResultDone, true, false)

	assert.Empty(t, e2.rec.events, "removal signals are suppressed during reload")
	assert.Nil(t, e2.Get(j2.ID()))

	e2.EndReload()
	removed := e2.rec.ofType("job.removed")
	require.Len(t, removed, 1)
	assert.Equal(t, j2.ID(), removed[0].JobID)
}
