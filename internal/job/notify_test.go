package job

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/unit"
)

func TestNotify_NewThenChanged(t *testing.T) {
	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Inactive)

	j, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)
	e.FlushNotifications()
	e.Tick()
	e.FlushNotifications()

	news := e.rec.ofType(events.JobNew)
	require.Len(t, news, 1)
	assert.Equal(t, j.ID(), news[0].JobID)
	assert.Equal(t, "a.service", news[0].Unit)
	assert.Equal(t, fmt.Sprintf("/org/freedesktop/systemd1/job/%d", j.ID()), news[0].Path)

	changed := e.rec.ofType(events.JobChanged)
	require.Len(t, changed, 1)
	assert.Equal(t, "running", changed[0].Payload["state"])
}

func TestNotify_QueueCoalesces(t *testing.T) {
	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Inactive)

	_, err := e.Install(u, TypeVerifyActive, 0)
	require.NoError(t, err)
	_, err = e.Install(u, TypeStart, 0)
	require.NoError(t, err)

	e.FlushNotifications()
	assert.Len(t, e.rec.events, 1, "merge while queued produces one notification")
	assert.Equal(t, events.JobNew, e.rec.events[0].Type)
	assert.Equal(t, "start", e.rec.events[0].JobType)
}

func TestNotify_RemovedCarriesResult(t *testing.T) {
	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Inactive)

	j, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)
	e.FlushNotifications()
	e.Tick()
	e.Finish(j, ResultFailed, true, false)

	removed := e.rec.ofType(events.JobRemoved)
	require.Len(t, removed, 1)
	assert.Equal(t, "failed", removed[0].Result)
	assert.Equal(t, j.Invocation().String(), removed[0].Payload["invocation"])
}

func TestNotify_RemovalWithoutFlushStillAttributable(t *testing.T) {
	e := newTestEngine()
	u, _ := unit.NewFake("a.service", unit.Active)

	// Redundant start: retired before any flush ran
	j, err := e.Install(u, TypeStart, 0)
	require.NoError(t, err)

	news := e.rec.ofType(events.JobNew)
	removed := e.rec.ofType(events.JobRemoved)
	require.Len(t, news, 1, "clients get the new signal before the removal")
	require.Len(t, removed, 1)
	assert.Equal(t, j.ID(), removed[0].JobID)
}

func TestNotify_WakeupFiresOnEmptyToNonEmpty(t *testing.T) {
	wakeups := 0
	e := newTestEngine(WithWakeup(func() { wakeups++ }))

	a, ab := unit.NewFake("a.service", unit.Inactive)
	b, _ := unit.NewFake("b.service", unit.Inactive)

	_, err := e.Install(a, TypeStart, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, wakeups)

	_, err = e.Install(b, TypeStart, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, wakeups, "queue already armed")

	// After the queue drains, the next enqueue re-arms the wakeup
	e.Tick()
	// a is coming up, so a stop is not redundant and gets queued
	ab.State = unit.Activating
	_, err = e.Install(a, TypeStop, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, wakeups)
}
