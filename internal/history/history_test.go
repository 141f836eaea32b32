package history

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/unitd/internal/events"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "history.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndList(t *testing.T) {
	db := openTestDB(t)

	require.NoError(t, db.Record(Entry{
		JobID: 1, Invocation: "01ARZ3", Unit: "a.service",
		JobType: "start", Result: "done",
	}))
	require.NoError(t, db.Record(Entry{
		JobID: 2, Invocation: "01ARZ4", Unit: "b.service",
		JobType: "stop", Result: "timeout",
	}))

	entries, err := db.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	// Newest first
	assert.Equal(t, uint32(2), entries[0].JobID)
	assert.Equal(t, "timeout", entries[0].Result)
	assert.Equal(t, uint32(1), entries[1].JobID)
	assert.False(t, entries[0].FinishedAt.IsZero())
}

func TestListByUnit(t *testing.T) {
	db := openTestDB(t)

	for i := 0; i < 3; i++ {
		require.NoError(t, db.Record(Entry{
			JobID: uint32(i + 1), Unit: "a.service", JobType: "start", Result: "done",
		}))
	}
	require.NoError(t, db.Record(Entry{
		JobID: 9, Unit: "b.service", JobType: "stop", Result: "done",
	}))

	entries, err := db.ListByUnit("a.service", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 3)

	entries, err = db.ListByUnit("a.service", 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)
}

func TestHandler_JournalsRemovals(t *testing.T) {
	db := openTestDB(t)
	bus := events.NewBus()
	bus.Subscribe(db.Handler(nil))

	bus.Emit(events.NewEvent(events.JobNew, 7, "a.service"))
	bus.Emit(events.NewEvent(events.JobRemoved, 7, "a.service").
		WithJobType("start").
		WithResult("done").
		WithPayload(map[string]any{"invocation": "01ARZ5"}))

	// Only the removal is journaled
	entries, err := db.List(10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, uint32(7), entries[0].JobID)
	assert.Equal(t, "01ARZ5", entries[0].Invocation)
	assert.Equal(t, "done", entries[0].Result)
	assert.WithinDuration(t, time.Now(), entries[0].FinishedAt, time.Minute)
}
