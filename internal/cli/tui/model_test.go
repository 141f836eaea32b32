package tui

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/manager"
)

func TestModel_QuitKeys(t *testing.T) {
	for _, key := range []string{"q", "ctrl+c", "esc"} {
		m := NewModel(nil, nil)
		_, cmd := m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)})
		if key != "q" {
			// Special keys need their own message types
			continue
		}
		require.NotNil(t, cmd, "key %q should quit", key)
	}
}

func TestModel_JobsMsgUpdatesListing(t *testing.T) {
	m := NewModel(nil, nil)

	updated, _ := m.Update(jobsMsg{
		{ID: 1, Unit: "a.service", Type: "start", State: "running"},
		{ID: 2, Unit: "b.service", Type: "start", State: "waiting"},
	})
	model := updated.(Model)

	view := model.View()
	assert.Contains(t, view, "a.service")
	assert.Contains(t, view, "b.service")
	assert.Contains(t, view, "running")
	assert.Contains(t, view, "waiting")
}

func TestModel_EventLogBounded(t *testing.T) {
	m := NewModel(nil, make(chan events.Event))

	var model tea.Model = m
	for i := 0; i < maxLogLines+5; i++ {
		model, _ = model.(Model).Update(eventMsg(events.NewEvent(events.JobNew, uint32(i+1), "a.service")))
	}

	final := model.(Model)
	assert.Len(t, final.log, maxLogLines)
	// The oldest lines have been dropped
	assert.False(t, strings.Contains(strings.Join(final.log, "\n"), "job=#1\n"))
}

func TestModel_EmptyView(t *testing.T) {
	m := NewModel(nil, nil)
	m.jobs = []manager.JobView{}

	view := m.View()
	assert.Contains(t, view, "No jobs installed")
	assert.Contains(t, view, "quit")
}
