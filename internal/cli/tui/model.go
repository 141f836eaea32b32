// Package tui renders a live view of installed jobs and the rolling job
// event log, fed by the daemon's event stream.
package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/RevCBH/unitd/internal/client"
	"github.com/RevCBH/unitd/internal/events"
	"github.com/RevCBH/unitd/internal/manager"
)

const maxLogLines = 12

// Model is the bubbletea model for the watch view
type Model struct {
	client *client.Client
	styles Styles

	jobs []manager.JobView
	log  []string
	err  error

	eventCh <-chan events.Event

	width  int
	height int
}

type jobsMsg []manager.JobView
type eventMsg events.Event
type streamClosedMsg struct{}
type tickMsg time.Time
type errMsg error

// NewModel creates the watch model
func NewModel(c *client.Client, eventCh <-chan events.Event) Model {
	return Model{
		client:  c,
		styles:  DefaultStyles(),
		eventCh: eventCh,
	}
}

// Run starts the watch TUI and blocks until the user quits
func Run(ctx context.Context, c *client.Client) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := make(chan events.Event, 64)
	go func() {
		// Stream errors surface as a closed channel; the TUI keeps
		// polling either way
		_ = c.Watch(ctx, ch)
	}()

	p := tea.NewProgram(NewModel(c, ch), tea.WithContext(ctx))
	_, err := p.Run()
	if err == tea.ErrProgramKilled && ctx.Err() != nil {
		return nil
	}
	return err
}

// Init kicks off the initial fetch, the event pump and the refresh tick
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.fetchJobs(), m.waitEvent(), tick())
}

func (m Model) fetchJobs() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		jobs, err := m.client.Jobs(ctx)
		if err != nil {
			return errMsg(err)
		}
		return jobsMsg(jobs)
	}
}

func (m Model) waitEvent() tea.Cmd {
	return func() tea.Msg {
		e, ok := <-m.eventCh
		if !ok {
			return streamClosedMsg{}
		}
		return eventMsg(e)
	}
}

func tick() tea.Cmd {
	return tea.Tick(time.Second, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

// Update handles messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "ctrl+c", "esc":
			return m, tea.Quit
		}

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height

	case jobsMsg:
		m.jobs = msg
		m.err = nil

	case eventMsg:
		m.log = append(m.log, events.Event(msg).String())
		if len(m.log) > maxLogLines {
			m.log = m.log[len(m.log)-maxLogLines:]
		}
		// Job events change the listing; refresh immediately
		return m, tea.Batch(m.fetchJobs(), m.waitEvent())

	case streamClosedMsg:
		// Keep the periodic refresh alive without the stream

	case tickMsg:
		return m, tea.Batch(m.fetchJobs(), tick())

	case errMsg:
		m.err = msg
	}

	return m, nil
}
