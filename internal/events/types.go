package events

import (
	"fmt"
	"strings"
	"time"
)

// Event represents a single occurrence in the job engine lifecycle
type Event struct {
	// Time is when the event occurred (set by bus on emit)
	Time time.Time `json:"time"`

	// Type identifies what happened
	Type EventType `json:"type"`

	// JobID is the engine-assigned job id
	JobID uint32 `json:"job_id"`

	// Unit is the name of the unit the job operates on
	Unit string `json:"unit,omitempty"`

	// Path is the job's bus object path
	Path string `json:"path,omitempty"`

	// JobType is the job's type name at emit time
	JobType string `json:"job_type,omitempty"`

	// Result is the terminal result name (removal events only)
	Result string `json:"result,omitempty"`

	// Payload contains event-specific data
	Payload map[string]any `json:"payload,omitempty"`
}

// EventType is a string constant identifying the event category
type EventType string

// Job lifecycle events
const (
	JobNew     EventType = "job.new"
	JobChanged EventType = "job.changed"
	JobRemoved EventType = "job.removed"
)

// Manager lifecycle events
const (
	ManagerReloading EventType = "manager.reloading"
	ManagerReloaded  EventType = "manager.reloaded"
)

// NewEvent creates an event for the given job id and unit name
func NewEvent(eventType EventType, jobID uint32, unitName string) Event {
	return Event{
		Type:  eventType,
		JobID: jobID,
		Unit:  unitName,
	}
}

// WithPath returns a copy of the event with the object path set
func (e Event) WithPath(path string) Event {
	e.Path = path
	return e
}

// WithJobType returns a copy of the event with the job type name set
func (e Event) WithJobType(t string) Event {
	e.JobType = t
	return e
}

// WithResult returns a copy of the event with the result name set
func (e Event) WithResult(result string) Event {
	e.Result = result
	return e
}

// WithPayload returns a copy of the event with the payload set
func (e Event) WithPayload(payload map[string]any) Event {
	e.Payload = payload
	return e
}

// IsRemoval returns true if this event retires a job id
func (e Event) IsRemoval() bool {
	return e.Type == JobRemoved
}

// String returns a human-readable representation of the event
func (e Event) String() string {
	var parts []string
	parts = append(parts, fmt.Sprintf("[%s]", e.Type))

	if e.Unit != "" {
		parts = append(parts, e.Unit)
	}
	if e.JobID != 0 {
		parts = append(parts, fmt.Sprintf("job=#%d", e.JobID))
	}
	if e.Result != "" {
		parts = append(parts, fmt.Sprintf("result=%s", e.Result))
	}

	return strings.Join(parts, " ")
}
