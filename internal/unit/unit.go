package unit

import (
	"errors"
	"time"
)

// ActiveState represents a unit's activation state as reported by its backend
type ActiveState string

const (
	Inactive     ActiveState = "inactive"
	Activating   ActiveState = "activating"
	Active       ActiveState = "active"
	Reloading    ActiveState = "reloading"
	Deactivating ActiveState = "deactivating"
	Failed       ActiveState = "failed"
)

// IsActiveOrReloading returns true if the unit is up in some form
func (s ActiveState) IsActiveOrReloading() bool {
	return s == Active || s == Reloading
}

// IsInactiveOrDeactivating returns true if the unit is down or going down
func (s ActiveState) IsInactiveOrDeactivating() bool {
	return s == Inactive || s == Failed || s == Deactivating
}

// Sentinel results a backend primitive may return. A nil return means the
// operation was kicked off asynchronously and the backend will call back
// into the engine when it reaches a terminal state.
var (
	// ErrAlready means the desired effect already holds
	ErrAlready = errors.New("unit already in requested state")

	// ErrRefuse means the unit cannot (yet) execute this operation
	ErrRefuse = errors.New("unit refuses operation")

	// ErrNoExec means the operation's configuration is not executable
	ErrNoExec = errors.New("unit operation not executable")

	// ErrAssert means a unit assertion failed
	ErrAssert = errors.New("unit assertion failed")

	// ErrUnsupported means the operation is not supported for this unit kind
	ErrUnsupported = errors.New("operation not supported")

	// ErrRetryLater means the primitive wants to be retried later
	ErrRetryLater = errors.New("retry operation later")
)

// TimeoutAction is what the manager does when a job on the unit times out
type TimeoutAction string

const (
	ActionNone            TimeoutAction = "none"
	ActionReboot          TimeoutAction = "reboot"
	ActionRebootForce     TimeoutAction = "reboot-force"
	ActionRebootImmediate TimeoutAction = "reboot-immediate"
)

// Backend is the vtable each unit kind supplies. The job engine drives
// units exclusively through this interface; how a service forks a process
// or a mount calls mount(2) is the backend's business.
type Backend interface {
	// Start, Stop and Reload kick off the primitive operation.
	// nil means "async in progress, I will notify you later";
	// the Err* sentinels above classify synchronous outcomes.
	Start() error
	Stop() error
	Reload() error

	// ActiveState reports the unit's current activation state
	ActiveState() ActiveState

	// SubState reports the kind-specific fine-grained state
	SubState() string
}

// Deadliner is an optional backend extension supplying a unit-specific
// deadline, merged with the job timer by Engine.Timeout.
type Deadliner interface {
	Deadline() (time.Duration, bool)
}

// Unit is the engine's handle on one addressable unit. Edge sets point
// unit-to-unit; jobs are referenced only through the engine's slot maps so
// the handle itself stays free of job lifecycle concerns.
type Unit struct {
	Name        string
	Description string

	Backend Backend

	// Ordering edges
	After  []*Unit
	Before []*Unit

	// Requirement edges, traversed by failure propagation
	RequiredBy            []*Unit
	RequiredByOverridable []*Unit
	BoundBy               []*Unit
	ConflictedBy          []*Unit

	// Job timeout configuration
	JobTimeout          time.Duration
	JobTimeoutAction    TimeoutAction
	JobTimeoutRebootArg string

	// OnFailure, when set, is fired by the engine after a job on this
	// unit finishes with result timeout or dependency
	OnFailure func()

	// StatusFormats optionally overrides the engine's generic status
	// banner templates, keyed "<job-type>/<job-result>"
	StatusFormats map[string]string
}

// Desc returns the human-readable description, falling back to the name
func (u *Unit) Desc() string {
	if u.Description != "" {
		return u.Description
	}
	return u.Name
}

// TriggerOnFailure fires the unit's on-failure hook if one is declared
func (u *Unit) TriggerOnFailure() {
	if u.OnFailure != nil {
		u.OnFailure()
	}
}
