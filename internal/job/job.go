package job

import (
	"fmt"

	"github.com/oklog/ulid/v2"

	"github.com/RevCBH/unitd/internal/unit"
)

// Job is a pending or running piece of work against exactly one unit.
// Jobs are created by the engine and live in the engine's id index plus
// their unit's slot for as long as they are installed.
type Job struct {
	id   uint32
	u    *unit.Unit
	kind Type

	state  State
	result Result

	// Invocation uniquely identifies this run of the job, surviving id
	// reuse after counter wrap
	invocation ulid.ULID

	override     bool
	irreversible bool
	ignoreOrder  bool

	// reloaded marks a job reconstructed from serialization during
	// live-reload
	reloaded bool

	installed     bool
	inRunQueue    bool
	inNotifyQueue bool
	sentNewSignal bool

	// already suppresses status banners for redundant operations
	already bool

	beginUsec uint64
	stopTimer func()

	// Subject/object dependency links, maintained for the transaction
	// builder; the engine never traverses them for scheduling
	deps []*Dependency

	subscribers []string
}

// Dependency is a directed, annotated link recording that the subject
// job's success logically depends on the object job
type Dependency struct {
	Subject   *Job
	Object    *Job
	Matters   bool
	Conflicts bool
}

// ID returns the manager-wide job id, stable for the job's lifetime
func (j *Job) ID() uint32 { return j.id }

// Unit returns the unit this job operates on
func (j *Job) Unit() *unit.Unit { return j.u }

// Type returns the job's current type. It changes only by merging and by
// restart patching.
func (j *Job) Type() Type { return j.kind }

// State returns waiting or running
func (j *Job) State() State { return j.state }

// Result returns the terminal classification recorded at finish
func (j *Job) Result() Result { return j.result }

// Invocation returns the job's unique invocation token
func (j *Job) Invocation() ulid.ULID { return j.invocation }

// Flags reconstructs the flag bits from the stored booleans
func (j *Job) Flags() Flags {
	var f Flags
	if j.override {
		f |= FlagOverride
	}
	if j.irreversible {
		f |= FlagIrreversible
	}
	if j.ignoreOrder {
		f |= FlagIgnoreOrder
	}
	return f
}

// Installed reports whether the job occupies its unit's slot
func (j *Job) Installed() bool { return j.installed }

// Reloaded reports whether the job was deserialized during live-reload
func (j *Job) Reloaded() bool { return j.reloaded }

// BeginUsec returns the monotonic timestamp recorded when the job's timer
// was started; zero if never started
func (j *Job) BeginUsec() uint64 { return j.beginUsec }

// Subscribers returns the client names subscribed to this job
func (j *Job) Subscribers() []string { return j.subscribers }

// Subscribe records a client name for result delivery. Duplicates are
// collapsed so serialization round-trips cleanly.
func (j *Job) Subscribe(client string) {
	for _, s := range j.subscribers {
		if s == client {
			return
		}
	}
	j.subscribers = append(j.subscribers, client)
}

// AddDependency links subject job j to object job o
func (j *Job) AddDependency(o *Job, matters, conflicts bool) *Dependency {
	d := &Dependency{Subject: j, Object: o, Matters: matters, Conflicts: conflicts}
	j.deps = append(j.deps, d)
	o.deps = append(o.deps, d)
	return d
}

// ObjectPath returns the job's bus address. Existing clients depend on
// exactly this encoding.
func (j *Job) ObjectPath() string {
	return fmt.Sprintf("/org/freedesktop/systemd1/job/%d", j.id)
}

func (j *Job) applyFlags(fl Flags) {
	j.override = j.override || fl.Has(FlagOverride)
	j.irreversible = j.irreversible || fl.Has(FlagIrreversible)
	j.ignoreOrder = j.ignoreOrder || fl.Has(FlagIgnoreOrder)
}

func parseInvocation(s string) (ulid.ULID, error) {
	return ulid.Parse(s)
}

func (j *Job) String() string {
	return fmt.Sprintf("%s/%s", j.u.Name, j.kind)
}
