package job

import "github.com/RevCBH/unitd/internal/unit"

// Finish records the job's terminal result and runs the propagation
// kernel: restart patching, uninstall, dependent failure propagation,
// on-failure triggering and neighbor unblocking.
//
// Unit code calls this when a running job's unit reaches a terminal
// activation state. The engine itself calls it on timeout, cancellation
// and synchronous primitive outcomes.
func (e *Engine) Finish(j *Job, result Result, recursive, already bool) {
	u := j.u
	t := j.kind
	j.result = result
	j.already = j.already || already

	if !already {
		e.printStatus(j, result)
	}

	if result == ResultDone && t == TypeRestart {
		// The stop half is done; patch the job to its start half and
		// send it around again under the same id
		j.kind = TypeStart
		e.setState(j, StateWaiting)
		e.addToRunQueue(j)
		e.enqueueNotify(j)
		e.unblockNeighbors(u)
		return
	}

	if countsAsFailure(result) {
		e.nFailed++
	}
	if e.metric != nil {
		e.metric.JobFinished(result.String())
	}

	e.setState(j, StateWaiting)
	e.uninstall(j)

	if recursive && result != ResultDone {
		e.propagateFailure(u, t)
	}

	// Timeouts and dependency failures fire the unit's on-failure hook.
	// A plain failed result is the unit's own business and canceled is a
	// user action; neither triggers it.
	if result == ResultTimeout || result == ResultDependency {
		u.TriggerOnFailure()
	}

	e.unblockNeighbors(u)
}

// countsAsFailure selects the results the failed-jobs counter tracks:
// everything except success, user cancellation, propagated dependency
// failure and skips.
func countsAsFailure(r Result) bool {
	switch r {
	case ResultFailed, ResultTimeout, ResultInvalid, ResultAssert, ResultUnsupported:
		return true
	default:
		return false
	}
}

// propagateFailure cascades a non-done result along requirement edges.
// Each dependent job fails with result dependency, which then cascades
// once more from that job's own finish.
func (e *Engine) propagateFailure(u *unit.Unit, t Type) {
	switch t {
	case TypeStart, TypeVerifyActive:
		for _, other := range u.RequiredBy {
			e.failDependent(other, false)
		}
		for _, other := range u.BoundBy {
			e.failDependent(other, false)
		}
		for _, other := range u.RequiredByOverridable {
			e.failDependent(other, true)
		}
	case TypeStop:
		for _, other := range u.ConflictedBy {
			e.failDependent(other, false)
		}
	}
}

func (e *Engine) failDependent(u *unit.Unit, skipOverride bool) {
	oj := e.slots[u]
	if oj == nil {
		return
	}
	if oj.kind != TypeStart && oj.kind != TypeVerifyActive {
		return
	}
	if skipOverride && oj.override {
		return
	}
	e.Finish(oj, ResultDependency, true, false)
}

// unblockNeighbors requeues every job ordered against this unit. This is
// the only mechanism by which a job's runnability is re-evaluated after a
// peer completes.
func (e *Engine) unblockNeighbors(u *unit.Unit) {
	for _, other := range u.After {
		if oj := e.slots[other]; oj != nil && oj.state == StateWaiting {
			e.addToRunQueue(oj)
		}
	}
	for _, other := range u.Before {
		if oj := e.slots[other]; oj != nil && oj.state == StateWaiting {
			e.addToRunQueue(oj)
		}
	}
}
