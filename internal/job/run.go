package job

import (
	"errors"

	"github.com/RevCBH/unitd/internal/unit"
)

// addToRunQueue marks the job for dispatch. Prepending mirrors the order
// the dispatcher consumes freshly unblocked jobs in; whether unrelated jobs
// run LIFO or FIFO is not observable through the ordering guarantees.
func (e *Engine) addToRunQueue(j *Job) {
	if !j.installed {
		panic("job added to run queue while not installed")
	}
	if j.inRunQueue {
		return
	}
	wasEmpty := len(e.runQueue) == 0
	j.inRunQueue = true
	e.runQueue = append([]*Job{j}, e.runQueue...)
	if e.metric != nil {
		e.metric.RunQueueDepth(len(e.runQueue))
	}
	if wasEmpty && e.wakeup != nil {
		e.wakeup()
	}
}

func (e *Engine) removeFromRunQueue(j *Job) {
	if !j.inRunQueue {
		return
	}
	for i, q := range e.runQueue {
		if q == j {
			e.runQueue = append(e.runQueue[:i], e.runQueue[i+1:]...)
			break
		}
	}
	j.inRunQueue = false
	if e.metric != nil {
		e.metric.RunQueueDepth(len(e.runQueue))
	}
}

// InRunQueue reports whether the job is marked for dispatch
func (j *Job) InRunQueue() bool { return j.inRunQueue }

// Tick dispatches the run queue until it drains. Jobs that are not yet
// runnable stay installed and wait for a peer completion to requeue them;
// jobs requeued during the pass (restart patching) run in the same pass.
func (e *Engine) Tick() {
	for len(e.runQueue) > 0 {
		j := e.runQueue[0]
		e.runQueue = e.runQueue[1:]
		j.inRunQueue = false
		e.runAndInvalidate(j)
	}
	if e.metric != nil {
		e.metric.RunQueueDepth(0)
	}
}

// runnable is the predicate gating a waiting job's transition to running
func (e *Engine) runnable(j *Job) bool {
	if j.ignoreOrder {
		return true
	}
	if j.kind == TypeNop {
		return true
	}

	if startsUnit(j.kind) {
		// Positive jobs wait for everything they are ordered after
		for _, other := range j.u.After {
			if e.slots[other] != nil {
				return false
			}
		}
	}

	// Any job waits for stop/restart of units it is ordered before.
	// This is what makes "start a + stop b" with b after a stop b
	// first, and symmetrically for restarts.
	for _, other := range j.u.Before {
		if oj := e.slots[other]; oj != nil && (oj.kind == TypeStop || oj.kind == TypeRestart) {
			return false
		}
	}

	return true
}

// runAndInvalidate attempts to run one job: check runnability, invoke the
// unit primitive, and classify a synchronous outcome. The unit callback
// may cancel, supersede or finish the job in hand, so the job is
// re-looked-up by captured id before any post-processing.
func (e *Engine) runAndInvalidate(j *Job) {
	if j.state != StateWaiting {
		// A prior pass already handled it
		return
	}
	if !e.runnable(j) {
		// Stay installed; a peer completion will requeue us
		return
	}

	e.setState(j, StateRunning)
	e.enqueueNotify(j)
	id := j.id

	var err error
	switch j.kind {
	case TypeStart:
		err = j.u.Backend.Start()
	case TypeStop, TypeRestart:
		// Restart is patched to start once the stop half completes
		err = j.u.Backend.Stop()
	case TypeReload:
		err = j.u.Backend.Reload()
	case TypeVerifyActive:
		err = verifyActive(j.u.Backend.ActiveState())
	case TypeNop:
		err = unit.ErrAlready
	default:
		err = unit.ErrNoExec
	}

	j = e.jobs[id]
	if j == nil {
		// The callee destroyed us; nothing left to post-process
		return
	}

	switch {
	case err == nil:
		// Async in progress; the unit will call Finish
	case errors.Is(err, unit.ErrAlready):
		e.Finish(j, ResultDone, true, true)
	case errors.Is(err, unit.ErrRefuse):
		e.Finish(j, ResultSkipped, true, false)
	case errors.Is(err, unit.ErrNoExec):
		e.Finish(j, ResultInvalid, true, false)
	case errors.Is(err, unit.ErrAssert):
		e.Finish(j, ResultAssert, true, false)
	case errors.Is(err, unit.ErrUnsupported):
		e.Finish(j, ResultUnsupported, true, false)
	case errors.Is(err, unit.ErrRetryLater):
		// The primitive wants another shot once something changes
		e.setState(j, StateWaiting)
		e.enqueueNotify(j)
	default:
		e.Finish(j, ResultFailed, true, false)
	}
}

// verifyActive synthesizes the verify-active primitive from the unit's
// activation state
func verifyActive(state unit.ActiveState) error {
	switch {
	case state.IsActiveOrReloading():
		return unit.ErrAlready
	case state == unit.Activating:
		return unit.ErrRetryLater
	default:
		return unit.ErrRefuse
	}
}
