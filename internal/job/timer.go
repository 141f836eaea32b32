package job

import (
	"time"

	"github.com/RevCBH/unitd/internal/unit"
)

// startTimer records the job's begin timestamp and arms the one-shot
// timeout timer if the unit declares a timeout or the engine has a
// DefaultJobTimeout. Called at install and again
// (with the preserved begin timestamp) at coldplug.
func (e *Engine) startTimer(j *Job) {
	if j.beginUsec == 0 {
		j.beginUsec = e.clock.NowUsec()
	}

	timeout := j.u.JobTimeout
	if timeout <= 0 {
		timeout = e.DefaultJobTimeout
	}
	if timeout <= 0 {
		return
	}

	deadline := j.beginUsec + uint64(timeout/time.Microsecond)
	remaining := time.Duration(int64(deadline)-int64(e.clock.NowUsec())) * time.Microsecond

	id := j.id
	j.stopTimer = e.timers.After(remaining, func() {
		e.onTimeout(id)
	})
}

func (e *Engine) stopTimer(j *Job) {
	if j.stopTimer != nil {
		j.stopTimer()
		j.stopTimer = nil
	}
}

// StopTimers disarms every live job timer. The live-reload driver calls
// this on the outgoing engine so a late firing cannot finish a job the
// successor engine now owns.
func (e *Engine) StopTimers() {
	for _, j := range e.jobs {
		e.stopTimer(j)
	}
}

// onTimeout finishes the job with result timeout and executes the
// unit-declared timeout action. Runs on the manager loop.
func (e *Engine) onTimeout(id uint32) {
	j := e.jobs[id]
	if j == nil {
		return
	}

	u := j.u
	e.Finish(j, ResultTimeout, true, false)

	if u.JobTimeoutAction != "" && u.JobTimeoutAction != unit.ActionNone && e.ExecuteAction != nil {
		e.ExecuteAction(u.JobTimeoutAction, u.JobTimeoutRebootArg)
	}
}

// Timeout returns the job's effective deadline as a duration from now:
// the earlier of the job timer's deadline and the unit's own deadline.
// The second return is false when neither applies.
func (e *Engine) Timeout(j *Job) (time.Duration, bool) {
	var best time.Duration
	have := false

	timeout := j.u.JobTimeout
	if timeout <= 0 {
		timeout = e.DefaultJobTimeout
	}
	if timeout > 0 && j.beginUsec > 0 {
		deadline := j.beginUsec + uint64(timeout/time.Microsecond)
		best = time.Duration(int64(deadline)-int64(e.clock.NowUsec())) * time.Microsecond
		have = true
	}

	if d, ok := unitDeadline(j); ok && (!have || d < best) {
		best = d
		have = true
	}

	return best, have
}

func unitDeadline(j *Job) (time.Duration, bool) {
	if d, ok := j.u.Backend.(unit.Deadliner); ok {
		return d.Deadline()
	}
	return 0, false
}
