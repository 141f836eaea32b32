package job

import "github.com/RevCBH/unitd/internal/events"

// enqueueNotify queues a new/changed notification for the job. The first
// flushed notification for a job is job.new, every later one job.changed.
func (e *Engine) enqueueNotify(j *Job) {
	if !j.installed || j.inNotifyQueue {
		return
	}
	j.inNotifyQueue = true
	e.notifyQueue = append(e.notifyQueue, j)
}

func (e *Engine) removeFromNotifyQueue(j *Job) {
	if !j.inNotifyQueue {
		return
	}
	for i, q := range e.notifyQueue {
		if q == j {
			e.notifyQueue = append(e.notifyQueue[:i], e.notifyQueue[i+1:]...)
			break
		}
	}
	j.inNotifyQueue = false
}

// FlushNotifications drains the queued new/changed notifications onto the
// bus. The manager loop calls this when it returns to idle. Notifications
// are suppressed while a live-reload is in progress.
func (e *Engine) FlushNotifications() {
	if e.reloading {
		return
	}
	queue := e.notifyQueue
	e.notifyQueue = nil
	for _, j := range queue {
		j.inNotifyQueue = false
		e.emitChange(j)
	}
}

func (e *Engine) emitChange(j *Job) {
	if e.bus == nil {
		j.sentNewSignal = true
		return
	}
	kind := events.JobChanged
	if !j.sentNewSignal {
		kind = events.JobNew
		j.sentNewSignal = true
	}
	e.bus.Emit(events.NewEvent(kind, j.id, j.u.Name).
		WithPath(j.ObjectPath()).
		WithJobType(j.kind.String()).
		WithPayload(map[string]any{
			"state":      j.state.String(),
			"invocation": j.invocation.String(),
		}))
}

func (e *Engine) emitRemoved(j *Job) {
	if e.bus == nil {
		return
	}
	if !j.sentNewSignal {
		// Clients never saw this job; give them the new signal first so
		// the removal is attributable
		e.emitChange(j)
	}
	e.bus.Emit(events.NewEvent(events.JobRemoved, j.id, j.u.Name).
		WithPath(j.ObjectPath()).
		WithJobType(j.kind.String()).
		WithResult(j.result.String()).
		WithPayload(map[string]any{
			"invocation": j.invocation.String(),
		}))
}
