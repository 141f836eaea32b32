package job

import "fmt"

// StatusSink receives the human-readable banners emitted when jobs finish.
// The daemon installs a logger-backed sink; tests install a recorder.
type StatusSink interface {
	JobStatus(j *Job, result Result, message string)
}

// StatusFunc adapts a function to the StatusSink interface
type StatusFunc func(j *Job, result Result, message string)

func (f StatusFunc) JobStatus(j *Job, result Result, message string) { f(j, result, message) }

// Generic banner templates per (job type, result). Unit kinds can
// override individual cells through Unit.StatusFormats, keyed
// "<type>/<result>".
var statusFormats = map[Type]map[Result]string{
	TypeStart: {
		ResultDone:        "Started %s.",
		ResultTimeout:     "Timed out starting %s.",
		ResultFailed:      "Failed to start %s.",
		ResultDependency:  "Dependency failed for %s.",
		ResultCanceled:    "Canceled start of %s.",
		ResultSkipped:     "Skipped start of %s.",
		ResultInvalid:     "Start of %s invalid.",
		ResultAssert:      "Assertion failed for %s.",
		ResultUnsupported: "Starting %s not supported.",
	},
	TypeStop: {
		ResultDone:     "Stopped %s.",
		ResultTimeout:  "Timed out stopping %s.",
		ResultFailed:   "Stopped (with error) %s.",
		ResultCanceled: "Canceled stop of %s.",
	},
	TypeReload: {
		ResultDone:     "Reloaded %s.",
		ResultTimeout:  "Timed out reloading %s.",
		ResultFailed:   "Reload failed for %s.",
		ResultCanceled: "Canceled reload of %s.",
	},
	TypeVerifyActive: {
		ResultDone:       "Verified %s is active.",
		ResultFailed:     "%s is not active.",
		ResultDependency: "Dependency failed for %s.",
	},
}

// statusMessage resolves the banner for a finished job, or "" when the
// (type, result) cell has no template
func statusMessage(j *Job, result Result) string {
	if j.u.StatusFormats != nil {
		key := fmt.Sprintf("%s/%s", j.kind, result)
		if f, ok := j.u.StatusFormats[key]; ok {
			return fmt.Sprintf(f, j.u.Desc())
		}
	}
	row, ok := statusFormats[j.kind]
	if !ok {
		return ""
	}
	f, ok := row[result]
	if !ok {
		return ""
	}
	return fmt.Sprintf(f, j.u.Desc())
}

func (e *Engine) printStatus(j *Job, result Result) {
	if e.sink == nil {
		return
	}
	msg := statusMessage(j, result)
	if msg == "" {
		return
	}
	e.sink.JobStatus(j, result, msg)
}
