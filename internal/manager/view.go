package manager

import "github.com/RevCBH/unitd/internal/job"

// JobView is an immutable snapshot of one installed job, safe to hand
// across the loop boundary
type JobView struct {
	ID         uint32 `json:"id"`
	Unit       string `json:"unit"`
	Type       string `json:"type"`
	State      string `json:"state"`
	Path       string `json:"path"`
	Invocation string `json:"invocation"`
}

func snapshot(j *job.Job) JobView {
	return JobView{
		ID:         j.ID(),
		Unit:       j.Unit().Name,
		Type:       j.Type().String(),
		State:      j.State().String(),
		Path:       j.ObjectPath(),
		Invocation: j.Invocation().String(),
	}
}
