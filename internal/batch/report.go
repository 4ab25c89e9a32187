package batch

import (
	"github.com/beatframe/beatframe-api/internal/fault"
	"github.com/beatframe/beatframe-api/internal/job"
)

// Entry is one scene's terminal outcome.
type Entry struct {
	SceneIndex int        `json:"scene_index"`
	State      job.State  `json:"state"`
	ResultPath string     `json:"result_path,omitempty"`
	ResultURL  string     `json:"result_url,omitempty"`
	ErrorKind  fault.Kind `json:"error_kind,omitempty"`
	ErrorMsg   string     `json:"error_msg,omitempty"`
	Attempts   int        `json:"attempts,omitempty"`
}

// Report is the ordered per-scene outcome of a batch run. Entries are sorted
// by scene index regardless of completion order, one entry per scene.
type Report struct {
	Entries []Entry `json:"entries"`
}

// newReport builds a Report from terminal jobs already ordered by scene index.
func newReport(jobs []*job.Job) *Report {
	entries := make([]Entry, 0, len(jobs))
	for _, j := range jobs {
		snap := j.Clone()
		entries = append(entries, Entry{
			SceneIndex: snap.SceneIndex,
			State:      snap.State,
			ResultPath: snap.ResultPath,
			ErrorKind:  snap.LastError,
			ErrorMsg:   snap.ErrorMsg,
			Attempts:   snap.Attempt,
		})
	}
	return &Report{Entries: entries}
}

// Succeeded returns the number of succeeded scenes.
func (r *Report) Succeeded() int {
	return r.count(job.StateSucceeded)
}

// Failed returns the number of failed scenes.
func (r *Report) Failed() int {
	return r.count(job.StateFailed)
}

// Cancelled returns the number of cancelled scenes.
func (r *Report) Cancelled() int {
	return r.count(job.StateCancelled)
}

func (r *Report) count(state job.State) int {
	n := 0
	for _, e := range r.Entries {
		if e.State == state {
			n++
		}
	}
	return n
}

// FailedScenes returns the indexes of scenes that did not succeed, so a
// caller can retry just that subset without recomputing alignment or linking.
func (r *Report) FailedScenes() []int {
	var out []int
	for _, e := range r.Entries {
		if e.State != job.StateSucceeded {
			out = append(out, e.SceneIndex)
		}
	}
	return out
}

// Clone returns a deep copy of the report.
func (r *Report) Clone() Report {
	entries := make([]Entry, len(r.Entries))
	copy(entries, r.Entries)
	return Report{Entries: entries}
}
