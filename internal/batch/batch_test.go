package batch

import (
	"testing"

	"github.com/beatframe/beatframe-api/internal/fault"
	"github.com/beatframe/beatframe-api/internal/job"
	"github.com/beatframe/beatframe-api/internal/scene"
)

func succeededJob(index int) *job.Job {
	j := job.New(index)
	_ = j.MarkSubmitted("remote")
	_ = j.MarkPolling()
	_ = j.Succeed("/cache/out.mp4")
	return j
}

func failedJob(index int) *job.Job {
	j := job.New(index)
	_ = j.Fail(fault.KindProviderFailed, "boom")
	return j
}

func cancelledJob(index int) *job.Job {
	j := job.New(index)
	_ = j.Cancel()
	return j
}

func TestStatus_IsTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusPending, false},
		{StatusRunning, false},
		{StatusCompleted, true},
		{StatusPartial, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		if got := tt.status.IsTerminal(); got != tt.want {
			t.Errorf("%s.IsTerminal() = %v, want %v", tt.status, got, tt.want)
		}
	}
}

func TestBatch_FinishDerivesStatus(t *testing.T) {
	tests := []struct {
		name string
		jobs []*job.Job
		want Status
	}{
		{
			name: "all succeeded",
			jobs: []*job.Job{succeededJob(0), succeededJob(1)},
			want: StatusCompleted,
		},
		{
			name: "one failed",
			jobs: []*job.Job{succeededJob(0), failedJob(1)},
			want: StatusPartial,
		},
		{
			name: "cancellation wins over failure",
			jobs: []*job.Job{succeededJob(0), failedJob(1), cancelledJob(2)},
			want: StatusCancelled,
		},
		{
			name: "all cancelled",
			jobs: []*job.Job{cancelledJob(0), cancelledJob(1)},
			want: StatusCancelled,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := New()
			b.Start()
			b.Finish(newReport(tt.jobs))

			if got := b.GetStatus(); got != tt.want {
				t.Errorf("status = %q, want %q", got, tt.want)
			}
			if b.CompletedAt.IsZero() {
				t.Error("CompletedAt not set")
			}
		})
	}
}

func TestBatch_FailPreflight(t *testing.T) {
	b := New()
	b.Start()
	b.FailPreflight("timing file is empty")

	if b.GetStatus() != StatusFailed {
		t.Errorf("status = %q, want FAILED", b.GetStatus())
	}
	if b.Error != "timing file is empty" {
		t.Errorf("Error = %q", b.Error)
	}
	if b.Report != nil {
		t.Error("pre-flight failure must not carry a report")
	}
}

func TestBatch_CloneIsDeep(t *testing.T) {
	b := New()
	b.SetPlan(
		[]scene.Scene{{Index: 0, Prompt: "original", LeadingAnchor: &scene.ImageRef{Path: "/a.png"}}},
		[]scene.Warning{{SceneIndex: 0}},
	)
	b.Start()
	b.Finish(newReport([]*job.Job{succeededJob(0)}))

	c := b.Clone()
	c.Scenes[0].Prompt = "mutated"
	c.Scenes[0].LeadingAnchor.Path = "/mutated.png"
	c.Report.Entries[0].ErrorMsg = "mutated"

	if b.Scenes[0].Prompt != "original" {
		t.Error("clone shares the scene slice")
	}
	if b.Scenes[0].LeadingAnchor.Path != "/a.png" {
		t.Error("clone shares anchor pointers")
	}
	if b.Report.Entries[0].ErrorMsg != "" {
		t.Error("clone shares the report")
	}
}

func TestReport_Counts(t *testing.T) {
	r := newReport([]*job.Job{
		succeededJob(0),
		failedJob(1),
		succeededJob(2),
		cancelledJob(3),
	})

	if got := r.Succeeded(); got != 2 {
		t.Errorf("Succeeded() = %d, want 2", got)
	}
	if got := r.Failed(); got != 1 {
		t.Errorf("Failed() = %d, want 1", got)
	}
	if got := r.Cancelled(); got != 1 {
		t.Errorf("Cancelled() = %d, want 1", got)
	}
}

func TestReport_FailedScenes(t *testing.T) {
	r := newReport([]*job.Job{
		succeededJob(0),
		failedJob(1),
		cancelledJob(2),
	})

	got := r.FailedScenes()
	if len(got) != 2 || got[0] != 1 || got[1] != 2 {
		t.Errorf("FailedScenes() = %v, want [1 2]", got)
	}
}

func TestReport_EntriesCarryJobDetail(t *testing.T) {
	j := job.New(4)
	_ = j.MarkSubmitted("remote-9")
	_ = j.MarkPolling()
	j.SetAttempt(3)
	_ = j.Fail(fault.KindRetriesExhausted, "gave up")

	r := newReport([]*job.Job{j})
	e := r.Entries[0]
	if e.SceneIndex != 4 || e.State != job.StateFailed {
		t.Errorf("entry = %+v", e)
	}
	if e.ErrorKind != fault.KindRetriesExhausted || e.ErrorMsg != "gave up" {
		t.Errorf("entry error = %q %q", e.ErrorKind, e.ErrorMsg)
	}
	if e.Attempts != 3 {
		t.Errorf("Attempts = %d, want 3", e.Attempts)
	}
}
