// Package batch provides the Batch aggregate, the scheduler that fans scene
// jobs out under a concurrency cap, and the service orchestrating the full
// timing -> alignment -> linking -> generation pipeline.
package batch

import (
	"sync"
	"time"

	"github.com/beatframe/beatframe-api/internal/batch/id"
	"github.com/beatframe/beatframe-api/internal/scene"
)

// Status represents the current state of a Batch.
type Status string

const (
	// StatusPending indicates the batch is created but not yet running.
	StatusPending Status = "PENDING"
	// StatusRunning indicates scene jobs are being dispatched.
	StatusRunning Status = "RUNNING"
	// StatusCompleted indicates every scene succeeded.
	StatusCompleted Status = "COMPLETED"
	// StatusPartial indicates the batch finished with at least one failed scene.
	StatusPartial Status = "COMPLETED_WITH_FAILURES"
	// StatusFailed indicates a pre-flight error aborted the batch before dispatch.
	StatusFailed Status = "FAILED"
	// StatusCancelled indicates the batch was cancelled.
	StatusCancelled Status = "CANCELLED"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusPartial, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Batch is the aggregate for one generation run.
type Batch struct {
	mu sync.RWMutex

	// ID is the unique identifier for this batch.
	ID string
	// Status is the current batch state.
	Status Status
	// Scenes is the fully resolved scene plan, in output order.
	Scenes []scene.Scene
	// Warnings carries non-fatal resolution notes from the linker.
	Warnings []scene.Warning
	// Report is the per-scene outcome list, set once the run finishes.
	Report *Report
	// Error contains the pre-flight error message when Status is FAILED.
	Error string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a Batch with a generated ID in Pending status.
func New() *Batch {
	now := time.Now()
	return &Batch{
		ID:        id.Generate(),
		Status:    StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Start marks the batch as running.
func (b *Batch) Start() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Status = StatusRunning
	b.StartedAt = time.Now()
	b.UpdatedAt = b.StartedAt
}

// SetPlan records the resolved scenes and linker warnings.
func (b *Batch) SetPlan(scenes []scene.Scene, warnings []scene.Warning) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Scenes = scenes
	b.Warnings = warnings
	b.UpdatedAt = time.Now()
}

// Finish records the report and derives the terminal status from it.
func (b *Batch) Finish(report *Report) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Report = report
	switch {
	case report.Cancelled() > 0 && report.Succeeded() < len(report.Entries):
		b.Status = StatusCancelled
	case report.Failed() == 0:
		b.Status = StatusCompleted
	default:
		b.Status = StatusPartial
	}
	b.CompletedAt = time.Now()
	b.UpdatedAt = b.CompletedAt
}

// FailPreflight marks the batch failed before any scene was dispatched.
func (b *Batch) FailPreflight(msg string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.Status = StatusFailed
	b.Error = msg
	b.CompletedAt = time.Now()
	b.UpdatedAt = b.CompletedAt
}

// GetStatus returns the current status (thread-safe).
func (b *Batch) GetStatus() Status {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.Status
}

// Clone creates a deep copy of the batch for safe reads.
func (b *Batch) Clone() *Batch {
	b.mu.RLock()
	defer b.mu.RUnlock()

	scenes := make([]scene.Scene, len(b.Scenes))
	for i := range b.Scenes {
		scenes[i] = b.Scenes[i].Clone()
	}
	warnings := make([]scene.Warning, len(b.Warnings))
	copy(warnings, b.Warnings)

	var report *Report
	if b.Report != nil {
		r := b.Report.Clone()
		report = &r
	}

	return &Batch{
		ID:          b.ID,
		Status:      b.Status,
		Scenes:      scenes,
		Warnings:    warnings,
		Report:      report,
		Error:       b.Error,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		StartedAt:   b.StartedAt,
		CompletedAt: b.CompletedAt,
	}
}
