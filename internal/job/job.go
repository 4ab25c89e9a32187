// Package job provides the GenerationJob aggregate and the client that
// drives one scene's remote generation from submission to a terminal state.
// Job state transitions are driven exclusively by the Client; terminal
// states are immutable.
package job

import (
	"errors"
	"sync"
	"time"

	"github.com/beatframe/beatframe-api/internal/fault"
)

// State represents the current state of a GenerationJob.
type State string

const (
	// StatePending indicates the job is created but not yet submitted.
	StatePending State = "PENDING"
	// StateSubmitted indicates the remote create call succeeded.
	StateSubmitted State = "SUBMITTED"
	// StatePolling indicates the job is waiting on remote status checks.
	StatePolling State = "POLLING"
	// StateSucceeded indicates the artifact was downloaded and verified.
	StateSucceeded State = "SUCCEEDED"
	// StateFailed indicates the job ended with an error.
	StateFailed State = "FAILED"
	// StateCancelled indicates the job was cancelled before completion.
	StateCancelled State = "CANCELLED"
)

// IsTerminal returns true if the state is final.
func (s State) IsTerminal() bool {
	switch s {
	case StateSucceeded, StateFailed, StateCancelled:
		return true
	default:
		return false
	}
}

// ErrInvalidTransition is returned when an invalid state transition is attempted.
var ErrInvalidTransition = errors.New("invalid state transition")

// validTransitions defines which state transitions are allowed.
var validTransitions = map[State][]State{
	StatePending:   {StateSubmitted, StateFailed, StateCancelled},
	StateSubmitted: {StatePolling, StateFailed, StateCancelled},
	StatePolling:   {StateSucceeded, StateFailed, StateCancelled},
	StateSucceeded: {},
	StateFailed:    {},
	StateCancelled: {},
}

// canTransition checks if a transition from one state to another is valid.
func canTransition(from, to State) bool {
	allowed, ok := validTransitions[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// Job is the runtime state for one in-flight or completed remote request.
type Job struct {
	mu sync.RWMutex

	// SceneIndex identifies the scene this job generates.
	SceneIndex int
	// State is the current job state.
	State State
	// RemoteID is the provider-assigned request identifier.
	RemoteID string
	// Attempt counts submission attempts at the transport, including
	// retries the transport recovered from.
	Attempt int
	// LastError classifies the most recent failure.
	LastError fault.Kind
	// ErrorMsg carries the human-readable failure detail.
	ErrorMsg string
	// ResultPath is the local cache path of the downloaded artifact.
	ResultPath string

	CreatedAt   time.Time
	UpdatedAt   time.Time
	StartedAt   time.Time
	CompletedAt time.Time
}

// New creates a Job for the given scene in Pending state.
func New(sceneIndex int) *Job {
	now := time.Now()
	return &Job{
		SceneIndex: sceneIndex,
		State:      StatePending,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
}

// TransitionTo attempts to change the job state.
// Returns ErrInvalidTransition if the transition is not allowed.
func (j *Job) TransitionTo(state State) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	return j.transitionLocked(state)
}

func (j *Job) transitionLocked(state State) error {
	if !canTransition(j.State, state) {
		return ErrInvalidTransition
	}

	j.State = state
	j.UpdatedAt = time.Now()

	switch state {
	case StateSubmitted:
		j.StartedAt = j.UpdatedAt
	case StateSucceeded, StateFailed, StateCancelled:
		j.CompletedAt = j.UpdatedAt
	}

	return nil
}

// MarkSubmitted records the remote ID and moves the job to Submitted.
func (j *Job) MarkSubmitted(remoteID string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.RemoteID = remoteID
	return j.transitionLocked(StateSubmitted)
}

// MarkPolling moves the job to Polling on the first status check.
func (j *Job) MarkPolling() error {
	return j.TransitionTo(StatePolling)
}

// Succeed records the artifact path and moves the job to Succeeded.
func (j *Job) Succeed(resultPath string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.ResultPath = resultPath
	return j.transitionLocked(StateSucceeded)
}

// Fail records the error kind and message and moves the job to Failed.
func (j *Job) Fail(kind fault.Kind, msg string) error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.LastError = kind
	j.ErrorMsg = msg
	return j.transitionLocked(StateFailed)
}

// Cancel moves the job to Cancelled.
func (j *Job) Cancel() error {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.LastError = fault.KindCancelled
	return j.transitionLocked(StateCancelled)
}

// SetAttempt records the attempt count reported by the transport, covering
// retries it spent even when the call eventually recovered.
func (j *Job) SetAttempt(n int) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.Attempt = n
	j.UpdatedAt = time.Now()
}

// GetState returns the current state (thread-safe).
func (j *Job) GetState() State {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.State
}

// GetRemoteID returns the remote ID (thread-safe).
func (j *Job) GetRemoteID() string {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.RemoteID
}

// IsTerminal returns true if the job is in a terminal state.
func (j *Job) IsTerminal() bool {
	j.mu.RLock()
	defer j.mu.RUnlock()
	return j.State.IsTerminal()
}

// Clone creates a copy of the job for safe reads.
func (j *Job) Clone() *Job {
	j.mu.RLock()
	defer j.mu.RUnlock()

	return &Job{
		SceneIndex:  j.SceneIndex,
		State:       j.State,
		RemoteID:    j.RemoteID,
		Attempt:     j.Attempt,
		LastError:   j.LastError,
		ErrorMsg:    j.ErrorMsg,
		ResultPath:  j.ResultPath,
		CreatedAt:   j.CreatedAt,
		UpdatedAt:   j.UpdatedAt,
		StartedAt:   j.StartedAt,
		CompletedAt: j.CompletedAt,
	}
}
