// Package fault defines the error taxonomy shared across the BeatFrame
// pipeline. Every terminal job state and every pre-flight validation failure
// carries one of these kinds so callers can retry just the failed subset of
// a batch without re-running alignment or linking.
package fault

import (
	"errors"
	"fmt"
)

// Kind classifies an error within the pipeline taxonomy.
type Kind string

const (
	// KindInvalidConfig indicates a caller input error. Fatal, never retried.
	KindInvalidConfig Kind = "invalid_config"
	// KindUnparsableTiming indicates the timing source file could not be decoded.
	KindUnparsableTiming Kind = "unparsable_timing"
	// KindEmptyTiming indicates the timing source contained zero boundaries.
	KindEmptyTiming Kind = "empty_timing"
	// KindTimingOverflow indicates alignment is impossible under the duration constraints.
	KindTimingOverflow Kind = "timing_overflow"
	// KindTransientNetwork indicates a retryable network failure (timeout, 5xx).
	KindTransientNetwork Kind = "transient_network"
	// KindRateLimited indicates the provider returned 429. Retryable.
	KindRateLimited Kind = "rate_limited"
	// KindRetriesExhausted indicates the retry budget was spent. Terminal.
	KindRetriesExhausted Kind = "retries_exhausted"
	// KindTimeout indicates the per-job maximum wait elapsed. Terminal.
	KindTimeout Kind = "timeout"
	// KindProviderFailed indicates the remote provider reported failure. Terminal.
	KindProviderFailed Kind = "provider_failed"
	// KindSegmentOutOfRange indicates an audio window exceeds the source track.
	KindSegmentOutOfRange Kind = "segment_out_of_range"
	// KindCancelled indicates user-initiated cancellation. Terminal.
	KindCancelled Kind = "cancelled"
)

// Error is a classified pipeline error.
type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

// Error implements the error interface.
func (e *Error) Error() string {
	switch {
	case e.Msg != "" && e.Err != nil:
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
	}
}

// Unwrap returns the wrapped cause, if any.
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a classified error with a message.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Msg: msg}
}

// Newf creates a classified error with a formatted message.
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap wraps an existing error with a kind and message.
func Wrap(kind Kind, msg string, err error) *Error {
	return &Error{Kind: kind, Msg: msg, Err: err}
}

// KindOf extracts the Kind from an error chain.
// Unclassified errors return an empty Kind.
func KindOf(err error) Kind {
	var fe *Error
	if errors.As(err, &fe) {
		return fe.Kind
	}
	return ""
}

// Retryable reports whether an error's kind is eligible for retry with backoff.
func Retryable(err error) bool {
	switch KindOf(err) {
	case KindTransientNetwork, KindRateLimited:
		return true
	default:
		return false
	}
}

// Terminal reports whether an error's kind represents a final job outcome.
func Terminal(err error) bool {
	switch KindOf(err) {
	case KindRetriesExhausted, KindTimeout, KindProviderFailed, KindCancelled:
		return true
	default:
		return false
	}
}
