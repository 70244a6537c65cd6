package model

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for classification with errors.Is.
var (
	// ErrPostingNotFound is returned by stores for unknown posting ids.
	ErrPostingNotFound = errors.New("posting not found")

	// ErrRunNotFound is returned when a posting has no generation run.
	ErrRunNotFound = errors.New("no generation run for posting")

	// ErrDraftNotFound is returned for unknown or expired manual drafts.
	ErrDraftNotFound = errors.New("draft not found or expired")

	// ErrAlreadyStreaming is returned by start while a run is live for the
	// posting. The caller must stop or regenerate instead.
	ErrAlreadyStreaming = errors.New("generation run already streaming")

	// ErrConcurrentModification is returned when a stage transition lost
	// the compare-and-set race twice. The caller should re-fetch the
	// current stage before deciding whether to retry.
	ErrConcurrentModification = errors.New("posting modified concurrently")
)

// MalformedPayloadError reports a source payload from which a required field
// could not be extracted. The payload is discarded and never retried.
type MalformedPayloadError struct {
	Source SourceID
	Field  string
}

func (e *MalformedPayloadError) Error() string {
	return fmt.Sprintf("malformed %s payload: missing %s", e.Source, e.Field)
}

// IllegalTransitionError reports a requested stage edge outside the allowed
// set. State is left unchanged.
type IllegalTransitionError struct {
	From Stage
	To   Stage
}

func (e *IllegalTransitionError) Error() string {
	return fmt.Sprintf("illegal stage transition %s -> %s", e.From, e.To)
}

// GenerationFailedError surfaces a failed run with enough state for the
// caller to resume via regenerate.
type GenerationFailedError struct {
	RunID      string
	Transcript string // partial output retained up to the failure
	Err        error
}

func (e *GenerationFailedError) Error() string {
	return fmt.Sprintf("generation run %s failed: %v", e.RunID, e.Err)
}

func (e *GenerationFailedError) Unwrap() error {
	return e.Err
}

// HTTPError wraps an HTTP status code so retry logic can inspect it.
type HTTPError struct {
	StatusCode int
	RetryAfter time.Duration // from Retry-After header, zero if absent
	Err        error
}

func (e *HTTPError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("HTTP %d", e.StatusCode)
}

func (e *HTTPError) Unwrap() error {
	return e.Err
}
