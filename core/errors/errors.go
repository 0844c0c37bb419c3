// Package errors defines the failure taxonomy shared by the retrieval
// pipeline and the orchestrator. Analysis errors reject a request before any
// agent runs, capability errors trigger fallback, and exhaustion is the only
// terminal failure a caller ever observes.
package errors

import (
	"errors"
	"fmt"
)

// ErrEmptyQuestion indicates malformed input that is rejected immediately,
// before task analysis.
var ErrEmptyQuestion = errors.New("question must not be empty")

// ErrExhausted indicates every agent in the fallback chain failed. It is
// rendered as a degraded answer, never surfaced as an error to the caller.
var ErrExhausted = errors.New("fallback chain exhausted")

// ErrMalformedDocument indicates a document that cannot be ingested.
// Reported through the job status contract, not thrown synchronously.
var ErrMalformedDocument = errors.New("document has no text content")

// ErrUnknownAgent indicates a forced-agent request naming a strategy
// outside the closed agent set.
var ErrUnknownAgent = errors.New("unknown agent kind")

// CapabilityError wraps a failure of an external capability (embedding,
// text generation, web search, session store). Caught at the agent boundary
// and treated as a fallback trigger.
type CapabilityError struct {
	Capability string
	Err        error
}

func (e *CapabilityError) Error() string {
	return fmt.Sprintf("capability %s unavailable: %v", e.Capability, e.Err)
}

func (e *CapabilityError) Unwrap() error {
	return e.Err
}

// Unavailable constructs a CapabilityError for the named capability.
func Unavailable(capability string, err error) *CapabilityError {
	return &CapabilityError{Capability: capability, Err: err}
}

// IsUnavailable reports whether err is (or wraps) a CapabilityError.
func IsUnavailable(err error) bool {
	var ce *CapabilityError
	return errors.As(err, &ce)
}

// IsAnalysis reports whether err is a malformed-input rejection.
func IsAnalysis(err error) bool {
	return errors.Is(err, ErrEmptyQuestion)
}
