// Package errs defines the typed failures raised along the capture cycle.
//
// Callers distinguish failures with errors.As instead of matching messages:
// a CaptureError during sampling is recovered locally, anything else raised
// inside a triggered cycle abandons that cycle.
package errs

import (
	"errors"
	"fmt"
)

// CaptureError reports that the camera was unavailable or a frame could not be read.
type CaptureError struct {
	Attempts int
	Err      error
}

func (e *CaptureError) Error() string {
	if e.Attempts > 0 {
		return fmt.Sprintf("capture failed after %d attempt(s): %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("capture failed: %v", e.Err)
}

func (e *CaptureError) Unwrap() error { return e.Err }

// EncodingError reports that a frame could not be serialized for transport.
type EncodingError struct {
	Err error
}

func (e *EncodingError) Error() string { return fmt.Sprintf("image encoding failed: %v", e.Err) }

func (e *EncodingError) Unwrap() error { return e.Err }

// InferenceError reports that the vision call exhausted its retries.
// LastRaw holds the last reply received, if any, for diagnostics.
type InferenceError struct {
	Attempts int
	LastRaw  string
	Err      error
}

func (e *InferenceError) Error() string {
	return fmt.Sprintf("inference failed after %d attempt(s): %v", e.Attempts, e.Err)
}

func (e *InferenceError) Unwrap() error { return e.Err }

// ValidationError reports a reply that is JSON but not the expected schema.
type ValidationError struct {
	Reason  string
	Raw     string
	Cleaned string
	Err     error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("invalid detection response: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("invalid detection response: %s", e.Reason)
}

func (e *ValidationError) Unwrap() error { return e.Err }

// PersistenceError reports a failed store operation or transaction.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string { return fmt.Sprintf("%s: %v", e.Op, e.Err) }

func (e *PersistenceError) Unwrap() error { return e.Err }

// Recoverable reports whether err may be absorbed by the sampling loop
// without abandoning anything beyond the current frame.
func Recoverable(err error) bool {
	var captureErr *CaptureError
	return errors.As(err, &captureErr)
}

// Diagnostics returns the raw payloads attached to err, if any, so the cycle
// boundary can log them in full.
func Diagnostics(err error) (raw, cleaned string) {
	var inferenceErr *InferenceError
	if errors.As(err, &inferenceErr) {
		return inferenceErr.LastRaw, ""
	}
	var validationErr *ValidationError
	if errors.As(err, &validationErr) {
		return validationErr.Raw, validationErr.Cleaned
	}
	return "", ""
}
