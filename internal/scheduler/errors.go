package scheduler

import "fmt"

// InsufficientDataError reports a catalog snapshot that cannot produce any schedule.
// It is never retried.
type InsufficientDataError struct {
	Reason string
}

func (e *InsufficientDataError) Error() string {
	return "insufficient data: " + e.Reason
}

// MalformedGenerationError reports strategy output that failed parsing or validation.
type MalformedGenerationError struct {
	Reason string
	Err    error
}

func (e *MalformedGenerationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("malformed generation: %s: %v", e.Reason, e.Err)
	}
	return "malformed generation: " + e.Reason
}

func (e *MalformedGenerationError) Unwrap() error {
	return e.Err
}

func malformed(reason string, err error) error {
	return &MalformedGenerationError{Reason: reason, Err: err}
}
