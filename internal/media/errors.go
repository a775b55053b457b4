package media

import (
	"errors"
	"fmt"
)

var (
	ErrInvalidImage   = errors.New("invalid image data")
	ErrInvalidRequest = errors.New("invalid generation request")
	ErrQuotaExceeded  = errors.New("quota exceeded")
	ErrUnauthorized   = errors.New("unauthorized")
	ErrNoImages       = errors.New("no images were generated")
	ErrCancelled      = errors.New("job cancelled")
	ErrPollTimeout    = errors.New("job did not finish before the polling deadline")
)

// Reason classifies a SubmissionError.
type Reason string

const (
	ReasonInvalidInput  Reason = "invalid_input"
	ReasonQuotaExceeded Reason = "quota_exceeded"
	ReasonUnauthorized  Reason = "unauthorized"
	ReasonRejected      Reason = "rejected"
)

// SubmissionError is returned when a request is malformed or the service refuses it.
type SubmissionError struct {
	Reason Reason
	Err    error
}

func (e *SubmissionError) Error() string {
	return fmt.Sprintf("submit job (%s): %v", e.Reason, e.Err)
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Is lets errors.Is(err, ErrQuotaExceeded) match on Reason even when the
// backend did not wrap the sentinel itself.
func (e *SubmissionError) Is(target error) bool {
	switch target {
	case ErrQuotaExceeded:
		return e.Reason == ReasonQuotaExceeded
	case ErrUnauthorized:
		return e.Reason == ReasonUnauthorized
	}
	return false
}

// PollError is a transport failure while checking job status. It is not retried.
type PollError struct {
	Handle JobHandle
	Err    error
}

func (e *PollError) Error() string {
	return fmt.Sprintf("poll job %s: %v", e.Handle, e.Err)
}

func (e *PollError) Unwrap() error { return e.Err }

// JobFailedError is a terminal failure reported by the service.
type JobFailedError struct {
	Handle  JobHandle
	Message string
}

func (e *JobFailedError) Error() string {
	return fmt.Sprintf("video generation failed: %s", e.Message)
}

// DownloadError is a failure fetching the artifact after the job succeeded.
type DownloadError struct {
	URI        string
	StatusCode int
	Err        error
}

func (e *DownloadError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("download artifact: HTTP %d: %v", e.StatusCode, e.Err)
	}
	return fmt.Sprintf("download artifact: %v", e.Err)
}

func (e *DownloadError) Unwrap() error { return e.Err }

// classifySubmit wraps a backend submission error, preserving an existing
// SubmissionError.
func classifySubmit(err error) error {
	var se *SubmissionError
	if errors.As(err, &se) {
		return err
	}
	reason := ReasonRejected
	switch {
	case errors.Is(err, ErrQuotaExceeded):
		reason = ReasonQuotaExceeded
	case errors.Is(err, ErrUnauthorized):
		reason = ReasonUnauthorized
	case errors.Is(err, ErrInvalidImage), errors.Is(err, ErrInvalidRequest):
		reason = ReasonInvalidInput
	}
	return &SubmissionError{Reason: reason, Err: err}
}
