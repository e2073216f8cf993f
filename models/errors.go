package models

import (
	"errors"
	"fmt"
)

// ErrLocationMissing means no position was supplied with the submission.
// The submitter can retry once location access is granted.
var ErrLocationMissing = errors.New("location is missing")

// ErrSubmissionInFlight is returned while an earlier submit with the same key is still running
var ErrSubmissionInFlight = errors.New("a submission is already in progress")

// ValidationError describes a malformed request field
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// ErrUnsupportedMedia is wrapped by MediaError when the file type is not accepted
var ErrUnsupportedMedia = errors.New("unsupported media type")

// MediaError is returned when a media file cannot be read, decoded or is of an unsupported type
type MediaError struct {
	Cause string
	Err   error
}

func (e *MediaError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("media error: %s: %v", e.Cause, e.Err)
	}
	return "media error: " + e.Cause
}

func (e *MediaError) Unwrap() error { return e.Err }

// ClassifierError wraps transport failures and malformed classifier responses
type ClassifierError struct {
	Source string
	Err    error
}

func (e *ClassifierError) Error() string {
	return fmt.Sprintf("classifier %s failed: %v", e.Source, e.Err)
}

func (e *ClassifierError) Unwrap() error { return e.Err }

// StorageWriteError is raised by durable mirror flushes. The in-memory state is already updated.
type StorageWriteError struct {
	Key string
	Err error
}

func (e *StorageWriteError) Error() string {
	return fmt.Sprintf("failed to write %s: %v", e.Key, e.Err)
}

func (e *StorageWriteError) Unwrap() error { return e.Err }

// SubmissionRejected is a normal outcome: the classifier ran and found nothing to report
type SubmissionRejected struct {
	Reason   string     `json:"reason"`
	Analysis AIAnalysis `json:"analysis"`
}

// RejectionNoIssue is the reason attached when the classifier detects no issue
const RejectionNoIssue = "no issue detected"

// IsMediaError reports whether err is or wraps a MediaError
func IsMediaError(err error) bool {
	var me *MediaError
	return errors.As(err, &me)
}

// IsClassifierError reports whether err is or wraps a ClassifierError
func IsClassifierError(err error) bool {
	var ce *ClassifierError
	return errors.As(err, &ce)
}
