package services

import (
	"errors"
	"fmt"

	"incident-report-system/models"
)

// Sentinel errors shared across services. Fiber handlers translate
// these to status codes; anything unrecognized is a 500 and logged.
var (
	ErrNotFound           = errors.New("not found")
	ErrForbidden          = errors.New("forbidden")
	ErrConflict           = errors.New("conflict")
	ErrStorageUnavailable = errors.New("storage unavailable")
	ErrRateLimited        = errors.New("rate limited")
)

// ValidationError is malformed input, rejected before any side effect.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

func validationf(format string, args ...any) error {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// TransitionError names the disallowed target status explicitly.
type TransitionError struct {
	From models.ReportStatus
	To   models.ReportStatus
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("cannot transition report from %q to %q", e.From, e.To)
}

// Media pipeline failures, one per rejection reason.
var (
	ErrUnsupportedMediaType = errors.New("unsupported media type")
	ErrPayloadTooLarge      = errors.New("payload too large")
	ErrTooManyFiles         = errors.New("too many files")
)

// TranscodeError names the original filename that failed to transcode.
type TranscodeError struct {
	Filename string
	Cause    error
}

func (e *TranscodeError) Error() string {
	return fmt.Sprintf("failed to transcode %q: %v", e.Filename, e.Cause)
}

func (e *TranscodeError) Unwrap() error { return e.Cause }
