package domain

import (
	"context"
	"errors"
	"fmt"
)

// Transport failures.
var (
	ErrInvalidURL       = errors.New("invalid feed url")
	ErrTimeout          = errors.New("feed request timed out")
	ErrBadStatus        = errors.New("unexpected feed response status")
	ErrConnectionFailed = errors.New("feed connection failed")
)

// Decode failures.
var (
	ErrEmptyPayload     = errors.New("empty feed payload")
	ErrMalformedPayload = errors.New("malformed feed payload")
)

// StatusError reports a non-200 response. It matches ErrBadStatus with errors.Is.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: %d", ErrBadStatus, e.Code)
}

func (e *StatusError) Is(target error) bool {
	return target == ErrBadStatus
}

// FailureKind maps a pipeline error to a stable label for logs and metrics.
func FailureKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrInvalidURL):
		return "invalid_url"
	case errors.Is(err, ErrTimeout):
		return "timeout"
	case errors.Is(err, ErrBadStatus):
		return "bad_status"
	case errors.Is(err, ErrConnectionFailed):
		return "connection_failed"
	case errors.Is(err, ErrEmptyPayload):
		return "empty"
	case errors.Is(err, ErrMalformedPayload):
		return "malformed"
	case errors.Is(err, context.Canceled):
		return "canceled"
	default:
		return "unknown"
	}
}
