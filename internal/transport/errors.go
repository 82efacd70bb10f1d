package transport

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind classifies a failed send. Adapters produce the tag so that
// callers never need to inspect provider-specific error shapes.
type ErrorKind string

const (
	// ErrBlocked means the recipient has blocked or removed the bot.
	ErrBlocked ErrorKind = "permanently_blocked"
	// ErrRateLimited is an explicit throttling signal (429-equivalent).
	ErrRateLimited ErrorKind = "rate_limited"
	// ErrBadRequest is a malformed payload or invalid recipient (400-equivalent).
	ErrBadRequest ErrorKind = "bad_request"
	// ErrServer is a provider-side failure (5xx-equivalent).
	ErrServer ErrorKind = "server_error"
	// ErrNetwork means no structured response was received at all.
	ErrNetwork ErrorKind = "network_error"
	// ErrUnknown is anything that matches none of the above.
	ErrUnknown ErrorKind = "unknown_error"
)

// SendError is the tagged failure variant returned by Adapter.SendText.
type SendError struct {
	Kind ErrorKind
	// Code is the provider status code, if one was received.
	Code int
	// RetryAfter is the provider's back-off hint for rate-limited errors
	// (zero if none was given).
	RetryAfter time.Duration
	Cause      error
}

func (e *SendError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("send %s: %v", e.Kind, e.Cause)
	}
	return "send " + string(e.Kind)
}

func (e *SendError) Unwrap() error { return e.Cause }

// KindOf extracts the classification from err. Errors that are not
// SendErrors classify as unknown; adapters are expected to tag
// everything they return, including network failures.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var se *SendError
	if errors.As(err, &se) {
		return se.Kind
	}
	return ErrUnknown
}

// RetryAfterOf returns the back-off hint carried by err, if any.
func RetryAfterOf(err error) (time.Duration, bool) {
	var se *SendError
	if errors.As(err, &se) && se.RetryAfter > 0 {
		return se.RetryAfter, true
	}
	return 0, false
}
