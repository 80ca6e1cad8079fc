// Package errors holds the sentinel errors shared by adapters and the
// wrapping helpers used across the pipeline.
package errors

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	ErrTimeout            = errors.New("operation timed out")
	ErrRateLimit          = errors.New("rate limit exceeded")
	ErrNotFound           = errors.New("resource not found")
	ErrInvalidInput       = errors.New("invalid input")
	ErrConnectionFailed   = errors.New("connection failed")
	ErrUnauthorized       = errors.New("unauthorized")
	ErrServiceUnavailable = errors.New("service unavailable")
	ErrInvalidResponse    = errors.New("invalid response")
)

type wrappedError struct {
	msg   string
	cause error
}

func (e *wrappedError) Error() string { return e.msg + ": " + e.cause.Error() }
func (e *wrappedError) Unwrap() error { return e.cause }

// Wrap annotates err with msg. Nil in, nil out.
func Wrap(err error, msg string) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: msg, cause: err}
}

// Wrapf is Wrap with a format string.
func Wrapf(err error, format string, args ...any) error {
	if err == nil {
		return nil
	}
	return &wrappedError{msg: fmt.Sprintf(format, args...), cause: err}
}

func Is(err, target error) bool    { return errors.Is(err, target) }
func As(err error, target any) bool { return errors.As(err, target) }
func New(msg string) error          { return errors.New(msg) }
func Join(errs ...error) error      { return errors.Join(errs...) }

func Errorf(format string, args ...any) error { return fmt.Errorf(format, args...) }

// StatusError records an unexpected HTTP status together with the
// sentinel it maps to.
type StatusError struct {
	Code int
	URL  string
	kind error
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d from %s", e.Code, e.URL)
}

func (e *StatusError) Unwrap() error { return e.kind }

// FromStatus classifies a non-2xx status. 2xx returns nil.
func FromStatus(code int, url string) error {
	if code >= 200 && code < 300 {
		return nil
	}
	var kind error
	switch {
	case code == http.StatusTooManyRequests:
		kind = ErrRateLimit
	case code == http.StatusUnauthorized, code == http.StatusForbidden:
		kind = ErrUnauthorized
	case code == http.StatusNotFound:
		kind = ErrNotFound
	case code == http.StatusGatewayTimeout, code == http.StatusRequestTimeout:
		kind = ErrTimeout
	case code >= 500:
		kind = ErrServiceUnavailable
	default:
		kind = ErrInvalidResponse
	}
	return &StatusError{Code: code, URL: url, kind: kind}
}

// IsRetryable reports whether a retry could plausibly succeed.
func IsRetryable(err error) bool {
	return Is(err, ErrRateLimit) || Is(err, ErrServiceUnavailable) || Is(err, ErrTimeout) || Is(err, ErrConnectionFailed)
}
