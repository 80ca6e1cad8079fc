package errors

import (
	"fmt"
	"testing"

	"sentinel/internal/testutil"
)

func TestWrap(t *testing.T) {
	t.Run("wraps error with context", func(t *testing.T) {
		base := New("base error")
		wrapped := Wrap(base, "additional context")

		testutil.AssertTrue(t, Is(wrapped, base), "should unwrap to base error")
		testutil.AssertEqual(t, wrapped.Error(), "additional context: base error", "message")
	})

	t.Run("returns nil when wrapping nil", func(t *testing.T) {
		testutil.AssertTrue(t, Wrap(nil, "context") == nil, "Wrap(nil)")
		testutil.AssertTrue(t, Wrapf(nil, "context %d", 1) == nil, "Wrapf(nil)")
	})

	t.Run("multiple wraps preserve chain", func(t *testing.T) {
		wrapped := Wrapf(Wrap(ErrTimeout, "layer 1"), "layer %d", 2)
		testutil.AssertTrue(t, Is(wrapped, ErrTimeout), "should unwrap to sentinel")
		testutil.AssertEqual(t, wrapped.Error(), "layer 2: layer 1: operation timed out", "chain message")
	})
}

func TestFromStatus(t *testing.T) {
	tests := []struct {
		code int
		want error
	}{
		{429, ErrRateLimit},
		{401, ErrUnauthorized},
		{403, ErrUnauthorized},
		{404, ErrNotFound},
		{504, ErrTimeout},
		{502, ErrServiceUnavailable},
		{503, ErrServiceUnavailable},
		{400, ErrInvalidResponse},
	}

	for _, tt := range tests {
		t.Run(fmt.Sprint(tt.code), func(t *testing.T) {
			err := FromStatus(tt.code, "https://example.com")
			testutil.AssertTrue(t, Is(err, tt.want), "sentinel mapping")

			var se *StatusError
			testutil.AssertTrue(t, As(err, &se), "should be a StatusError")
			testutil.AssertEqual(t, se.Code, tt.code, "code")
		})
	}

	testutil.AssertTrue(t, FromStatus(204, "x") == nil, "2xx is not an error")
}

func TestIsRetryable(t *testing.T) {
	testutil.AssertTrue(t, IsRetryable(FromStatus(503, "x")), "503 retryable")
	testutil.AssertTrue(t, IsRetryable(Wrap(ErrTimeout, "ctx")), "wrapped timeout retryable")
	testutil.AssertFalse(t, IsRetryable(FromStatus(404, "x")), "404 not retryable")
	testutil.AssertFalse(t, IsRetryable(Join(ErrInvalidInput)), "invalid input not retryable")
}
