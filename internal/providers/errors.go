package providers

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrEngineUnavailable marks an engine that cannot be reached at all.
// Tasks treat it as fatal and propagate it to the caller.
var ErrEngineUnavailable = errors.New("inference engine unavailable")

// TransientError wraps an inference failure worth retrying: timeouts,
// rate limits, server-side resource exhaustion (OOM, busy slots).
type TransientError struct {
	Err error
}

func (e *TransientError) Error() string {
	return fmt.Sprintf("transient inference error: %v", e.Err)
}

func (e *TransientError) Unwrap() error {
	return e.Err
}

// Transient wraps err as retryable. Returns nil for a nil err.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &TransientError{Err: err}
}

// IsTransient reports whether err is worth retrying at the batch level.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var te *TransientError
	if errors.As(err, &te) {
		return true
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return true
	}
	return false
}

// classifyStatus maps an HTTP status code from an engine API to the error
// taxonomy: 408/429 and 5xx are transient, everything else is fatal.
func classifyStatus(status int, err error) error {
	switch {
	case status == 408 || status == 429:
		return Transient(err)
	case status >= 500:
		return Transient(err)
	default:
		return err
	}
}
