package reliability

import (
	"context"
	"errors"
	"net"
	"os"
)

// Reason classifies an upstream failure so callers can pick user-facing text
// without the transport layer carrying any display strings.
type Reason string

const (
	// ReasonNone marks a nil error.
	ReasonNone Reason = ""
	// ReasonUnavailable covers connection refused, DNS failures and similar.
	ReasonUnavailable Reason = "unavailable"
	// ReasonTimeout covers deadline exceeded on the request itself.
	ReasonTimeout Reason = "timeout"
	// ReasonBadResponse covers malformed or unexpected upstream payloads.
	ReasonBadResponse Reason = "bad_response"
)

// ClassifiedError attaches a Reason to an underlying transport error.
type ClassifiedError struct {
	Reason Reason
	Err    error
}

func (e *ClassifiedError) Error() string { return string(e.Reason) + ": " + e.Err.Error() }

func (e *ClassifiedError) Unwrap() error { return e.Err }

// Classified wraps err with an explicit reason.
func Classified(reason Reason, err error) error {
	return &ClassifiedError{Reason: reason, Err: err}
}

// Classify maps an error to a failure reason. Errors already classified keep
// their reason; everything else is inspected for timeout/connectivity traits
// and falls back to ReasonBadResponse.
func Classify(err error) Reason {
	if err == nil {
		return ReasonNone
	}

	var ce *ClassifiedError
	if errors.As(err, &ce) {
		return ce.Reason
	}

	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, os.ErrDeadlineExceeded) {
		return ReasonTimeout
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return ReasonTimeout
	}

	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return ReasonUnavailable
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return ReasonUnavailable
	}

	return ReasonBadResponse
}
