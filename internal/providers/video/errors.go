package video

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by all provider adapters.
var (
	// ErrNotConfigured indicates the adapter has no credentials. It is an
	// expected condition, not a failure: the orchestrator records a skip and
	// moves on without logging an error.
	ErrNotConfigured = errors.New("video: provider not configured")

	// ErrPollTimeout indicates an async job never reached a terminal state
	// within the configured attempt cap.
	ErrPollTimeout = errors.New("video: poll attempts exhausted")
)

// VendorError is an error surfaced by a vendor HTTP API.
type VendorError struct {
	Provider string
	Status   int
	Message  string
}

func (e *VendorError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("[%s] vendor error %d: %s", e.Provider, e.Status, e.Message)
	}
	return fmt.Sprintf("[%s] vendor error: %s", e.Provider, e.Message)
}

// Rejected reports whether the vendor refused the request outright (4xx).
// Anything else is treated as the vendor being unavailable. Neither case is
// retried against the same vendor; the orchestrator simply advances.
func (e *VendorError) Rejected() bool {
	return e.Status >= 400 && e.Status < 500
}

// IsNotConfigured reports whether err represents missing credentials.
func IsNotConfigured(err error) bool {
	return errors.Is(err, ErrNotConfigured)
}
