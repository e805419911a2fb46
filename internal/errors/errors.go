package errors

import (
	"errors"
)

// Sentinel errors for different categories
var (
	// ErrDuplicateEvent - inbound message already processed (drop silently)
	ErrDuplicateEvent = errors.New("duplicate event")

	// ErrInvalidInput - invalid input (reply with a short hint, never surface internals)
	ErrInvalidInput = errors.New("invalid input")

	// ErrNotFound - resource not found
	ErrNotFound = errors.New("not found")

	// ErrRateLimited - per-user message budget exhausted for the current window
	ErrRateLimited = errors.New("rate limited")

	// ErrTransient - transient error (retry later)
	ErrTransient = errors.New("transient error")

	// ErrSourceFetch - a listing source failed or timed out; contributes zero records
	ErrSourceFetch = errors.New("source fetch failed")

	// ErrMalformedRecord - a source record could not be normalized; skipped
	ErrMalformedRecord = errors.New("malformed record")

	// ErrClassifier - intent classifier failed; turn answered with a fixed apology
	ErrClassifier = errors.New("classifier failed")

	// ErrRenderer - response renderer failed; turn answered with a fixed apology
	ErrRenderer = errors.New("renderer failed")

	// ErrInvalidModelOutput - model returned malformed structured output
	ErrInvalidModelOutput = errors.New("invalid model output")

	// ErrInternal - internal error (generic message + trace id)
	ErrInternal = errors.New("internal error")
)
