package schedule

import "errors"

// Failure taxonomy surfaced to callers. Handlers map these to HTTP status
// codes; everything else is treated as an internal failure.
var (
	// ErrNotFound reports an absent schedule or attendance row.
	ErrNotFound = errors.New("record not found")

	// ErrAlreadyMarked rejects a second present-marking for the same row.
	ErrAlreadyMarked = errors.New("attendance already marked")

	// ErrInvalidFormat reports an unparseable date or time input.
	ErrInvalidFormat = errors.New("invalid date or time format")
)
