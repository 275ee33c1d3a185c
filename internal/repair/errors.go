package repair

import "errors"

var (
	// ErrValidation is returned for malformed transition input.
	ErrValidation = errors.New("validation failed")
	// ErrPermission is returned when the actor may not perform the transition.
	ErrPermission = errors.New("permission denied")
	// ErrNotFound is returned for an unknown device or actor lookup.
	ErrNotFound = errors.New("not found")
	// ErrConflict is returned when the device history changed between read and write.
	ErrConflict = errors.New("conflict")
	// ErrSourceUnavailable marks a timeline source that could not be read.
	// It is recovered inside the collector and never returned to callers of Collect.
	ErrSourceUnavailable = errors.New("source unavailable")
)
