// Package domain defines domain-level errors for the alerts feature.
package domain

import "errors"

var (
	// ErrAlertNotFound is returned when an alert id does not exist.
	ErrAlertNotFound = errors.New("alert not found")

	// ErrCycleAborted is returned by a cycle that could not list its candidates.
	// The next scheduled cycle retries independently.
	ErrCycleAborted = errors.New("alert cycle aborted")

	// ErrInvalidAlert is returned when a new alert fails validation.
	ErrInvalidAlert = errors.New("invalid alert")

	// ErrUnknownKind is returned for an alert kind the evaluator does not support.
	ErrUnknownKind = errors.New("unknown alert kind")
)
