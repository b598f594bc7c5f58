package models

import "errors"

var (
	// ErrNotFound is returned when a referenced user, company or expense does not exist
	ErrNotFound = errors.New("not found")

	// ErrValidation is returned when required input fields are missing or malformed
	ErrValidation = errors.New("validation failed")

	// ErrUnauthorized is returned when the actor lacks the role required for an operation
	ErrUnauthorized = errors.New("unauthorized")

	// ErrConflict is returned when an update races with a concurrent writer
	// or targets an expense that has already reached a terminal state
	ErrConflict = errors.New("conflict")
)
