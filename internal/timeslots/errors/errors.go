package errors

import "errors"

var (
	ErrNotFound = errors.New("time slot not found")

	ErrInvalidID = errors.New("invalid time slot ID format")

	// ErrStatusChanged means a conditional write found the entry in another status.
	ErrStatusChanged = errors.New("time slot status changed concurrently")
)
