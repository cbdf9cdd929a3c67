package errors

import "errors"

var (
	ErrNotFound = errors.New("doctor not found")

	ErrInvalidID = errors.New("invalid doctor ID format")

	ErrDuplicateUser = errors.New("a doctor profile already exists for this user")
)
