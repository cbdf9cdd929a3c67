package errors

import "errors"

var (
	ErrNotFound = errors.New("appointment not found")

	ErrInvalidID = errors.New("invalid appointment ID format")

	// ErrSlotTaken is raised by the unique index on active bookings.
	ErrSlotTaken = errors.New("an active appointment already holds this slot")

	ErrStatusChanged = errors.New("appointment status changed concurrently")
)
