package database

import "errors"

var (
	// ErrNotFound is returned when the requested row does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrConflict is returned when a conditional write affected zero rows:
	// a concurrent transition invalidated the expected previous status.
	ErrConflict = errors.New("concurrent modification detected")

	// ErrAlreadyAssigned is returned when a booking already has a job card.
	ErrAlreadyAssigned = errors.New("booking already assigned")

	// ErrInvalidState is returned when the row exists but its current
	// status does not permit the requested operation.
	ErrInvalidState = errors.New("operation not allowed in current status")

	// ErrHasInvoice is returned when deleting a job card that has been
	// billed already.
	ErrHasInvoice = errors.New("job card has an invoice")
)
