package service

import "errors"

var (
	// ErrForbidden is returned when the actor's role or relation to the
	// entity does not permit the requested operation.
	ErrForbidden = errors.New("operation not permitted for this actor")

	// ErrValidation is returned for malformed input, including transitions
	// that do not exist in the entity's state machine.
	ErrValidation = errors.New("validation failed")
)
