package clients

import "github.com/brightsmile-dental/clinic-platform/internal/apperr"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = apperr.New(apperr.KindValidation, "client name is required")

	// ErrNotFound is returned when a client does not exist
	ErrNotFound = apperr.New(apperr.KindNotFound, "client not found")

	// ErrAlreadyLinked is returned when a client already carries an HMS
	// patient back-reference
	ErrAlreadyLinked = apperr.New(apperr.KindConflict, "client is already linked to an HMS patient")
)
