package leads

import "github.com/brightsmile-dental/clinic-platform/internal/apperr"

var (
	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = apperr.New(apperr.KindValidation, "lead name is required")

	// ErrMissingContact is returned when both email and phone are missing
	ErrMissingContact = apperr.New(apperr.KindValidation, "either email or phone is required")

	// ErrNotFound is returned when a lead does not exist
	ErrNotFound = apperr.New(apperr.KindNotFound, "lead not found")

	// ErrNotConvertible is returned when the conversion guard has already
	// been consumed or the lead is in a terminal state
	ErrNotConvertible = apperr.New(apperr.KindConflict, "lead cannot be converted: already converted or in a terminal status")

	// ErrConverted is returned when a plain update targets a converted
	// lead. Converted is terminal and the status never reverts.
	ErrConverted = apperr.New(apperr.KindConflict, "lead is converted and can no longer be updated")
)
