package appointments

import "github.com/brightsmile-dental/clinic-platform/internal/apperr"

var (
	// ErrNotFound is returned when an appointment does not exist
	ErrNotFound = apperr.New(apperr.KindNotFound, "appointment not found")

	// ErrSlotTaken is returned when another active appointment holds the
	// doctor/date/time slot
	ErrSlotTaken = apperr.New(apperr.KindConflict, "the doctor already has an appointment at this date and time")

	// ErrIllegalTransition is returned when a status edit violates the
	// forward workflow
	ErrIllegalTransition = apperr.New(apperr.KindValidation, "illegal appointment status transition")
)
