package deals

import "github.com/brightsmile-dental/clinic-platform/internal/apperr"

var (
	// ErrNotFound is returned when a deal does not exist
	ErrNotFound = apperr.New(apperr.KindNotFound, "deal not found")

	// ErrDuplicatePlan is returned when a second deal targets the same
	// treatment plan
	ErrDuplicatePlan = apperr.New(apperr.KindConflict, "a deal for this treatment plan already exists")
)
