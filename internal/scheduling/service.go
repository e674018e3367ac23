// Package scheduling owns appointment booking and the calendar uniqueness
// guard that stops two subsystems from filling the same doctor slot.
package scheduling

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/appointments"
	"github.com/brightsmile-dental/clinic-platform/internal/doctors"
	"github.com/brightsmile-dental/clinic-platform/internal/http/middleware"
	"github.com/brightsmile-dental/clinic-platform/internal/notify"
	"github.com/brightsmile-dental/clinic-platform/internal/observability/metrics"
	"github.com/brightsmile-dental/clinic-platform/internal/patients"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

var schedulingTracer = otel.Tracer("clinic.internal.scheduling")

var (
	// ErrInvalidDate is returned when the date is not YYYY-MM-DD.
	ErrInvalidDate = apperr.New(apperr.KindValidation, "appointment_date must be YYYY-MM-DD")

	// ErrInvalidTime is returned when the time is not HH:MM.
	ErrInvalidTime = apperr.New(apperr.KindValidation, "appointment_time must be HH:MM")

	// ErrMissingFields is returned when a required booking field is empty.
	ErrMissingFields = apperr.New(apperr.KindValidation, "patient_id, doctor_id, appointment_date and appointment_time are required")

	// ErrNotYourAppointment is returned when a patient token books for a
	// different patient record.
	ErrNotYourAppointment = apperr.New(apperr.KindForbidden, "patients may only book for themselves")

	// ErrDoctorInactive is returned when booking onto a deactivated
	// doctor's calendar.
	ErrDoctorInactive = apperr.New(apperr.KindValidation, "doctor is not accepting appointments")
)

// Caller identifies who is making the scheduling request.
type Caller struct {
	Role      string
	PatientID string
}

// CallerFromContext extracts the caller from verified token claims.
func CallerFromContext(ctx context.Context) Caller {
	claims, ok := middleware.ClaimsFromContext(ctx)
	if !ok {
		return Caller{}
	}
	return Caller{Role: claims.Role, PatientID: claims.PatientID}
}

// CreateRequest is a booking request.
type CreateRequest struct {
	PatientID string `json:"patient_id"`
	DoctorID  string `json:"doctor_id"`
	Date      string `json:"appointment_date"`
	ClockTime string `json:"appointment_time"`
	Notes     string `json:"notes,omitempty"`
}

// UpdateRequest is a partial appointment update. Nil fields keep the stored
// value. ForceStatus lets admins and managers correct a record outside the
// forward workflow.
type UpdateRequest struct {
	DoctorID    *string              `json:"doctor_id,omitempty"`
	Date        *string              `json:"appointment_date,omitempty"`
	ClockTime   *string              `json:"appointment_time,omitempty"`
	Status      *appointments.Status `json:"status,omitempty"`
	Notes       *string              `json:"notes,omitempty"`
	ForceStatus bool                 `json:"force_status,omitempty"`
}

// Guard books appointments while holding the slot uniqueness invariant. The
// slot reservation happens in storage before the appointment document is
// written, so a lost race surfaces as a conflict instead of a double booking.
type Guard struct {
	appts    appointments.Repository
	patients patients.Repository
	doctors  doctors.Repository
	notifier *notify.Service
	metrics  *metrics.SyncMetrics
	logger   *logging.Logger
}

// NewGuard constructs the scheduling guard.
func NewGuard(appts appointments.Repository, patientRepo patients.Repository, doctorRepo doctors.Repository, notifier *notify.Service, m *metrics.SyncMetrics, logger *logging.Logger) *Guard {
	if appts == nil || patientRepo == nil || doctorRepo == nil {
		panic("scheduling: repositories required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Guard{
		appts:    appts,
		patients: patientRepo,
		doctors:  doctorRepo,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// Create books an appointment. The slot is claimed first; if the appointment
// write then fails the slot is released so the calendar is not wedged.
func (g *Guard) Create(ctx context.Context, req CreateRequest, caller Caller) (*appointments.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.create")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.patient_id", req.PatientID),
		attribute.String("clinic.doctor_id", req.DoctorID),
	)

	if err := validateSlotFields(req.PatientID, req.DoctorID, req.Date, req.ClockTime); err != nil {
		return nil, err
	}
	if caller.Role == middleware.RolePatient && caller.PatientID != req.PatientID {
		return nil, ErrNotYourAppointment
	}

	patient, err := g.patients.GetByID(ctx, req.PatientID)
	if err != nil {
		return nil, err
	}
	doctor, err := g.doctors.GetByID(ctx, req.DoctorID)
	if err != nil {
		return nil, err
	}
	if !doctor.Active {
		return nil, ErrDoctorInactive
	}

	appt := &appointments.Appointment{
		ID:        uuid.NewString(),
		PatientID: req.PatientID,
		DoctorID:  req.DoctorID,
		Date:      req.Date,
		ClockTime: req.ClockTime,
		Status:    appointments.StatusUnconfirmed,
		Notes:     strings.TrimSpace(req.Notes),
	}

	if err := g.appts.ReserveSlot(ctx, appt.DoctorID, appt.Date, appt.ClockTime, appt.ID); err != nil {
		if kind, ok := apperr.KindOf(err); ok && kind == apperr.KindConflict {
			g.metrics.ObserveSlotConflict()
		}
		span.RecordError(err)
		return nil, err
	}
	if err := g.appts.Create(ctx, appt); err != nil {
		if relErr := g.appts.ReleaseSlot(ctx, appt.DoctorID, appt.Date, appt.ClockTime, appt.ID); relErr != nil {
			g.logger.Error("slot release after failed create", "error", relErr, "appointment_id", appt.ID)
		}
		span.RecordError(err)
		return nil, err
	}

	g.logger.Info("appointment booked",
		"appointment_id", appt.ID,
		"patient_id", appt.PatientID,
		"doctor_id", appt.DoctorID,
		"slot", appointments.SlotKey(appt.DoctorID, appt.Date, appt.ClockTime))

	if g.notifier != nil {
		if err := g.notifier.NotifyAppointmentBooked(ctx, notify.AppointmentDetails{
			PatientName:  patient.FullName,
			PatientEmail: patient.Email,
			DoctorName:   doctor.FullName,
			Date:         appt.Date,
			ClockTime:    appt.ClockTime,
		}); err != nil {
			g.logger.Warn("confirmation email failed", "error", err, "appointment_id", appt.ID)
		}
	}

	return appt, nil
}

// Update applies a partial update. Moving an appointment claims the new slot
// before releasing the old one, so the patient never loses both.
func (g *Guard) Update(ctx context.Context, id string, req UpdateRequest, caller Caller) (*appointments.Appointment, error) {
	ctx, span := schedulingTracer.Start(ctx, "scheduling.update")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.appointment_id", id))

	existing, err := g.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	next := *existing
	if req.DoctorID != nil {
		next.DoctorID = *req.DoctorID
	}
	if req.Date != nil {
		next.Date = *req.Date
	}
	if req.ClockTime != nil {
		next.ClockTime = *req.ClockTime
	}
	if req.Notes != nil {
		next.Notes = strings.TrimSpace(*req.Notes)
	}
	if err := validateSlotFields(next.PatientID, next.DoctorID, next.Date, next.ClockTime); err != nil {
		return nil, err
	}

	if req.Status != nil && *req.Status != existing.Status {
		if !appointments.ValidStatus(*req.Status) {
			return nil, apperr.Newf(apperr.KindValidation, "unknown status %q", *req.Status)
		}
		if !appointments.CanTransition(existing.Status, *req.Status) {
			override := req.ForceStatus && (caller.Role == middleware.RoleAdmin || caller.Role == middleware.RoleManager)
			if !override {
				return nil, apperr.Wrap(apperr.KindValidation, appointments.ErrIllegalTransition,
					fmt.Sprintf("cannot move appointment from %s to %s", existing.Status, *req.Status))
			}
			g.logger.Info("status override applied",
				"appointment_id", id, "from", existing.Status, "to", *req.Status, "role", caller.Role)
		}
		next.Status = *req.Status
	}

	if req.DoctorID != nil {
		if _, err := g.doctors.GetByID(ctx, next.DoctorID); err != nil {
			return nil, err
		}
	}

	oldKey := appointments.SlotKey(existing.DoctorID, existing.Date, existing.ClockTime)
	newKey := appointments.SlotKey(next.DoctorID, next.Date, next.ClockTime)
	moved := oldKey != newKey

	reserved := false
	switch {
	case !next.Active():
		// Cancellation and no-show free the slot, but only after the
		// status change is durable.
	case moved:
		if err := g.appts.ReserveSlot(ctx, next.DoctorID, next.Date, next.ClockTime, id); err != nil {
			if kind, ok := apperr.KindOf(err); ok && kind == apperr.KindConflict {
				g.metrics.ObserveSlotConflict()
			}
			span.RecordError(err)
			return nil, err
		}
		reserved = true
	case !existing.Active() && next.Active():
		// Reviving a cancelled appointment re-claims its slot.
		if err := g.appts.ReserveSlot(ctx, next.DoctorID, next.Date, next.ClockTime, id); err != nil {
			if kind, ok := apperr.KindOf(err); ok && kind == apperr.KindConflict {
				g.metrics.ObserveSlotConflict()
			}
			span.RecordError(err)
			return nil, err
		}
		reserved = true
	}

	if err := g.appts.Update(ctx, &next); err != nil {
		if reserved {
			if rerr := g.appts.ReleaseSlot(ctx, next.DoctorID, next.Date, next.ClockTime, id); rerr != nil {
				g.logger.Error("slot rollback failed", "error", rerr, "appointment_id", id)
			}
		}
		span.RecordError(err)
		return nil, err
	}

	// The old slot stays held until the new state is written, so a failed
	// write can never leave an active appointment on a freed slot.
	if existing.Active() && (moved || !next.Active()) {
		if err := g.appts.ReleaseSlot(ctx, existing.DoctorID, existing.Date, existing.ClockTime, id); err != nil {
			g.logger.Error("old slot release failed", "error", err, "appointment_id", id)
		}
	}
	g.logger.Info("appointment updated", "appointment_id", id, "status", next.Status, "slot", newKey)
	return &next, nil
}

// Get returns one appointment, enforcing patient ownership.
func (g *Guard) Get(ctx context.Context, id string, caller Caller) (*appointments.Appointment, error) {
	appt, err := g.appts.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if caller.Role == middleware.RolePatient && caller.PatientID != appt.PatientID {
		return nil, ErrNotYourAppointment
	}
	return appt, nil
}

func validateSlotFields(patientID, doctorID, date, clockTime string) error {
	if patientID == "" || doctorID == "" || date == "" || clockTime == "" {
		return ErrMissingFields
	}
	if _, err := time.Parse("2006-01-02", date); err != nil {
		return ErrInvalidDate
	}
	if _, err := time.Parse("15:04", clockTime); err != nil {
		return ErrInvalidTime
	}
	return nil
}
