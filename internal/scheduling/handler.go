package scheduling

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/httpx"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Handler provides HTTP endpoints for appointment booking.
type Handler struct {
	guard  *Guard
	logger *logging.Logger
}

// NewHandler creates a new scheduling HTTP handler.
func NewHandler(guard *Guard, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{guard: guard, logger: logger}
}

// CreateAppointment books a slot.
// POST /appointments
func (h *Handler) CreateAppointment(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}

	appt, err := h.guard.Create(r.Context(), req, CallerFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("booking rejected", "error", err, "patient_id", req.PatientID, "doctor_id", req.DoctorID)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusCreated, appt)
}

// GetAppointment returns one appointment.
// GET /appointments/{id}
func (h *Handler) GetAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	appt, err := h.guard.Get(r.Context(), id, CallerFromContext(r.Context()))
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}

// UpdateAppointment applies a partial update.
// PUT /appointments/{id}
func (h *Handler) UpdateAppointment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	var req UpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}

	appt, err := h.guard.Update(r.Context(), id, req, CallerFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("appointment update rejected", "error", err, "appointment_id", id)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, appt)
}
