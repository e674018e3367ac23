package conversion

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/httpx"
	"github.com/brightsmile-dental/clinic-platform/internal/leads"
	"github.com/brightsmile-dental/clinic-platform/internal/scheduling"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Handler provides HTTP endpoints for the conversion pipeline.
type Handler struct {
	pipeline *Pipeline
	logger   *logging.Logger
}

// NewHandler creates a new conversion HTTP handler.
func NewHandler(pipeline *Pipeline, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{pipeline: pipeline, logger: logger}
}

type convertLeadRequest struct {
	CreateHMSPatient  bool   `json:"create_hms_patient"`
	CreateAppointment bool   `json:"create_appointment"`
	DoctorID          string `json:"appointment_doctor_id,omitempty"`
	Date              string `json:"appointment_date,omitempty"`
	ClockTime         string `json:"appointment_time,omitempty"`
	Notes             string `json:"notes,omitempty"`
}

type convertResponse struct {
	Message       string   `json:"message"`
	ClientID      string   `json:"client_id,omitempty"`
	PatientID     string   `json:"patient_id,omitempty"`
	AppointmentID string   `json:"appointment_id,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// ConvertLead converts a lead to a client, with optional HMS cascade.
// POST /leads/{id}/convert
func (h *Handler) ConvertLead(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")

	var req convertLeadRequest
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpx.WriteError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
			return
		}
	}

	res, err := h.pipeline.ConvertLead(r.Context(), leadID, Options{
		CreatePatient:     req.CreateHMSPatient || req.CreateAppointment,
		CreateAppointment: req.CreateAppointment,
		DoctorID:          req.DoctorID,
		Date:              req.Date,
		ClockTime:         req.ClockTime,
		Notes:             req.Notes,
	}, scheduling.CallerFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("lead conversion rejected", "error", err, "lead_id", leadID)
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, convertResponse{
		Message:       "lead converted",
		ClientID:      res.ClientID,
		PatientID:     res.PatientID,
		AppointmentID: res.AppointmentID,
		Warnings:      res.Warnings,
	})
}

// ConvertClient promotes a client to an HMS patient.
// POST /clients/{id}/convert-to-hms
func (h *Handler) ConvertClient(w http.ResponseWriter, r *http.Request) {
	clientID := chi.URLParam(r, "id")
	q := r.URL.Query()

	res, err := h.pipeline.ConvertClient(r.Context(), clientID, Options{
		CreatePatient:     true,
		CreateAppointment: q.Get("create_appointment") == "true",
		DoctorID:          q.Get("appointment_doctor_id"),
		Date:              q.Get("appointment_date"),
		ClockTime:         q.Get("appointment_time"),
	}, scheduling.CallerFromContext(r.Context()))
	if err != nil {
		h.logger.Warn("client conversion rejected", "error", err, "client_id", clientID)
		httpx.WriteError(w, err)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, convertResponse{
		Message:       "client converted to HMS patient",
		ClientID:      res.ClientID,
		PatientID:     res.PatientID,
		AppointmentID: res.AppointmentID,
		Warnings:      res.Warnings,
	})
}

type createLeadResponse struct {
	Message string  `json:"message"`
	LeadID  *string `json:"lead_id"`
}

// CreateLeadFromPatient is the reverse sync endpoint.
// POST /integration/patients/{id}/create-lead
func (h *Handler) CreateLeadFromPatient(w http.ResponseWriter, r *http.Request) {
	patientID := chi.URLParam(r, "id")

	lead, err := h.pipeline.CreateLeadFromPatient(r.Context(), patientID)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	if lead == nil {
		httpx.WriteJSON(w, http.StatusOK, createLeadResponse{Message: "patient already has a CRM client, skipped"})
		return
	}
	httpx.WriteJSON(w, http.StatusOK, createLeadResponse{Message: "lead created", LeadID: &lead.ID})
}

type updateLeadStatusRequest struct {
	Status leads.Status `json:"status"`
}

// UpdateLeadStatus applies a transition-checked status edit.
// PATCH /leads/{id}/status
func (h *Handler) UpdateLeadStatus(w http.ResponseWriter, r *http.Request) {
	leadID := chi.URLParam(r, "id")

	var req updateLeadStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}

	lead, err := h.pipeline.UpdateLeadStatus(r.Context(), leadID, req.Status)
	if err != nil {
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, lead)
}
