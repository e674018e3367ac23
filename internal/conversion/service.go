// Package conversion moves records across the CRM/HMS boundary: leads become
// clients, clients become patients, and patients flow back as leads. Each
// hop is guarded so a record crosses at most once.
package conversion

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/clients"
	"github.com/brightsmile-dental/clinic-platform/internal/leads"
	"github.com/brightsmile-dental/clinic-platform/internal/notify"
	"github.com/brightsmile-dental/clinic-platform/internal/observability/metrics"
	"github.com/brightsmile-dental/clinic-platform/internal/patients"
	"github.com/brightsmile-dental/clinic-platform/internal/scheduling"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

var conversionTracer = otel.Tracer("clinic.internal.conversion")

// ErrStatusReserved is returned when a generic status edit targets the
// converted state, which only the pipeline itself may set.
var ErrStatusReserved = apperr.New(apperr.KindValidation, "converted status is set by the conversion endpoint only")

// Options controls how far a conversion cascades into the HMS.
type Options struct {
	CreatePatient     bool
	CreateAppointment bool
	DoctorID          string
	Date              string
	ClockTime         string
	Notes             string
}

// Result reports what a conversion produced. Warnings carry the downstream
// steps that failed after the guard was consumed; the caller still gets the
// ids that were created.
type Result struct {
	ClientID      string   `json:"client_id,omitempty"`
	PatientID     string   `json:"patient_id,omitempty"`
	AppointmentID string   `json:"appointment_id,omitempty"`
	Warnings      []string `json:"warnings,omitempty"`
}

// Pipeline performs the cross-subsystem conversions. The lead guard is
// consumed first, so under a race exactly one caller proceeds past
// MarkConverted and every later step is at worst incomplete, never doubled.
type Pipeline struct {
	leads    leads.Repository
	clients  clients.Repository
	patients patients.Repository
	guard    *scheduling.Guard
	notifier *notify.Service
	metrics  *metrics.SyncMetrics
	logger   *logging.Logger
}

// NewPipeline constructs the conversion pipeline.
func NewPipeline(leadRepo leads.Repository, clientRepo clients.Repository, patientRepo patients.Repository, guard *scheduling.Guard, notifier *notify.Service, m *metrics.SyncMetrics, logger *logging.Logger) *Pipeline {
	if leadRepo == nil || clientRepo == nil || patientRepo == nil {
		panic("conversion: repositories required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Pipeline{
		leads:    leadRepo,
		clients:  clientRepo,
		patients: patientRepo,
		guard:    guard,
		notifier: notifier,
		metrics:  m,
		logger:   logger,
	}
}

// ConvertLead converts a lead to a client and optionally cascades into an
// HMS patient and a first appointment. Only the lead-to-client hop can fail
// the request; later hops degrade to warnings.
func (p *Pipeline) ConvertLead(ctx context.Context, leadID string, opts Options, caller scheduling.Caller) (*Result, error) {
	ctx, span := conversionTracer.Start(ctx, "conversion.convert_lead")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.lead_id", leadID))

	client, err := p.convertLeadToClient(ctx, leadID)
	if err != nil {
		p.metrics.ObserveConversion("lead_to_client", "rejected")
		span.RecordError(err)
		return nil, err
	}
	p.metrics.ObserveConversion("lead_to_client", "ok")
	res := &Result{ClientID: client.ID}

	if p.notifier != nil {
		if err := p.notifier.NotifyLeadConverted(ctx, client.Name, client.Email); err != nil {
			p.logger.Warn("welcome email failed", "error", err, "client_id", client.ID)
		}
	}

	if !opts.CreatePatient && !opts.CreateAppointment {
		return res, nil
	}

	patient, err := p.createPatientForClient(ctx, client)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("patient record not created: %v", err))
		return res, nil
	}
	res.PatientID = patient.ID

	if opts.CreateAppointment {
		p.bookFirstVisit(ctx, res, patient.ID, opts, caller)
	}
	return res, nil
}

// ConvertClient promotes an existing client to an HMS patient, optionally
// booking a first appointment.
func (p *Pipeline) ConvertClient(ctx context.Context, clientID string, opts Options, caller scheduling.Caller) (*Result, error) {
	ctx, span := conversionTracer.Start(ctx, "conversion.convert_client")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.client_id", clientID))

	client, err := p.clients.GetByID(ctx, clientID)
	if err != nil {
		return nil, err
	}
	if client.HMSPatientID != "" {
		p.metrics.ObserveConversion("client_to_patient", "rejected")
		return nil, clients.ErrAlreadyLinked
	}

	patient, err := p.createPatientForClient(ctx, client)
	if err != nil {
		p.metrics.ObserveConversion("client_to_patient", "failed")
		span.RecordError(err)
		return nil, err
	}
	p.metrics.ObserveConversion("client_to_patient", "ok")

	res := &Result{ClientID: client.ID, PatientID: patient.ID}
	if opts.CreateAppointment {
		p.bookFirstVisit(ctx, res, patient.ID, opts, caller)
	}
	return res, nil
}

// CreateLeadFromPatient is the reverse sync: an HMS patient with no CRM
// presence gets a lead. A patient already linked to a client is skipped, so
// the operation is safe to replay.
func (p *Pipeline) CreateLeadFromPatient(ctx context.Context, patientID string) (*leads.Lead, error) {
	ctx, span := conversionTracer.Start(ctx, "conversion.create_lead_from_patient")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.patient_id", patientID))

	patient, err := p.patients.GetByID(ctx, patientID)
	if err != nil {
		return nil, err
	}

	_, err = p.clients.GetByPatientID(ctx, patientID)
	switch {
	case err == nil:
		p.logger.Info("reverse sync skipped, patient already linked", "patient_id", patientID)
		return nil, nil
	case !errors.Is(err, clients.ErrNotFound):
		return nil, err
	}

	lead := &leads.Lead{
		ID:     uuid.NewString(),
		Name:   patient.FullName,
		Phone:  patient.Phone,
		Email:  patient.Email,
		Notes:  "created from HMS patient record",
		Status: leads.StatusNew,
	}
	if err := lead.Validate(); err != nil {
		return nil, err
	}
	if err := p.leads.Create(ctx, lead); err != nil {
		span.RecordError(err)
		return nil, err
	}
	p.metrics.ObserveConversion("patient_to_lead", "ok")
	p.logger.Info("lead created from patient", "lead_id", lead.ID, "patient_id", patientID)
	return lead, nil
}

// UpdateLeadStatus applies a transition-checked status edit. Entry into the
// converted state is refused here; only ConvertLead sets it, through the
// repository's conditional write.
func (p *Pipeline) UpdateLeadStatus(ctx context.Context, leadID string, to leads.Status) (*leads.Lead, error) {
	if !leads.ValidStatus(to) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown lead status %q", to)
	}
	if to == leads.StatusConverted {
		return nil, ErrStatusReserved
	}

	lead, err := p.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if lead.Status == to {
		return lead, nil
	}
	if !leads.CanTransition(lead.Status, to) {
		return nil, apperr.Newf(apperr.KindValidation, "cannot move lead from %s to %s", lead.Status, to)
	}

	lead.Status = to
	if err := p.leads.Update(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// convertLeadToClient consumes the one-way guard and writes the client
// document. A failed client write leaves the lead converted; the record is
// incomplete, not doubled, and the error tells the operator which id to
// repair.
func (p *Pipeline) convertLeadToClient(ctx context.Context, leadID string) (*clients.Client, error) {
	lead, err := p.leads.GetByID(ctx, leadID)
	if err != nil {
		return nil, err
	}
	if !lead.CanConvertToClient() {
		return nil, leads.ErrNotConvertible
	}

	clientID := uuid.NewString()
	if err := p.leads.MarkConverted(ctx, leadID, clientID); err != nil {
		return nil, err
	}

	client := &clients.Client{
		ID:           clientID,
		Name:         lead.Name,
		Phone:        lead.Phone,
		Email:        lead.Email,
		SourceLeadID: lead.ID,
	}
	if err := p.clients.Create(ctx, client); err != nil {
		p.logger.Error("client write failed after lead guard consumed",
			"error", err, "lead_id", leadID, "client_id", clientID)
		return nil, fmt.Errorf("conversion: lead %s marked converted but client %s not written: %w", leadID, clientID, err)
	}

	p.logger.Info("lead converted", "lead_id", leadID, "client_id", clientID)
	return client, nil
}

func (p *Pipeline) createPatientForClient(ctx context.Context, client *clients.Client) (*patients.Patient, error) {
	patient := &patients.Patient{
		ID:          uuid.NewString(),
		FullName:    client.Name,
		Phone:       client.Phone,
		Email:       client.Email,
		CRMClientID: client.ID,
	}
	if err := p.patients.Create(ctx, patient); err != nil {
		return nil, err
	}
	if err := p.clients.LinkPatient(ctx, client.ID, patient.ID); err != nil {
		return nil, err
	}
	p.logger.Info("client linked to patient", "client_id", client.ID, "patient_id", patient.ID)
	return patient, nil
}

func (p *Pipeline) bookFirstVisit(ctx context.Context, res *Result, patientID string, opts Options, caller scheduling.Caller) {
	if p.guard == nil {
		res.Warnings = append(res.Warnings, "appointment not booked: scheduling unavailable")
		return
	}
	appt, err := p.guard.Create(ctx, scheduling.CreateRequest{
		PatientID: patientID,
		DoctorID:  opts.DoctorID,
		Date:      opts.Date,
		ClockTime: opts.ClockTime,
		Notes:     opts.Notes,
	}, caller)
	if err != nil {
		res.Warnings = append(res.Warnings, fmt.Sprintf("appointment not booked: %v", err))
		return
	}
	res.AppointmentID = appt.ID
}
