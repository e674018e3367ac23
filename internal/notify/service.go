package notify

import (
	"context"
	"fmt"

	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Service sends clinic notifications. Every send is best-effort from the
// caller's point of view: a failed email never fails the booking or
// conversion that triggered it.
type Service struct {
	email  EmailSender
	logger *logging.Logger
}

// NewService creates a notification service.
func NewService(email EmailSender, logger *logging.Logger) *Service {
	if logger == nil {
		logger = logging.Default()
	}
	return &Service{email: email, logger: logger}
}

// AppointmentDetails carries what the confirmation email needs.
type AppointmentDetails struct {
	PatientName  string
	PatientEmail string
	DoctorName   string
	Date         string
	ClockTime    string
}

// NotifyAppointmentBooked emails the patient a booking confirmation.
func (s *Service) NotifyAppointmentBooked(ctx context.Context, d AppointmentDetails) error {
	if s.email == nil || d.PatientEmail == "" {
		return nil
	}

	subject := fmt.Sprintf("Appointment confirmed for %s at %s", d.Date, d.ClockTime)
	body := fmt.Sprintf(`Hi %s,

Your appointment with %s is confirmed.

Date: %s
Time: %s

If you need to reschedule, please call the front desk.

BrightSmile Dental`, d.PatientName, d.DoctorName, d.Date, d.ClockTime)

	msg := EmailMessage{
		To:      d.PatientEmail,
		ToName:  d.PatientName,
		Subject: subject,
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: appointment confirmation failed", "error", err, "to", d.PatientEmail)
		return fmt.Errorf("notify: appointment confirmation: %w", err)
	}
	return nil
}

// NotifyLeadConverted emails the new client a welcome message.
func (s *Service) NotifyLeadConverted(ctx context.Context, name, email string) error {
	if s.email == nil || email == "" {
		return nil
	}

	body := fmt.Sprintf(`Hi %s,

Welcome to BrightSmile Dental. Your patient record is ready and our
front desk will reach out to schedule your first visit.

BrightSmile Dental`, name)

	msg := EmailMessage{
		To:      email,
		ToName:  name,
		Subject: "Welcome to BrightSmile Dental",
		Body:    body,
	}
	if err := s.email.Send(ctx, msg); err != nil {
		s.logger.Error("notify: welcome email failed", "error", err, "to", email)
		return fmt.Errorf("notify: welcome email: %w", err)
	}
	return nil
}
