// Package treatmentplans stores the HMS billing documents whose payment
// state drives CRM deal reconciliation.
package treatmentplans

import (
	"context"
	"sync"
	"time"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
)

// PaymentStatus is the billing state of a treatment plan.
type PaymentStatus string

const (
	PaymentUnpaid        PaymentStatus = "unpaid"
	PaymentPartiallyPaid PaymentStatus = "partially_paid"
	PaymentPaid          PaymentStatus = "paid"
	PaymentOverdue       PaymentStatus = "overdue"
	PaymentCancelled     PaymentStatus = "cancelled"
)

// ValidPaymentStatus reports whether s is a known payment status.
func ValidPaymentStatus(s PaymentStatus) bool {
	switch s {
	case PaymentUnpaid, PaymentPartiallyPaid, PaymentPaid, PaymentOverdue, PaymentCancelled:
		return true
	}
	return false
}

// ErrNotFound is returned when a treatment plan does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "treatment plan not found")

// TreatmentPlan aggregates services, cost and payment state for a patient.
type TreatmentPlan struct {
	ID              string        `json:"id" dynamodbav:"id"`
	PatientID       string        `json:"patient_id" dynamodbav:"patient_id"`
	Title           string        `json:"title" dynamodbav:"title"`
	TotalCost       float64       `json:"total_cost" dynamodbav:"total_cost"`
	PaidAmount      float64       `json:"paid_amount" dynamodbav:"paid_amount"`
	PaymentStatus   PaymentStatus `json:"payment_status" dynamodbav:"payment_status"`
	Status          string        `json:"status,omitempty" dynamodbav:"status,omitempty"`
	ExecutionStatus string        `json:"execution_status,omitempty" dynamodbav:"execution_status,omitempty"`
	CreatedAt       time.Time     `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at" dynamodbav:"updated_at"`
}

// Repository defines the treatment-plan storage operations the reconciler
// needs.
type Repository interface {
	Create(ctx context.Context, plan *TreatmentPlan) error
	GetByID(ctx context.Context, id string) (*TreatmentPlan, error)
	Update(ctx context.Context, plan *TreatmentPlan) error
	// ListByPaymentStatus feeds the batch re-sync job.
	ListByPaymentStatus(ctx context.Context, status PaymentStatus) ([]*TreatmentPlan, error)
	List(ctx context.Context) ([]*TreatmentPlan, error)
}

// InMemoryRepository is a mutex-guarded map implementation used by tests and
// local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	plans map[string]*TreatmentPlan
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{plans: make(map[string]*TreatmentPlan)}
}

// Create stores a new treatment plan.
func (r *InMemoryRepository) Create(ctx context.Context, plan *TreatmentPlan) error {
	now := time.Now().UTC()
	if plan.CreatedAt.IsZero() {
		plan.CreatedAt = now
	}
	plan.UpdatedAt = now
	if plan.PaymentStatus == "" {
		plan.PaymentStatus = PaymentUnpaid
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *plan
	r.plans[plan.ID] = &cp
	return nil
}

// GetByID retrieves a treatment plan by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*TreatmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	plan, ok := r.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *plan
	return &cp, nil
}

// Update overwrites an existing treatment plan.
func (r *InMemoryRepository) Update(ctx context.Context, plan *TreatmentPlan) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.plans[plan.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *plan
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.plans[plan.ID] = &cp
	return nil
}

// ListByPaymentStatus returns every plan in the given payment state.
func (r *InMemoryRepository) ListByPaymentStatus(ctx context.Context, status PaymentStatus) ([]*TreatmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*TreatmentPlan
	for _, plan := range r.plans {
		if plan.PaymentStatus == status {
			cp := *plan
			out = append(out, &cp)
		}
	}
	return out, nil
}

// List returns every treatment plan.
func (r *InMemoryRepository) List(ctx context.Context) ([]*TreatmentPlan, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*TreatmentPlan, 0, len(r.plans))
	for _, plan := range r.plans {
		cp := *plan
		out = append(out, &cp)
	}
	return out, nil
}
