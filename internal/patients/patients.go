// Package patients stores the HMS-side clinical records. A patient may carry
// a crm_client_id back-reference mirroring Client.hms_patient_id from the
// other side.
package patients

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
)

var (
	// ErrNotFound is returned when a patient does not exist
	ErrNotFound = apperr.New(apperr.KindNotFound, "patient not found")

	// ErrInvalidName is returned when the name is missing
	ErrInvalidName = apperr.New(apperr.KindValidation, "patient name is required")
)

// Patient is the HMS clinical record.
type Patient struct {
	ID          string    `json:"id" dynamodbav:"id"`
	FullName    string    `json:"full_name" dynamodbav:"full_name"`
	Phone       string    `json:"phone" dynamodbav:"phone"`
	Email       string    `json:"email" dynamodbav:"email"`
	CRMClientID string    `json:"crm_client_id,omitempty" dynamodbav:"crm_client_id,omitempty"`
	CreatedAt   time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Validate checks the fields required before persisting a new patient.
func (p *Patient) Validate() error {
	if strings.TrimSpace(p.FullName) == "" {
		return ErrInvalidName
	}
	return nil
}

// Repository defines the patient storage operations the services need.
type Repository interface {
	Create(ctx context.Context, patient *Patient) error
	GetByID(ctx context.Context, id string) (*Patient, error)
	List(ctx context.Context) ([]*Patient, error)
}

// InMemoryRepository is a mutex-guarded map implementation used by tests and
// local development.
type InMemoryRepository struct {
	mu       sync.RWMutex
	patients map[string]*Patient
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{patients: make(map[string]*Patient)}
}

// Create stores a new patient.
func (r *InMemoryRepository) Create(ctx context.Context, patient *Patient) error {
	if err := patient.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if patient.CreatedAt.IsZero() {
		patient.CreatedAt = now
	}
	patient.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *patient
	r.patients[patient.ID] = &cp
	return nil
}

// GetByID retrieves a patient by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	patient, ok := r.patients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *patient
	return &cp, nil
}

// List returns every patient.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Patient, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Patient, 0, len(r.patients))
	for _, patient := range r.patients {
		cp := *patient
		out = append(out, &cp)
	}
	return out, nil
}
