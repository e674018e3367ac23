// Package doctors exposes the read surface the scheduling guard needs.
// Doctor administration itself lives in the staff CRUD service.
package doctors

import (
	"context"
	"sync"
	"time"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
)

// ErrNotFound is returned when a doctor does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "doctor not found")

// Doctor is a clinic practitioner whose calendar the guard protects.
type Doctor struct {
	ID        string    `json:"id" dynamodbav:"id"`
	FullName  string    `json:"full_name" dynamodbav:"full_name"`
	Specialty string    `json:"specialty,omitempty" dynamodbav:"specialty,omitempty"`
	Active    bool      `json:"active" dynamodbav:"active"`
	CreatedAt time.Time `json:"created_at" dynamodbav:"created_at"`
}

// Repository defines doctor lookups.
type Repository interface {
	GetByID(ctx context.Context, id string) (*Doctor, error)
}

// InMemoryRepository is a map implementation used by tests and local
// development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	doctors map[string]*Doctor
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{doctors: make(map[string]*Doctor)}
}

// Put stores a doctor record.
func (r *InMemoryRepository) Put(doctor *Doctor) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *doctor
	r.doctors[doctor.ID] = &cp
}

// GetByID retrieves a doctor by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Doctor, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	doctor, ok := r.doctors[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *doctor
	return &cp, nil
}
