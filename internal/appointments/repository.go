package appointments

import (
	"context"
	"sync"
	"time"
)

// Repository defines the appointment storage operations the scheduling guard
// needs. Slot reservation is a separate write so the uniqueness invariant
// lives in storage, not in a read-then-check in the service.
type Repository interface {
	Create(ctx context.Context, appt *Appointment) error
	GetByID(ctx context.Context, id string) (*Appointment, error)
	Update(ctx context.Context, appt *Appointment) error
	// ReserveSlot atomically claims (doctor, date, time) for the given
	// appointment. ErrSlotTaken when another appointment already holds it.
	// Reserving a slot the same appointment already holds is a no-op.
	ReserveSlot(ctx context.Context, doctorID, date, clockTime, apptID string) error
	// ReleaseSlot frees the slot if (and only if) this appointment holds
	// it. Releasing an unheld slot is a no-op.
	ReleaseSlot(ctx context.Context, doctorID, date, clockTime, apptID string) error
	List(ctx context.Context) ([]*Appointment, error)
}

// InMemoryRepository is a mutex-guarded implementation whose slot map mirrors
// the conditional-write semantics of the DynamoDB slot table.
type InMemoryRepository struct {
	mu           sync.RWMutex
	appointments map[string]*Appointment
	slots        map[string]string // slot key -> appointment id
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		appointments: make(map[string]*Appointment),
		slots:        make(map[string]string),
	}
}

// Create stores a new appointment.
func (r *InMemoryRepository) Create(ctx context.Context, appt *Appointment) error {
	now := time.Now().UTC()
	if appt.CreatedAt.IsZero() {
		appt.CreatedAt = now
	}
	appt.UpdatedAt = now
	if appt.Status == "" {
		appt.Status = StatusUnconfirmed
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *appt
	r.appointments[appt.ID] = &cp
	return nil
}

// GetByID retrieves an appointment by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	appt, ok := r.appointments[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *appt
	return &cp, nil
}

// Update overwrites an existing appointment.
func (r *InMemoryRepository) Update(ctx context.Context, appt *Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.appointments[appt.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *appt
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.appointments[appt.ID] = &cp
	return nil
}

// ReserveSlot claims the slot under the lock.
func (r *InMemoryRepository) ReserveSlot(ctx context.Context, doctorID, date, clockTime, apptID string) error {
	key := SlotKey(doctorID, date, clockTime)
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, ok := r.slots[key]; ok && holder != apptID {
		return ErrSlotTaken
	}
	r.slots[key] = apptID
	return nil
}

// ReleaseSlot frees the slot if this appointment holds it.
func (r *InMemoryRepository) ReleaseSlot(ctx context.Context, doctorID, date, clockTime, apptID string) error {
	key := SlotKey(doctorID, date, clockTime)
	r.mu.Lock()
	defer r.mu.Unlock()
	if holder, ok := r.slots[key]; ok && holder == apptID {
		delete(r.slots, key)
	}
	return nil
}

// List returns every appointment.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Appointment, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Appointment, 0, len(r.appointments))
	for _, appt := range r.appointments {
		cp := *appt
		out = append(out, &cp)
	}
	return out, nil
}
