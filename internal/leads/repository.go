package leads

import (
	"context"
	"sync"
	"time"
)

// Repository defines the lead storage operations the services need.
type Repository interface {
	Create(ctx context.Context, lead *Lead) error
	GetByID(ctx context.Context, id string) (*Lead, error)
	// Update persists generic field edits. It never touches the conversion
	// back-reference, and it rejects converted leads with ErrConverted;
	// conversion state moves only through MarkConverted.
	Update(ctx context.Context, lead *Lead) error
	// MarkConverted atomically flips the lead to converted and records the
	// client back-reference, but only while the guard is still open
	// (convertible status, no converted_to_client_id). A lost race or an
	// already-converted lead yields ErrNotConvertible.
	MarkConverted(ctx context.Context, leadID, clientID string) error
	List(ctx context.Context) ([]*Lead, error)
}

// InMemoryRepository is a mutex-guarded map implementation used by tests and
// local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	leads map[string]*Lead
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{leads: make(map[string]*Lead)}
}

// Create stores a new lead.
func (r *InMemoryRepository) Create(ctx context.Context, lead *Lead) error {
	if err := lead.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if lead.CreatedAt.IsZero() {
		lead.CreatedAt = now
	}
	lead.UpdatedAt = now
	if lead.Status == "" {
		lead.Status = StatusNew
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *lead
	r.leads[lead.ID] = &cp
	return nil
}

// GetByID retrieves a lead by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	lead, ok := r.leads[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *lead
	return &cp, nil
}

// Update overwrites an existing lead's mutable fields.
func (r *InMemoryRepository) Update(ctx context.Context, lead *Lead) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.leads[lead.ID]
	if !ok {
		return ErrNotFound
	}
	// Converted is terminal: a stale edit landing after MarkConverted must
	// not revert the status while the back-reference stays set.
	if existing.Status == StatusConverted {
		return ErrConverted
	}
	cp := *lead
	// The conversion back-reference only moves through MarkConverted.
	cp.ConvertedToClientID = existing.ConvertedToClientID
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.leads[lead.ID] = &cp
	return nil
}

// MarkConverted performs the compare-and-set conversion under the lock,
// mirroring the conditional-write semantics of the DynamoDB implementation.
func (r *InMemoryRepository) MarkConverted(ctx context.Context, leadID, clientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	lead, ok := r.leads[leadID]
	if !ok {
		return ErrNotFound
	}
	if !lead.CanConvertToClient() {
		return ErrNotConvertible
	}
	lead.Status = StatusConverted
	lead.ConvertedToClientID = clientID
	lead.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns every lead. The statistics pass scans this wholesale.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Lead, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Lead, 0, len(r.leads))
	for _, lead := range r.leads {
		cp := *lead
		out = append(out, &cp)
	}
	return out, nil
}
