package clients

import (
	"context"
	"sync"
	"time"
)

// Repository defines the client storage operations the services need.
type Repository interface {
	Create(ctx context.Context, client *Client) error
	GetByID(ctx context.Context, id string) (*Client, error)
	// GetByPatientID resolves the client owning an HMS patient via the
	// hms_patient_id back-reference. ErrNotFound when no client is linked;
	// the reconciler treats that as a legitimate steady state.
	GetByPatientID(ctx context.Context, patientID string) (*Client, error)
	// LinkPatient atomically records the HMS back-reference, failing with
	// ErrAlreadyLinked if one is already present.
	LinkPatient(ctx context.Context, clientID, patientID string) error
	// UpdateRevenue overwrites the derived revenue aggregate wholesale.
	UpdateRevenue(ctx context.Context, clientID string, summary RevenueSummary) error
	List(ctx context.Context) ([]*Client, error)
}

// InMemoryRepository is a mutex-guarded map implementation used by tests and
// local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	clients map[string]*Client
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{clients: make(map[string]*Client)}
}

// Create stores a new client.
func (r *InMemoryRepository) Create(ctx context.Context, client *Client) error {
	if err := client.Validate(); err != nil {
		return err
	}
	now := time.Now().UTC()
	if client.CreatedAt.IsZero() {
		client.CreatedAt = now
	}
	client.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *client
	r.clients[client.ID] = &cp
	return nil
}

// GetByID retrieves a client by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	client, ok := r.clients[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *client
	return &cp, nil
}

// GetByPatientID scans for the client holding the patient back-reference.
func (r *InMemoryRepository) GetByPatientID(ctx context.Context, patientID string) (*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, client := range r.clients {
		if client.HMSPatientID == patientID && patientID != "" {
			cp := *client
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// LinkPatient performs the compare-and-set link under the lock, mirroring
// the conditional-write semantics of the DynamoDB implementation.
func (r *InMemoryRepository) LinkPatient(ctx context.Context, clientID, patientID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	if client.HMSPatientID != "" {
		return ErrAlreadyLinked
	}
	client.HMSPatientID = patientID
	client.IsHMSPatient = true
	client.UpdatedAt = time.Now().UTC()
	return nil
}

// UpdateRevenue overwrites the derived aggregate.
func (r *InMemoryRepository) UpdateRevenue(ctx context.Context, clientID string, summary RevenueSummary) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	client, ok := r.clients[clientID]
	if !ok {
		return ErrNotFound
	}
	client.TotalRevenue = summary.TotalRevenue
	client.TotalDeals = summary.TotalDeals
	client.LastDealDate = summary.LastDealDate
	client.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns every client.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Client, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Client, 0, len(r.clients))
	for _, client := range r.clients {
		cp := *client
		out = append(out, &cp)
	}
	return out, nil
}
