package deals

import (
	"context"
	"sync"
	"time"
)

// Repository defines the deal storage operations the reconciler and the
// statistics pass need. The reconciler is the only writer.
type Repository interface {
	Create(ctx context.Context, deal *Deal) error
	GetByID(ctx context.Context, id string) (*Deal, error)
	// GetByTreatmentPlanID resolves a deal through the reconciliation
	// idempotency key. ErrNotFound when the plan has no deal yet.
	GetByTreatmentPlanID(ctx context.Context, planID string) (*Deal, error)
	Update(ctx context.Context, deal *Deal) error
	Delete(ctx context.Context, id string) error
	// ListWonByClient feeds the full revenue recompute.
	ListWonByClient(ctx context.Context, clientID string) ([]*Deal, error)
	List(ctx context.Context) ([]*Deal, error)
}

// InMemoryRepository is a mutex-guarded map implementation used by tests and
// local development.
type InMemoryRepository struct {
	mu    sync.RWMutex
	deals map[string]*Deal
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{deals: make(map[string]*Deal)}
}

// Create stores a new deal, refusing a second deal for the same plan.
func (r *InMemoryRepository) Create(ctx context.Context, deal *Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deals[deal.ID]; ok {
		return ErrDuplicatePlan
	}
	if deal.HMSTreatmentPlanID != "" {
		for _, existing := range r.deals {
			if existing.HMSTreatmentPlanID == deal.HMSTreatmentPlanID {
				return ErrDuplicatePlan
			}
		}
	}
	now := time.Now().UTC()
	if deal.CreatedAt.IsZero() {
		deal.CreatedAt = now
	}
	deal.UpdatedAt = now
	cp := *deal
	r.deals[deal.ID] = &cp
	return nil
}

// GetByID retrieves a deal by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	deal, ok := r.deals[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *deal
	return &cp, nil
}

// GetByTreatmentPlanID scans for the plan's deal.
func (r *InMemoryRepository) GetByTreatmentPlanID(ctx context.Context, planID string) (*Deal, error) {
	if planID == "" {
		return nil, ErrNotFound
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, deal := range r.deals {
		if deal.HMSTreatmentPlanID == planID {
			cp := *deal
			return &cp, nil
		}
	}
	return nil, ErrNotFound
}

// Update overwrites an existing deal.
func (r *InMemoryRepository) Update(ctx context.Context, deal *Deal) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	existing, ok := r.deals[deal.ID]
	if !ok {
		return ErrNotFound
	}
	cp := *deal
	cp.CreatedAt = existing.CreatedAt
	cp.UpdatedAt = time.Now().UTC()
	r.deals[deal.ID] = &cp
	return nil
}

// Delete removes a deal.
func (r *InMemoryRepository) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.deals[id]; !ok {
		return ErrNotFound
	}
	delete(r.deals, id)
	return nil
}

// ListWonByClient returns the client's won deals.
func (r *InMemoryRepository) ListWonByClient(ctx context.Context, clientID string) ([]*Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []*Deal
	for _, deal := range r.deals {
		if deal.ClientID == clientID && deal.Status == StatusWon {
			cp := *deal
			out = append(out, &cp)
		}
	}
	return out, nil
}

// List returns every deal.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Deal, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Deal, 0, len(r.deals))
	for _, deal := range r.deals {
		cp := *deal
		out = append(out, &cp)
	}
	return out, nil
}
