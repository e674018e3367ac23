// Package sources stores CRM acquisition channels. The per-source counters
// are a derived view recomputed wholesale by the statistics pass, never
// incremented in place.
package sources

import (
	"context"
	"sync"
	"time"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
)

// ErrNotFound is returned when a source does not exist.
var ErrNotFound = apperr.New(apperr.KindNotFound, "source not found")

// Source is a CRM acquisition channel (ads campaign, referral, walk-in).
type Source struct {
	ID              string    `json:"id" dynamodbav:"id"`
	Name            string    `json:"name" dynamodbav:"name"`
	Channel         string    `json:"channel,omitempty" dynamodbav:"channel,omitempty"`
	TotalSpent      float64   `json:"total_spent" dynamodbav:"total_spent"`
	LeadsCount      int       `json:"leads_count" dynamodbav:"leads_count"`
	ConversionCount int       `json:"conversion_count" dynamodbav:"conversion_count"`
	CreatedAt       time.Time `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt       time.Time `json:"updated_at" dynamodbav:"updated_at"`
}

// Counters is the recomputed aggregate written back onto a source.
type Counters struct {
	LeadsCount      int
	ConversionCount int
}

// Repository defines the source storage operations the statistics pass needs.
type Repository interface {
	Create(ctx context.Context, source *Source) error
	GetByID(ctx context.Context, id string) (*Source, error)
	// UpdateCounters overwrites the derived counters wholesale.
	UpdateCounters(ctx context.Context, id string, counters Counters) error
	List(ctx context.Context) ([]*Source, error)
}

// InMemoryRepository is a mutex-guarded map implementation used by tests and
// local development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	sources map[string]*Source
}

// NewInMemoryRepository creates an empty in-memory repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{sources: make(map[string]*Source)}
}

// Create stores a new source.
func (r *InMemoryRepository) Create(ctx context.Context, source *Source) error {
	now := time.Now().UTC()
	if source.CreatedAt.IsZero() {
		source.CreatedAt = now
	}
	source.UpdatedAt = now

	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *source
	r.sources[source.ID] = &cp
	return nil
}

// GetByID retrieves a source by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	source, ok := r.sources[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *source
	return &cp, nil
}

// UpdateCounters overwrites the derived counters.
func (r *InMemoryRepository) UpdateCounters(ctx context.Context, id string, counters Counters) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	source, ok := r.sources[id]
	if !ok {
		return ErrNotFound
	}
	source.LeadsCount = counters.LeadsCount
	source.ConversionCount = counters.ConversionCount
	source.UpdatedAt = time.Now().UTC()
	return nil
}

// List returns every source.
func (r *InMemoryRepository) List(ctx context.Context) ([]*Source, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*Source, 0, len(r.sources))
	for _, source := range r.sources {
		cp := *source
		out = append(out, &cp)
	}
	return out, nil
}
