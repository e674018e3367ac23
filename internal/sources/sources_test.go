package sources

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryUpdateCounters(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.Create(ctx, &Source{ID: "src-1", Name: "Google Ads", TotalSpent: 1500}); err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := repo.UpdateCounters(ctx, "src-1", Counters{LeadsCount: 40, ConversionCount: 9}); err != nil {
		t.Fatalf("UpdateCounters: %v", err)
	}
	got, err := repo.GetByID(ctx, "src-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.LeadsCount != 40 || got.ConversionCount != 9 {
		t.Fatalf("counters not applied: %+v", got)
	}
	if got.TotalSpent != 1500 {
		t.Fatalf("TotalSpent must be untouched, got %v", got.TotalSpent)
	}
}

func TestInMemoryUpdateCountersMissing(t *testing.T) {
	repo := NewInMemoryRepository()
	err := repo.UpdateCounters(context.Background(), "ghost", Counters{})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
