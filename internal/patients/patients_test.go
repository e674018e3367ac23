package patients

import (
	"context"
	"errors"
	"testing"
)

func TestCreateRequiresName(t *testing.T) {
	repo := NewInMemoryRepository()
	err := repo.Create(context.Background(), &Patient{ID: "pat-1", FullName: "  "})
	if !errors.Is(err, ErrInvalidName) {
		t.Fatalf("expected ErrInvalidName, got %v", err)
	}
}

func TestCreateAndGet(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	p := &Patient{ID: "pat-1", FullName: "Ira Kovalenko", Phone: "+15550101"}
	if err := repo.Create(ctx, p); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, "pat-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.FullName != "Ira Kovalenko" {
		t.Fatalf("unexpected name %q", got.FullName)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at populated")
	}

	if _, err := repo.GetByID(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
