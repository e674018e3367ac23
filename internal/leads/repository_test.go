package leads

import (
	"context"
	"errors"
	"testing"
)

func seedLead(t *testing.T, repo *InMemoryRepository, lead Lead) *Lead {
	t.Helper()
	if lead.ID == "" {
		lead.ID = "lead-1"
	}
	if lead.Name == "" {
		lead.Name = "Dana"
	}
	if lead.Phone == "" && lead.Email == "" {
		lead.Phone = "+15550100"
	}
	if err := repo.Create(context.Background(), &lead); err != nil {
		t.Fatalf("seed lead: %v", err)
	}
	return &lead
}

func TestInMemoryMarkConvertedOnce(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLead(t, repo, Lead{ID: "lead-1", Status: StatusQualified})

	if err := repo.MarkConverted(context.Background(), "lead-1", "client-1"); err != nil {
		t.Fatalf("first conversion should succeed: %v", err)
	}

	lead, err := repo.GetByID(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if lead.Status != StatusConverted || lead.ConvertedToClientID != "client-1" {
		t.Fatalf("unexpected lead after conversion: %+v", lead)
	}

	if err := repo.MarkConverted(context.Background(), "lead-1", "client-2"); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("second conversion should fail with ErrNotConvertible, got %v", err)
	}
}

func TestInMemoryMarkConvertedTerminalState(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLead(t, repo, Lead{ID: "lead-1", Status: StatusRejected})

	if err := repo.MarkConverted(context.Background(), "lead-1", "client-1"); !errors.Is(err, ErrNotConvertible) {
		t.Fatalf("rejected lead should not convert, got %v", err)
	}
}

func TestInMemoryMarkConvertedUnknownLead(t *testing.T) {
	repo := NewInMemoryRepository()
	if err := repo.MarkConverted(context.Background(), "missing", "client-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestInMemoryUpdateCannotTouchBackReference(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLead(t, repo, Lead{ID: "lead-1", Status: StatusNew})

	edited := Lead{ID: "lead-1", Name: "Dana Edited", Phone: "+15550100", Status: StatusContacted, ConvertedToClientID: "client-other"}
	if err := repo.Update(context.Background(), &edited); err != nil {
		t.Fatalf("Update: %v", err)
	}

	lead, _ := repo.GetByID(context.Background(), "lead-1")
	if lead.ConvertedToClientID != "" {
		t.Fatalf("generic update wrote conversion back-reference: %s", lead.ConvertedToClientID)
	}
	if lead.Name != "Dana Edited" {
		t.Fatalf("expected name edit to persist, got %s", lead.Name)
	}
}

func TestInMemoryStaleEditCannotRevertConversion(t *testing.T) {
	repo := NewInMemoryRepository()
	seedLead(t, repo, Lead{ID: "lead-1", Status: StatusQualified})

	stale, err := repo.GetByID(context.Background(), "lead-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if err := repo.MarkConverted(context.Background(), "lead-1", "client-9"); err != nil {
		t.Fatalf("MarkConverted: %v", err)
	}

	// An edit based on the pre-conversion read lands after the conversion.
	stale.Status = StatusInProgress
	if err := repo.Update(context.Background(), stale); !errors.Is(err, ErrConverted) {
		t.Fatalf("expected ErrConverted for stale edit, got %v", err)
	}

	lead, _ := repo.GetByID(context.Background(), "lead-1")
	if lead.Status != StatusConverted || lead.ConvertedToClientID != "client-9" {
		t.Fatalf("conversion state reverted: %+v", lead)
	}
}

func TestInMemoryDefaultsStatusNew(t *testing.T) {
	repo := NewInMemoryRepository()
	lead := seedLead(t, repo, Lead{ID: "lead-1"})
	stored, _ := repo.GetByID(context.Background(), lead.ID)
	if stored.Status != StatusNew {
		t.Fatalf("expected default status new, got %s", stored.Status)
	}
	if stored.CreatedAt.IsZero() || stored.UpdatedAt.IsZero() {
		t.Fatal("expected timestamps to be populated")
	}
}
