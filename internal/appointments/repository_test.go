package appointments

import (
	"context"
	"errors"
	"testing"
)

func TestInMemoryReserveSlotRejectsSecondHolder(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.ReserveSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-1"); err != nil {
		t.Fatalf("first reservation failed: %v", err)
	}
	err := repo.ReserveSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-2")
	if !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("expected ErrSlotTaken for second holder, got %v", err)
	}
	// Same appointment re-claiming its own slot is fine.
	if err := repo.ReserveSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-1"); err != nil {
		t.Fatalf("re-reservation by holder failed: %v", err)
	}
}

func TestInMemoryReleaseSlotOnlyByHolder(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	if err := repo.ReserveSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-1"); err != nil {
		t.Fatalf("reserve: %v", err)
	}
	// A non-holder release must not free the slot.
	if err := repo.ReleaseSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-2"); err != nil {
		t.Fatalf("release by non-holder: %v", err)
	}
	if err := repo.ReserveSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-3"); !errors.Is(err, ErrSlotTaken) {
		t.Fatalf("slot was freed by non-holder, got %v", err)
	}

	if err := repo.ReleaseSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-1"); err != nil {
		t.Fatalf("release by holder: %v", err)
	}
	if err := repo.ReserveSlot(ctx, "doc-1", "2025-09-10", "10:00", "appt-3"); err != nil {
		t.Fatalf("slot should be free after holder release, got %v", err)
	}
}

func TestInMemoryCreateDefaultsStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	appt := &Appointment{ID: "appt-1", PatientID: "pat-1", DoctorID: "doc-1", Date: "2025-09-10", ClockTime: "10:00"}
	if err := repo.Create(ctx, appt); err != nil {
		t.Fatalf("Create: %v", err)
	}
	got, err := repo.GetByID(ctx, "appt-1")
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != StatusUnconfirmed {
		t.Fatalf("expected default status unconfirmed, got %s", got.Status)
	}
	if got.CreatedAt.IsZero() {
		t.Fatal("expected created_at populated")
	}
}

func TestInMemoryUpdatePreservesCreatedAt(t *testing.T) {
	repo := NewInMemoryRepository()
	ctx := context.Background()

	appt := &Appointment{ID: "appt-1", PatientID: "pat-1", DoctorID: "doc-1", Date: "2025-09-10", ClockTime: "10:00"}
	if err := repo.Create(ctx, appt); err != nil {
		t.Fatalf("Create: %v", err)
	}
	created, _ := repo.GetByID(ctx, "appt-1")

	updated := *created
	updated.Status = StatusConfirmed
	if err := repo.Update(ctx, &updated); err != nil {
		t.Fatalf("Update: %v", err)
	}
	got, _ := repo.GetByID(ctx, "appt-1")
	if got.Status != StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", got.Status)
	}
	if !got.CreatedAt.Equal(created.CreatedAt) {
		t.Fatal("created_at changed on update")
	}
}

func TestInMemoryUpdateMissingIsNotFound(t *testing.T) {
	repo := NewInMemoryRepository()
	err := repo.Update(context.Background(), &Appointment{ID: "ghost"})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
