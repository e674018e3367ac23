package deals

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestIDForTreatmentPlanIsStable(t *testing.T) {
	a := IDForTreatmentPlan("plan-1")
	b := IDForTreatmentPlan("plan-1")
	if a != b {
		t.Fatalf("ids for the same plan must match: %s vs %s", a, b)
	}
	if a == IDForTreatmentPlan("plan-2") {
		t.Fatal("different plans must get different ids")
	}
}

func TestCreateRefusesSecondDealForPlan(t *testing.T) {
	repo := NewInMemoryRepository()
	first := &Deal{ID: IDForTreatmentPlan("plan-1"), ClientID: "client-1", Status: StatusWon, HMSTreatmentPlanID: "plan-1", Amount: 15000}
	if err := repo.Create(context.Background(), first); err != nil {
		t.Fatalf("first create: %v", err)
	}

	dup := &Deal{ID: IDForTreatmentPlan("plan-1"), ClientID: "client-1", Status: StatusWon, HMSTreatmentPlanID: "plan-1", Amount: 15000}
	if err := repo.Create(context.Background(), dup); !errors.Is(err, ErrDuplicatePlan) {
		t.Fatalf("expected ErrDuplicatePlan, got %v", err)
	}
}

func TestGetByTreatmentPlanID(t *testing.T) {
	repo := NewInMemoryRepository()
	deal := &Deal{ID: IDForTreatmentPlan("plan-9"), ClientID: "client-1", Status: StatusWon, HMSTreatmentPlanID: "plan-9"}
	if err := repo.Create(context.Background(), deal); err != nil {
		t.Fatalf("create: %v", err)
	}

	got, err := repo.GetByTreatmentPlanID(context.Background(), "plan-9")
	if err != nil {
		t.Fatalf("GetByTreatmentPlanID: %v", err)
	}
	if got.ID != deal.ID {
		t.Fatalf("resolved wrong deal: %s", got.ID)
	}

	if _, err := repo.GetByTreatmentPlanID(context.Background(), "plan-none"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := repo.GetByTreatmentPlanID(context.Background(), ""); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty plan id must resolve nothing, got %v", err)
	}
}

func TestListWonByClientFiltersStatus(t *testing.T) {
	repo := NewInMemoryRepository()
	seed := []*Deal{
		{ID: "d1", ClientID: "client-1", Status: StatusWon, Amount: 100},
		{ID: "d2", ClientID: "client-1", Status: StatusLost, Amount: 200},
		{ID: "d3", ClientID: "client-2", Status: StatusWon, Amount: 300},
		{ID: "d4", ClientID: "client-1", Status: StatusWon, Amount: 400},
	}
	for _, d := range seed {
		if err := repo.Create(context.Background(), d); err != nil {
			t.Fatalf("create %s: %v", d.ID, err)
		}
	}

	won, err := repo.ListWonByClient(context.Background(), "client-1")
	if err != nil {
		t.Fatalf("ListWonByClient: %v", err)
	}
	if len(won) != 2 {
		t.Fatalf("expected 2 won deals, got %d", len(won))
	}
	var total float64
	for _, d := range won {
		total += d.Amount
	}
	if total != 500 {
		t.Fatalf("expected won amounts 100+400, got %v", total)
	}
}

func TestEffectiveWonTime(t *testing.T) {
	created := time.Date(2025, 8, 1, 0, 0, 0, 0, time.UTC)
	won := time.Date(2025, 9, 1, 0, 0, 0, 0, time.UTC)

	deal := Deal{CreatedAt: created}
	if !deal.EffectiveWonTime().Equal(created) {
		t.Fatal("expected created_at fallback")
	}
	deal.WonAt = &won
	if !deal.EffectiveWonTime().Equal(won) {
		t.Fatal("expected won_at to take precedence")
	}
}

func TestDeleteRemovesDeal(t *testing.T) {
	repo := NewInMemoryRepository()
	deal := &Deal{ID: "d1", ClientID: "client-1", Status: StatusWon}
	if err := repo.Create(context.Background(), deal); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := repo.Delete(context.Background(), "d1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := repo.GetByID(context.Background(), "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected deal gone, got %v", err)
	}
	if err := repo.Delete(context.Background(), "d1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("double delete should be ErrNotFound, got %v", err)
	}
}
