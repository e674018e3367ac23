// Package reconcile keeps CRM deal and revenue records consistent with HMS
// treatment plan payments. Every operation is a full recompute or an
// idempotent upsert, so replaying a sync never drifts the aggregates.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/clients"
	"github.com/brightsmile-dental/clinic-platform/internal/deals"
	"github.com/brightsmile-dental/clinic-platform/internal/observability/metrics"
	"github.com/brightsmile-dental/clinic-platform/internal/treatmentplans"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Actions reported in sync results and metrics.
const (
	ActionDealCreated = "deal_created"
	ActionDealUpdated = "deal_updated"
	ActionDealDeleted = "deal_deleted"
	ActionNoop        = "noop"
	ActionSkipped     = "skipped"
)

// SyncResult reports what one treatment plan sync did.
type SyncResult struct {
	Synced   bool    `json:"synced"`
	Message  string  `json:"message"`
	Action   string  `json:"action,omitempty"`
	DealID   string  `json:"deal_id,omitempty"`
	ClientID string  `json:"client_id,omitempty"`
	Amount   float64 `json:"amount,omitempty"`
}

// BatchResult reports a sweep over every paid plan.
type BatchResult struct {
	Message     string   `json:"message"`
	SyncedCount int      `json:"synced_count"`
	TotalPlans  int      `json:"total_plans"`
	Errors      []string `json:"errors,omitempty"`
}

// Reconciler derives CRM deals and client revenue from treatment plan
// payment state. The plan id is the idempotency key: a plan maps to at most
// one deal, and client revenue is always recomputed from the full won-deal
// set rather than adjusted incrementally.
type Reconciler struct {
	plans   treatmentplans.Repository
	deals   deals.Repository
	clients clients.Repository
	metrics *metrics.SyncMetrics
	logger  *logging.Logger
	tracer  trace.Tracer
}

// NewReconciler constructs the revenue reconciler.
func NewReconciler(planRepo treatmentplans.Repository, dealRepo deals.Repository, clientRepo clients.Repository, m *metrics.SyncMetrics, logger *logging.Logger) *Reconciler {
	if planRepo == nil || dealRepo == nil || clientRepo == nil {
		panic("reconcile: repositories required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Reconciler{
		plans:   planRepo,
		deals:   dealRepo,
		clients: clientRepo,
		metrics: m,
		logger:  logger,
		tracer:  otel.Tracer("clinic.internal.reconcile"),
	}
}

// PlanPayload is the payment state the HMS billing side pushes.
type PlanPayload struct {
	TreatmentPlanID string                       `json:"treatment_plan_id"`
	PatientID       string                       `json:"patient_id"`
	PaymentStatus   treatmentplans.PaymentStatus `json:"payment_status"`
	PaidAmount      float64                      `json:"paid_amount"`
	TotalCost       float64                      `json:"total_cost"`
	Title           string                       `json:"plan_title"`
}

// SyncPlanState mirrors the pushed payment state into the treatment plan
// document and then reconciles it. The mirror write keeps the store the
// single source the batch sweep and the statistics pass read from.
func (r *Reconciler) SyncPlanState(ctx context.Context, p PlanPayload) (*SyncResult, error) {
	if !treatmentplans.ValidPaymentStatus(p.PaymentStatus) {
		return nil, apperr.Newf(apperr.KindValidation, "unknown payment status %q", p.PaymentStatus)
	}

	plan, err := r.plans.GetByID(ctx, p.TreatmentPlanID)
	switch {
	case errors.Is(err, treatmentplans.ErrNotFound):
		plan = &treatmentplans.TreatmentPlan{
			ID:            p.TreatmentPlanID,
			PatientID:     p.PatientID,
			Title:         p.Title,
			TotalCost:     p.TotalCost,
			PaidAmount:    p.PaidAmount,
			PaymentStatus: p.PaymentStatus,
		}
		if err := r.plans.Create(ctx, plan); err != nil {
			return nil, fmt.Errorf("reconcile: mirror plan %s: %w", p.TreatmentPlanID, err)
		}
	case err != nil:
		return nil, err
	default:
		plan.PatientID = p.PatientID
		plan.Title = p.Title
		plan.TotalCost = p.TotalCost
		plan.PaidAmount = p.PaidAmount
		plan.PaymentStatus = p.PaymentStatus
		if err := r.plans.Update(ctx, plan); err != nil {
			return nil, fmt.Errorf("reconcile: mirror plan %s: %w", p.TreatmentPlanID, err)
		}
	}

	return r.SyncTreatmentPlanPayment(ctx, plan.ID)
}

// SyncTreatmentPlanPayment reconciles one plan. Paid plans get a won deal
// (created or refreshed), plans no longer paid lose their deal, and in both
// cases the owning client's revenue is recomputed from scratch.
func (r *Reconciler) SyncTreatmentPlanPayment(ctx context.Context, planID string) (*SyncResult, error) {
	ctx, span := r.tracer.Start(ctx, "reconcile.sync_plan")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.treatment_plan_id", planID))
	start := time.Now()

	plan, err := r.plans.GetByID(ctx, planID)
	if err != nil {
		return nil, err
	}

	client, err := r.clients.GetByPatientID(ctx, plan.PatientID)
	if errors.Is(err, clients.ErrNotFound) {
		// A patient with no CRM presence is a legitimate steady state,
		// not a sync failure.
		r.metrics.ObserveReconcile(ActionSkipped)
		return &SyncResult{
			Synced:  false,
			Message: "patient has no linked CRM client, nothing to reconcile",
			Action:  ActionSkipped,
		}, nil
	}
	if err != nil {
		return nil, err
	}

	var res *SyncResult
	switch plan.PaymentStatus {
	case treatmentplans.PaymentPaid:
		res, err = r.upsertWonDeal(ctx, plan, client.ID)
	case treatmentplans.PaymentUnpaid, treatmentplans.PaymentCancelled:
		res, err = r.removeDeal(ctx, planID, client.ID)
	default:
		// Partial and overdue states keep whatever deal exists; revenue
		// only moves on the paid/unpaid edges.
		res = &SyncResult{
			Synced:   false,
			Message:  fmt.Sprintf("payment status %s requires no reconciliation", plan.PaymentStatus),
			Action:   ActionNoop,
			ClientID: client.ID,
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	r.metrics.ObserveReconcile(res.Action)
	r.metrics.ObserveSyncLatency(res.Action, time.Since(start).Seconds())
	return res, nil
}

// RecalculateClientRevenue overwrites the client's revenue aggregate from
// the full set of won deals.
func (r *Reconciler) RecalculateClientRevenue(ctx context.Context, clientID string) error {
	ctx, span := r.tracer.Start(ctx, "reconcile.recalculate_revenue")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.client_id", clientID))

	won, err := r.deals.ListWonByClient(ctx, clientID)
	if err != nil {
		return fmt.Errorf("reconcile: list won deals for %s: %w", clientID, err)
	}

	summary := clients.RevenueSummary{TotalDeals: len(won)}
	for _, deal := range won {
		summary.TotalRevenue += deal.Amount
		wonAt := deal.EffectiveWonTime()
		if summary.LastDealDate == nil || wonAt.After(*summary.LastDealDate) {
			t := wonAt
			summary.LastDealDate = &t
		}
	}

	if err := r.clients.UpdateRevenue(ctx, clientID, summary); err != nil {
		return fmt.Errorf("reconcile: update revenue for %s: %w", clientID, err)
	}
	r.logger.Info("client revenue recalculated",
		"client_id", clientID, "total_revenue", summary.TotalRevenue, "total_deals", summary.TotalDeals)
	return nil
}

// SyncAllPaidPlans sweeps every paid plan. One bad plan does not stop the
// sweep; its error is collected and the rest proceed.
func (r *Reconciler) SyncAllPaidPlans(ctx context.Context) (*BatchResult, error) {
	ctx, span := r.tracer.Start(ctx, "reconcile.sync_all")
	defer span.End()

	plans, err := r.plans.ListByPaymentStatus(ctx, treatmentplans.PaymentPaid)
	if err != nil {
		return nil, fmt.Errorf("reconcile: list paid plans: %w", err)
	}

	result := &BatchResult{TotalPlans: len(plans)}
	for _, plan := range plans {
		res, err := r.SyncTreatmentPlanPayment(ctx, plan.ID)
		if err != nil {
			r.logger.Error("plan sync failed", "error", err, "treatment_plan_id", plan.ID)
			result.Errors = append(result.Errors, fmt.Sprintf("plan %s: %v", plan.ID, err))
			continue
		}
		if res.Synced {
			result.SyncedCount++
		}
	}
	result.Message = fmt.Sprintf("synced %d of %d paid treatment plans", result.SyncedCount, result.TotalPlans)
	return result, nil
}

func (r *Reconciler) upsertWonDeal(ctx context.Context, plan *treatmentplans.TreatmentPlan, clientID string) (*SyncResult, error) {
	amount := plan.PaidAmount
	if amount <= 0 {
		amount = plan.TotalCost
	}

	existing, err := r.deals.GetByTreatmentPlanID(ctx, plan.ID)
	switch {
	case err == nil:
		existing.Status = deals.StatusWon
		existing.Stage = deals.StageClosed
		existing.Amount = amount
		if existing.WonAt == nil {
			now := time.Now().UTC()
			existing.WonAt = &now
		}
		if err := r.deals.Update(ctx, existing); err != nil {
			return nil, fmt.Errorf("reconcile: update deal %s: %w", existing.ID, err)
		}
		if err := r.RecalculateClientRevenue(ctx, clientID); err != nil {
			return nil, err
		}
		return &SyncResult{
			Synced:   true,
			Message:  "existing deal marked won and revenue recalculated",
			Action:   ActionDealUpdated,
			DealID:   existing.ID,
			ClientID: clientID,
			Amount:   amount,
		}, nil

	case errors.Is(err, deals.ErrNotFound):
		now := time.Now().UTC()
		deal := &deals.Deal{
			ID:                 deals.IDForTreatmentPlan(plan.ID),
			ClientID:           clientID,
			Title:              fmt.Sprintf("Treatment: %s", plan.Title),
			Status:             deals.StatusWon,
			Stage:              deals.StageClosed,
			Amount:             amount,
			HMSTreatmentPlanID: plan.ID,
			WonAt:              &now,
		}
		if err := r.deals.Create(ctx, deal); err != nil {
			if errors.Is(err, deals.ErrDuplicatePlan) {
				// Lost a replay race; the winner already wrote the
				// same document.
				r.logger.Info("deal insert lost replay race", "treatment_plan_id", plan.ID)
			} else {
				return nil, fmt.Errorf("reconcile: create deal for plan %s: %w", plan.ID, err)
			}
		}
		if err := r.RecalculateClientRevenue(ctx, clientID); err != nil {
			return nil, err
		}
		return &SyncResult{
			Synced:   true,
			Message:  "deal created and revenue recalculated",
			Action:   ActionDealCreated,
			DealID:   deal.ID,
			ClientID: clientID,
			Amount:   amount,
		}, nil

	default:
		return nil, fmt.Errorf("reconcile: lookup deal for plan %s: %w", plan.ID, err)
	}
}

func (r *Reconciler) removeDeal(ctx context.Context, planID, clientID string) (*SyncResult, error) {
	existing, err := r.deals.GetByTreatmentPlanID(ctx, planID)
	if errors.Is(err, deals.ErrNotFound) {
		return &SyncResult{
			Synced:   false,
			Message:  "plan is not paid and has no deal, nothing to reconcile",
			Action:   ActionNoop,
			ClientID: clientID,
		}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("reconcile: lookup deal for plan %s: %w", planID, err)
	}

	if err := r.deals.Delete(ctx, existing.ID); err != nil && !errors.Is(err, deals.ErrNotFound) {
		return nil, fmt.Errorf("reconcile: delete deal %s: %w", existing.ID, err)
	}
	if err := r.RecalculateClientRevenue(ctx, clientID); err != nil {
		return nil, err
	}
	return &SyncResult{
		Synced:   true,
		Message:  "payment reversed, deal removed and revenue recalculated",
		Action:   ActionDealDeleted,
		DealID:   existing.ID,
		ClientID: clientID,
	}, nil
}
