package deals

import (
	"time"

	"github.com/google/uuid"
)

// Status is the CRM deal lifecycle state.
type Status string

const (
	StatusDraft     Status = "draft"
	StatusActive    Status = "active"
	StatusWon       Status = "won"
	StatusLost      Status = "lost"
	StatusCancelled Status = "cancelled"
	StatusOnHold    Status = "on_hold"
)

// StageClosed is the stage the reconciler writes alongside won status.
const StageClosed = "closed"

// Deal is a CRM sales record. Deals derived from HMS treatment plans carry
// the plan id, which doubles as the reconciliation idempotency key.
type Deal struct {
	ID                 string     `json:"id" dynamodbav:"id"`
	ClientID           string     `json:"client_id" dynamodbav:"client_id"`
	Title              string     `json:"title" dynamodbav:"title"`
	Status             Status     `json:"status" dynamodbav:"status"`
	Stage              string     `json:"stage,omitempty" dynamodbav:"stage,omitempty"`
	Amount             float64    `json:"amount" dynamodbav:"amount"`
	HMSTreatmentPlanID string     `json:"hms_treatment_plan_id,omitempty" dynamodbav:"hms_treatment_plan_id,omitempty"`
	WonAt              *time.Time `json:"won_at,omitempty" dynamodbav:"won_at,omitempty"`
	CreatedAt          time.Time  `json:"created_at" dynamodbav:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at" dynamodbav:"updated_at"`
}

// dealNamespace seeds the deterministic ids for plan-derived deals.
var dealNamespace = uuid.MustParse("7f1a4e52-3c9b-4d26-9a0e-5b8f4f6d2c11")

// IDForTreatmentPlan derives the deal id from the treatment plan id. Two
// concurrent reconciliations of the same plan therefore target the same
// document and the insert guard turns the duplicate into a no-op, keeping at
// most one deal per plan without a read-then-write gap.
func IDForTreatmentPlan(planID string) string {
	return uuid.NewSHA1(dealNamespace, []byte(planID)).String()
}

// EffectiveWonTime orders deals for the last-deal-date aggregate: won_at when
// set, created_at otherwise.
func (d *Deal) EffectiveWonTime() time.Time {
	if d.WonAt != nil {
		return *d.WonAt
	}
	return d.CreatedAt
}
