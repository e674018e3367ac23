package reconcile

import (
	"encoding/json"
	"net/http"

	"github.com/brightsmile-dental/clinic-platform/internal/apperr"
	"github.com/brightsmile-dental/clinic-platform/internal/httpx"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Handler provides the integration endpoints the HMS billing side calls.
type Handler struct {
	reconciler *Reconciler
	logger     *logging.Logger
}

// NewHandler creates a new reconcile HTTP handler.
func NewHandler(reconciler *Reconciler, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{reconciler: reconciler, logger: logger}
}

// SyncTreatmentPlan reconciles one plan's payment state. A payload carrying
// patient/payment fields mirrors them into the store first; a bare
// treatment_plan_id re-syncs the stored document.
// POST /integration/sync-treatment-plan
func (h *Handler) SyncTreatmentPlan(w http.ResponseWriter, r *http.Request) {
	var req PlanPayload
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpx.WriteError(w, apperr.New(apperr.KindValidation, "invalid JSON body"))
		return
	}
	if req.TreatmentPlanID == "" {
		httpx.WriteError(w, apperr.New(apperr.KindValidation, "treatment_plan_id is required"))
		return
	}

	var res *SyncResult
	var err error
	if req.PatientID != "" {
		res, err = h.reconciler.SyncPlanState(r.Context(), req)
	} else {
		res, err = h.reconciler.SyncTreatmentPlanPayment(r.Context(), req.TreatmentPlanID)
	}
	if err != nil {
		h.logger.Warn("plan sync failed", "error", err, "treatment_plan_id", req.TreatmentPlanID)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}

// SyncAllTreatmentPlans sweeps every paid plan.
// POST /integration/sync-all-treatment-plans
func (h *Handler) SyncAllTreatmentPlans(w http.ResponseWriter, r *http.Request) {
	res, err := h.reconciler.SyncAllPaidPlans(r.Context())
	if err != nil {
		h.logger.Error("batch sync failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, res)
}
