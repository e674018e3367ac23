package stats

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/brightsmile-dental/clinic-platform/internal/httpx"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Handler provides the read-only statistics endpoints.
type Handler struct {
	aggregator *Aggregator
	logger     *logging.Logger
}

// NewHandler creates a new stats HTTP handler.
func NewHandler(aggregator *Aggregator, logger *logging.Logger) *Handler {
	if logger == nil {
		logger = logging.Default()
	}
	return &Handler{aggregator: aggregator, logger: logger}
}

// Routes returns the stats routes.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/conversion", h.Conversion)
	r.Get("/revenue", h.Revenue)
	r.Get("/collection", h.Collection)
	return r
}

// Conversion returns the lead funnel report.
// GET /stats/conversion
func (h *Handler) Conversion(w http.ResponseWriter, r *http.Request) {
	report, err := h.aggregator.Conversion(r.Context())
	if err != nil {
		h.logger.Error("conversion stats failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}

// Revenue returns the ROI report.
// GET /stats/revenue
func (h *Handler) Revenue(w http.ResponseWriter, r *http.Request) {
	report, err := h.aggregator.Revenue(r.Context())
	if err != nil {
		h.logger.Error("revenue stats failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}

// Collection returns the payment collection report.
// GET /stats/collection
func (h *Handler) Collection(w http.ResponseWriter, r *http.Request) {
	report, err := h.aggregator.Collection(r.Context())
	if err != nil {
		h.logger.Error("collection stats failed", "error", err)
		httpx.WriteError(w, err)
		return
	}
	httpx.WriteJSON(w, http.StatusOK, report)
}
