// Package router assembles the HTTP surface: integration sync endpoints,
// conversion endpoints, appointment booking and the statistics reads.
package router

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"

	"github.com/brightsmile-dental/clinic-platform/internal/conversion"
	httpmiddleware "github.com/brightsmile-dental/clinic-platform/internal/http/middleware"
	"github.com/brightsmile-dental/clinic-platform/internal/httpx"
	"github.com/brightsmile-dental/clinic-platform/internal/reconcile"
	"github.com/brightsmile-dental/clinic-platform/internal/scheduling"
	"github.com/brightsmile-dental/clinic-platform/internal/stats"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// Config holds router configuration.
type Config struct {
	Logger             *logging.Logger
	ConversionHandler  *conversion.Handler
	ReconcileHandler   *reconcile.Handler
	SchedulingHandler  *scheduling.Handler
	StatsHandler       *stats.Handler
	MetricsHandler     http.Handler
	AuthJWTSecret      string
	CORSAllowedOrigins []string
	RateLimitPerSec    float64
	RateLimitBurst     int
	RateLimitIdleTTL   time.Duration
}

// New creates a chi router with all routes configured.
func New(cfg *Config) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))
	}
	if cfg.RateLimitPerSec > 0 {
		r.Use(httpmiddleware.RateLimit(cfg.RateLimitPerSec, cfg.RateLimitBurst, cfg.RateLimitIdleTTL, cfg.Logger))
	}
	if cfg.Logger != nil {
		r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	}

	// Public endpoints.
	r.Get("/health", healthCheck)
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	staffOnly := httpmiddleware.RequireRoles(
		httpmiddleware.RoleAdmin, httpmiddleware.RoleManager, httpmiddleware.RoleDoctor)

	// Authenticated API.
	r.Group(func(api chi.Router) {
		api.Use(httpmiddleware.Auth(cfg.AuthJWTSecret))

		// Integration sync called by the HMS billing side.
		api.Route("/integration", func(r chi.Router) {
			r.Use(staffOnly)
			r.Post("/sync-treatment-plan", cfg.ReconcileHandler.SyncTreatmentPlan)
			r.Post("/sync-all-treatment-plans", cfg.ReconcileHandler.SyncAllTreatmentPlans)
			r.Post("/patients/{id}/create-lead", cfg.ConversionHandler.CreateLeadFromPatient)
		})

		// Conversion pipeline.
		api.With(staffOnly).Post("/leads/{id}/convert", cfg.ConversionHandler.ConvertLead)
		api.With(staffOnly).Patch("/leads/{id}/status", cfg.ConversionHandler.UpdateLeadStatus)
		api.With(staffOnly).Post("/clients/{id}/convert-to-hms", cfg.ConversionHandler.ConvertClient)

		// Booking allows patients; ownership is enforced in the guard.
		// Edits stay with staff.
		api.Route("/appointments", func(r chi.Router) {
			r.Post("/", cfg.SchedulingHandler.CreateAppointment)
			r.Get("/{id}", cfg.SchedulingHandler.GetAppointment)
			r.With(staffOnly).Put("/{id}", cfg.SchedulingHandler.UpdateAppointment)
		})

		// Statistics reads.
		api.With(staffOnly).Mount("/stats", cfg.StatsHandler.Routes())
	})

	return r
}

func healthCheck(w http.ResponseWriter, r *http.Request) {
	httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
