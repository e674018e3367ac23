package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/brightsmile-dental/clinic-platform/cmd/mainconfig"
	"github.com/brightsmile-dental/clinic-platform/internal/api/router"
	"github.com/brightsmile-dental/clinic-platform/internal/appointments"
	"github.com/brightsmile-dental/clinic-platform/internal/clients"
	appconfig "github.com/brightsmile-dental/clinic-platform/internal/config"
	"github.com/brightsmile-dental/clinic-platform/internal/conversion"
	"github.com/brightsmile-dental/clinic-platform/internal/deals"
	"github.com/brightsmile-dental/clinic-platform/internal/doctors"
	"github.com/brightsmile-dental/clinic-platform/internal/leads"
	"github.com/brightsmile-dental/clinic-platform/internal/notify"
	"github.com/brightsmile-dental/clinic-platform/internal/observability/metrics"
	"github.com/brightsmile-dental/clinic-platform/internal/patients"
	"github.com/brightsmile-dental/clinic-platform/internal/reconcile"
	"github.com/brightsmile-dental/clinic-platform/internal/scheduling"
	"github.com/brightsmile-dental/clinic-platform/internal/sources"
	"github.com/brightsmile-dental/clinic-platform/internal/stats"
	"github.com/brightsmile-dental/clinic-platform/internal/treatmentplans"
	"github.com/brightsmile-dental/clinic-platform/pkg/logging"
)

// repositories bundles the store implementations selected at startup.
type repositories struct {
	leads    leads.Repository
	clients  clients.Repository
	deals    deals.Repository
	sources  sources.Repository
	patients patients.Repository
	doctors  doctors.Repository
	appts    appointments.Repository
	plans    treatmentplans.Repository
}

func main() {
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting clinic-platform API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"memory_store", cfg.UseMemoryStore,
	)

	var emailSender notify.EmailSender
	var repos repositories
	if cfg.UseMemoryStore {
		repos = memoryRepositories()
	} else {
		awsCfg, err := mainconfig.LoadAWSConfig(context.Background(), cfg)
		if err != nil {
			logger.Error("failed to load AWS config", "error", err)
			os.Exit(1)
		}
		dynamoClient := dynamodb.NewFromConfig(awsCfg)
		repos = dynamoRepositories(dynamoClient, cfg)

		if cfg.NotifyFromEmail != "" {
			emailSender = notify.NewSESSender(sesv2.NewFromConfig(awsCfg), notify.SESConfig{
				FromEmail: cfg.NotifyFromEmail,
				FromName:  cfg.NotifyFromName,
				ReplyTo:   cfg.NotifyReplyTo,
			}, logger)
		}
	}
	if emailSender == nil {
		emailSender = notify.NewStubEmailSender(logger)
	}

	registry := prometheus.NewRegistry()
	syncMetrics := metrics.NewSyncMetrics(registry)
	notifier := notify.NewService(emailSender, logger)

	guard := scheduling.NewGuard(repos.appts, repos.patients, repos.doctors, notifier, syncMetrics, logger)
	pipeline := conversion.NewPipeline(repos.leads, repos.clients, repos.patients, guard, notifier, syncMetrics, logger)
	reconciler := reconcile.NewReconciler(repos.plans, repos.deals, repos.clients, syncMetrics, logger)
	aggregator := stats.NewAggregator(repos.leads, repos.clients, repos.deals, repos.sources, repos.plans, logger)

	r := router.New(&router.Config{
		Logger:             logger,
		ConversionHandler:  conversion.NewHandler(pipeline, logger),
		ReconcileHandler:   reconcile.NewHandler(reconciler, logger),
		SchedulingHandler:  scheduling.NewHandler(guard, logger),
		StatsHandler:       stats.NewHandler(aggregator, logger),
		MetricsHandler:     promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		AuthJWTSecret:      cfg.AuthJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		RateLimitPerSec:    cfg.RateLimitPerSecond,
		RateLimitBurst:     cfg.RateLimitBurst,
		RateLimitIdleTTL:   cfg.RateLimitIdleTTL,
	})

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
}

func memoryRepositories() repositories {
	return repositories{
		leads:    leads.NewInMemoryRepository(),
		clients:  clients.NewInMemoryRepository(),
		deals:    deals.NewInMemoryRepository(),
		sources:  sources.NewInMemoryRepository(),
		patients: patients.NewInMemoryRepository(),
		doctors:  doctors.NewInMemoryRepository(),
		appts:    appointments.NewInMemoryRepository(),
		plans:    treatmentplans.NewInMemoryRepository(),
	}
}

func dynamoRepositories(client *dynamodb.Client, cfg *appconfig.Config) repositories {
	return repositories{
		leads:    leads.NewDynamoRepository(client, cfg.LeadsTable),
		clients:  clients.NewDynamoRepository(client, cfg.ClientsTable),
		deals:    deals.NewDynamoRepository(client, cfg.DealsTable),
		sources:  sources.NewDynamoRepository(client, cfg.SourcesTable),
		patients: patients.NewDynamoRepository(client, cfg.PatientsTable),
		doctors:  doctors.NewDynamoRepository(client, cfg.DoctorsTable),
		appts:    appointments.NewDynamoRepository(client, cfg.AppointmentsTable, cfg.AppointmentSlots),
		plans:    treatmentplans.NewDynamoRepository(client, cfg.TreatmentPlansTable),
	}
}
