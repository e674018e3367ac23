package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	PublicBaseURL string

	// Auth
	AuthJWTSecret string

	// HTTP hardening
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
	RateLimitIdleTTL   time.Duration

	// Storage: shared document store (DynamoDB) used by both the CRM and
	// HMS sides. One table per collection.
	UseMemoryStore      bool
	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
	LeadsTable          string
	ClientsTable        string
	DealsTable          string
	SourcesTable        string
	PatientsTable       string
	DoctorsTable        string
	AppointmentsTable   string
	AppointmentSlots    string
	TreatmentPlansTable string

	// Appointment confirmation email (SES)
	NotifyFromEmail string
	NotifyFromName  string
	NotifyReplyTo   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		PublicBaseURL: getEnv("PUBLIC_BASE_URL", ""),

		AuthJWTSecret: getEnv("AUTH_JWT_SECRET", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", "*"),
		RateLimitPerSecond: getEnvAsFloat("RATE_LIMIT_PER_SECOND", 10),
		RateLimitBurst:     getEnvAsInt("RATE_LIMIT_BURST", 30),
		RateLimitIdleTTL:   time.Duration(getEnvAsInt("RATE_LIMIT_IDLE_TTL_SECONDS", 600)) * time.Second,

		UseMemoryStore:      getEnvAsBool("USE_MEMORY_STORE", false),
		AWSRegion:           getEnv("AWS_REGION", "us-east-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
		LeadsTable:          getEnv("LEADS_TABLE", "crm_leads"),
		ClientsTable:        getEnv("CLIENTS_TABLE", "crm_clients"),
		DealsTable:          getEnv("DEALS_TABLE", "crm_deals"),
		SourcesTable:        getEnv("SOURCES_TABLE", "crm_sources"),
		PatientsTable:       getEnv("PATIENTS_TABLE", "patients"),
		DoctorsTable:        getEnv("DOCTORS_TABLE", "doctors"),
		AppointmentsTable:   getEnv("APPOINTMENTS_TABLE", "appointments"),
		AppointmentSlots:    getEnv("APPOINTMENT_SLOTS_TABLE", "appointment_slots"),
		TreatmentPlansTable: getEnv("TREATMENT_PLANS_TABLE", "treatment_plans"),

		NotifyFromEmail: getEnv("NOTIFY_FROM_EMAIL", ""),
		NotifyFromName:  getEnv("NOTIFY_FROM_NAME", "BrightSmile Dental"),
		NotifyReplyTo:   getEnv("NOTIFY_REPLY_TO", ""),
	}
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key, defaultValue string) []string {
	raw := getEnv(key, defaultValue)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
