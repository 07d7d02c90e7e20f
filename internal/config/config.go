// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes application settings
// such as server timeouts, logging, database paths, provider credentials,
// rate limiting, and observability.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/casaluz/go-notify-backend/internal/sysutil"
)

// CORSConfig defines Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string
}

// SecurityConfig defines security-related settings such as HSTS.
type SecurityConfig struct {
	EnableHSTS bool
	HSTSMaxAge time.Duration
}

// OTELConfig defines OpenTelemetry observability settings.
type OTELConfig struct {
	Enabled     bool    // OTEL_ENABLED
	Endpoint    string  // OTEL_EXPORTER_OTLP_ENDPOINT (e.g. "otel:4317")
	Insecure    bool    // OTEL_EXPORTER_OTLP_INSECURE (true if no TLS)
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-notify-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// DocstoreConfig defines the remote document-store connection.
type DocstoreConfig struct {
	BaseURL string // DOCSTORE_BASE_URL (empty means the provider default)
	Project string // DOCSTORE_PROJECT
	APIKey  string // DOCSTORE_API_KEY
}

// EmailConfig defines the transactional email provider connection.
type EmailConfig struct {
	BaseURL string // MAIL_BASE_URL (empty means the provider default)
	APIKey  string // MAIL_API_KEY
	Sender  string // MAIL_SENDER (from-address)
}

// WhatsAppConfig defines the WhatsApp messaging provider connection.
type WhatsAppConfig struct {
	BaseURL   string // WA_BASE_URL (empty means the provider default)
	Token     string // WA_TOKEN
	ChannelID int    // WA_CHANNEL_ID
}

// ExtractConfig defines the receipt extraction provider connection.
type ExtractConfig struct {
	BaseURL string // EXTRACT_BASE_URL (empty means the provider default)
	APIKey  string // EXTRACT_API_KEY
	Model   string // EXTRACT_MODEL
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 20s
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging
	LogLevel    string // debug|info|warn|error|fatal|panic
	LogPretty   bool   // pretty console logs in dev
	APIBasePath string // base path for API routes

	// App
	Company  string // tenant key; scopes the document store and templates
	DBPath   string // SQLite path of the synced entity graph
	Timezone string // IANA business timezone, e.g. America/Mexico_City

	// Providers
	Docstore DocstoreConfig
	Mail     EmailConfig
	WhatsApp WhatsAppConfig
	Extract  ExtractConfig

	// Webhook event deduplication
	WebhookCacheTTL time.Duration // how long a processed event ID is remembered
	WebhookCacheMax int           // max remembered event IDs

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Observability
	OTEL OTELConfig
}

// MustLoad loads the configuration and panics if validation fails.
func MustLoad() Config {
	cfg, err := Load()
	if err != nil {
		panic(err)
	}
	return cfg
}

// Load reads configuration from environment variables,
// applies defaults, normalizes values, and validates the result.
func Load() (Config, error) {
	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging
		LogLevel:    strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:   getbool("LOG_PRETTY", false),
		APIBasePath: normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// App
		Company:  strings.ToLower(getenv("COMPANY", "")),
		DBPath:   getenv("DB_PATH", "app.db"),
		Timezone: getenv("TIMEZONE", "America/Mexico_City"),

		// Providers
		// Provider credentials honor the previous deployment's variable
		// names as fallbacks so existing .env files keep working.
		Docstore: DocstoreConfig{
			BaseURL: getenv("DOCSTORE_BASE_URL", ""),
			Project: getenvAlias("", "DOCSTORE_PROJECT", "FIREBASE_PLANTILLAS_PROJECT_ID"),
			APIKey:  getenvAlias("", "DOCSTORE_API_KEY", "FIREBASE_PLANTILLAS_API_KEY"),
		},
		Mail: EmailConfig{
			BaseURL: getenv("MAIL_BASE_URL", ""),
			APIKey:  getenvAlias("", "MAIL_API_KEY", "MAILERSEND_API_KEY"),
			Sender:  getenvAlias("", "MAIL_SENDER", "MAILERSEND_SENDER"),
		},
		WhatsApp: WhatsAppConfig{
			BaseURL:   getenv("WA_BASE_URL", ""),
			Token:     getenvAlias("", "WA_TOKEN", "RESPOND_IO_TOKEN"),
			ChannelID: getint("WA_CHANNEL_ID", getint("RESPOND_IO_CHANNEL_ID", 0)),
		},
		Extract: ExtractConfig{
			BaseURL: getenv("EXTRACT_BASE_URL", ""),
			APIKey:  getenv("EXTRACT_API_KEY", ""),
			Model:   getenv("EXTRACT_MODEL", ""),
		},

		// Webhook event deduplication
		WebhookCacheTTL: getdur("WEBHOOK_CACHE_TTL", 30*time.Minute),
		WebhookCacheMax: getint("WEBHOOK_CACHE_MAX", 10000),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 5.0),
		RateBurst: getint("RATE_BURST", 10),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-notify-backend"),
			SampleRatio: getfloat("OTEL_TRACES_SAMPLER_ARG", 1.0),
		},
	}

	// --- normalization ---
	if cfg.LogLevel == "warning" {
		cfg.LogLevel = "warn"
	}
	switch cfg.GinMode {
	case "debug", "release", "test":
	default:
		cfg.GinMode = "release"
	}

	// --- validation ---
	switch cfg.LogLevel {
	case "debug", "info", "warn", "error", "fatal", "panic":
	default:
		return cfg, errors.New("LOG_LEVEL must be one of: debug, info, warn, error, fatal, panic")
	}
	if strings.TrimSpace(cfg.Port) == "" {
		return cfg, errors.New("PORT must not be empty")
	}
	if cfg.ReadTimeout <= 0 || cfg.ReadHeaderTimeout <= 0 || cfg.WriteTimeout <= 0 || cfg.IdleTimeout <= 0 {
		return cfg, errors.New("timeouts must be positive durations")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.Company) == "" {
		return cfg, errors.New("COMPANY must not be empty")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.Timezone) == "" {
		return cfg, errors.New("TIMEZONE must not be empty")
	}
	if cfg.WebhookCacheTTL <= 0 {
		return cfg, errors.New("WEBHOOK_CACHE_TTL must be > 0")
	}
	if cfg.WebhookCacheMax < 1 {
		return cfg, errors.New("WEBHOOK_CACHE_MAX must be >= 1")
	}
	if cfg.RateRPS < 0 {
		return cfg, errors.New("RATE_RPS must be >= 0")
	}
	if cfg.RateBurst < 1 {
		return cfg, errors.New("RATE_BURST must be >= 1")
	}
	if cfg.Security.HSTSMaxAge < 0 {
		return cfg, errors.New("HSTS_MAX_AGE must be >= 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

// ---- env helpers ----

func getenv(k, def string) string {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		return v
	}
	return def
}

func getfloat(k string, def float64) float64 {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return def
}

func getint(k string, def int) int {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return def
}

func getbool(k string, def bool) bool {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if sysutil.IsTruthy(v) {
			return true
		}
		if sysutil.IsFalsy(v) {
			return false
		}
	}
	return def
}

// getenvAlias reads the first non-empty key, letting deployments keep the
// variable names the previous system used while new ones take priority.
func getenvAlias(def string, keys ...string) string {
	vals := make([]string, len(keys))
	for i, k := range keys {
		vals[i] = os.Getenv(k)
	}
	if v := sysutil.FirstNonEmpty(vals...); strings.TrimSpace(v) != "" {
		return v
	}
	return def
}

func getdur(k string, def time.Duration) time.Duration {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		t := strings.TrimSpace(p)
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

// normalizeBasePath ensures leading '/' and strips trailing '/' (except root).
func normalizeBasePath(p string) string {
	p = strings.TrimSpace(p)
	if p == "" {
		return "/"
	}
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	if len(p) > 1 && strings.HasSuffix(p, "/") {
		p = strings.TrimRight(p, "/")
	}
	return p
}
