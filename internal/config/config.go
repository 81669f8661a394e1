// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server, logging,
// storage, provider and translation settings.
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "go-translate-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// ProviderConfig selects and tunes the AI completion provider. It is passed
// explicitly to the provider gateway; nothing reads it from globals.
type ProviderConfig struct {
	Kind        string        // PROVIDER: openai|ollama|openai_compatible|scripted
	Model       string        // PROVIDER_MODEL
	APIKey      string        // PROVIDER_API_KEY
	BaseURL     string        // PROVIDER_BASE_URL
	Timeout     time.Duration // overall budget per call, all attempts included
	MaxAttempts int
	RetryDelay  time.Duration
	Backoff     float64 // delay multiplier between attempts
	MaxDelay    time.Duration
	RPS         float64 // client-side throttle, 0 = unlimited
	MaxTokens   int
	Temperature float64
	CostPer1K   decimal.Decimal // currency units per 1000 total tokens
}

// TranslationConfig tunes the translation pipeline.
type TranslationConfig struct {
	CacheTTL          time.Duration
	ChargeCacheHits   bool
	ScoringDelay      time.Duration
	Workers           int
	TaskQueue         int
	LanguagesFile     string // optional YAML catalog
	DefaultSourceLang string
}

// Config holds all configuration values for the application.
type Config struct {
	// Server
	Port              string        // just the number
	ReadTimeout       time.Duration // e.g. 15s
	ReadHeaderTimeout time.Duration // e.g. 10s
	WriteTimeout      time.Duration // e.g. 90s; must outlive a provider call
	IdleTimeout       time.Duration // e.g. 60s
	MaxHeaderBytes    int           // bytes
	GinMode           string        // debug|release|test

	// Logging / Docs
	LogLevel       string // debug|info|warn|error|fatal|panic
	LogPretty      bool   // pretty console logs in dev
	SwaggerEnabled bool   // enable Swagger UI route
	APIBasePath    string // base path for API routes

	// Storage
	DBPath string // SQLite path

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Idempotency
	IdempotencyTTL time.Duration // how long a given Idempotency-Key is valid

	// Translation
	Provider    ProviderConfig
	Translation TranslationConfig

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
		WriteTimeout:      getdur("WRITE_TIMEOUT", 90*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),

		// Logging / Docs
		LogLevel:       strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:      getbool("LOG_PRETTY", false),
		SwaggerEnabled: getbool("SWAGGER_ENABLED", false),
		APIBasePath:    normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath: getenv("DB_PATH", "translator.db"),

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

		// Idempotency
		IdempotencyTTL: getdur("IDEMPOTENCY_TTL", 24*time.Hour),

		// Translation
		Provider: ProviderConfig{
			Kind:        strings.ToLower(getenv("PROVIDER", "openai")),
			Model:       getenv("PROVIDER_MODEL", ""),
			APIKey:      getenv("PROVIDER_API_KEY", ""),
			BaseURL:     getenv("PROVIDER_BASE_URL", ""),
			Timeout:     getdur("PROVIDER_TIMEOUT", 60*time.Second),
			MaxAttempts: getint("PROVIDER_MAX_ATTEMPTS", 3),
			RetryDelay:  getdur("PROVIDER_RETRY_DELAY", time.Second),
			Backoff:     getfloat("PROVIDER_RETRY_BACKOFF", 2.0),
			MaxDelay:    getdur("PROVIDER_MAX_RETRY_DELAY", 10*time.Second),
			RPS:         getfloat("PROVIDER_RPS", 0),
			MaxTokens:   getint("PROVIDER_MAX_TOKENS", 2000),
			Temperature: getfloat("PROVIDER_TEMPERATURE", 0.3),
			CostPer1K:   getdecimal("PROVIDER_COST_PER_1K_TOKENS", decimal.RequireFromString("0.002")),
		},
		Translation: TranslationConfig{
			CacheTTL:          getdur("CACHE_TTL", 7*24*time.Hour),
			ChargeCacheHits:   getbool("CHARGE_CACHE_HITS", true),
			ScoringDelay:      getdur("SCORING_DELAY", 2*time.Second),
			Workers:           getint("WORKERS", 4),
			TaskQueue:         getint("TASK_QUEUE", 256),
			LanguagesFile:     getenv("LANGUAGES_FILE", ""),
			DefaultSourceLang: getenv("DEFAULT_SOURCE_LANG", "en"),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "go-translate-backend"),
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
	if cfg.Provider.Model == "" {
		cfg.Provider.Model = defaultModel(cfg.Provider.Kind)
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
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
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
	if cfg.IdempotencyTTL <= 0 {
		return cfg, errors.New("IDEMPOTENCY_TTL must be > 0")
	}
	switch cfg.Provider.Kind {
	case "openai", "ollama", "openai_compatible", "scripted":
	default:
		return cfg, errors.New("PROVIDER must be one of: openai, ollama, openai_compatible, scripted")
	}
	if cfg.Provider.Kind == "openai_compatible" && strings.TrimSpace(cfg.Provider.BaseURL) == "" {
		return cfg, errors.New("PROVIDER_BASE_URL is required for openai_compatible")
	}
	if cfg.Provider.Timeout <= 0 {
		return cfg, errors.New("PROVIDER_TIMEOUT must be > 0")
	}
	if cfg.Provider.MaxAttempts < 1 {
		return cfg, errors.New("PROVIDER_MAX_ATTEMPTS must be >= 1")
	}
	if cfg.Provider.RetryDelay < 0 || cfg.Provider.MaxDelay < 0 {
		return cfg, errors.New("PROVIDER_RETRY_DELAY and PROVIDER_MAX_RETRY_DELAY must be >= 0")
	}
	if cfg.Provider.Backoff < 1 {
		return cfg, errors.New("PROVIDER_RETRY_BACKOFF must be >= 1")
	}
	if cfg.Provider.RPS < 0 {
		return cfg, errors.New("PROVIDER_RPS must be >= 0")
	}
	if cfg.Provider.Temperature < 0 || cfg.Provider.Temperature > 2 {
		return cfg, errors.New("PROVIDER_TEMPERATURE must be in [0,2]")
	}
	if cfg.Provider.CostPer1K.IsNegative() {
		return cfg, errors.New("PROVIDER_COST_PER_1K_TOKENS must be >= 0")
	}
	if cfg.Translation.CacheTTL <= 0 {
		return cfg, errors.New("CACHE_TTL must be > 0")
	}
	if cfg.Translation.ScoringDelay < 0 {
		return cfg, errors.New("SCORING_DELAY must be >= 0")
	}
	if cfg.Translation.Workers < 1 {
		return cfg, errors.New("WORKERS must be >= 1")
	}
	if cfg.Translation.TaskQueue < 1 {
		return cfg, errors.New("TASK_QUEUE must be >= 1")
	}
	if strings.TrimSpace(cfg.Translation.DefaultSourceLang) == "" {
		return cfg, errors.New("DEFAULT_SOURCE_LANG must not be empty")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	return cfg, nil
}

func defaultModel(kind string) string {
	switch kind {
	case "ollama":
		return "llama3.1"
	case "scripted":
		return "scripted-1"
	default:
		return "gpt-4o-mini"
	}
}

// ---- helpers ----

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
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "1", "true", "yes", "y", "on":
			return true
		case "0", "false", "no", "n", "off":
			return false
		}
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

func getdecimal(k string, def decimal.Decimal) decimal.Decimal {
	if v, ok := os.LookupEnv(k); ok && v != "" {
		if d, err := decimal.NewFromString(strings.TrimSpace(v)); err == nil {
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
