package config

import (
	"os"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestMustLoad_PanicsOnInvalidConfig(t *testing.T) {
	t.Setenv("LOG_LEVEL", "verbose")
	defer func() {
		if r := recover(); r == nil {
			t.Fatalf("MustLoad should panic on invalid config")
		}
	}()
	_ = MustLoad()
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.APIBasePath != "/api/v1" || cfg.DBPath != "translator.db" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	p := cfg.Provider
	if p.Kind != "openai" || p.Model != "gpt-4o-mini" || p.Timeout != 60*time.Second ||
		p.MaxAttempts != 3 || p.RetryDelay != time.Second || p.Backoff != 2.0 ||
		p.MaxDelay != 10*time.Second || p.MaxTokens != 2000 || p.Temperature != 0.3 {
		t.Fatalf("provider defaults unexpected: %+v", p)
	}
	if !p.CostPer1K.Equal(decimal.RequireFromString("0.002")) {
		t.Fatalf("cost default = %s", p.CostPer1K)
	}
	tr := cfg.Translation
	if tr.CacheTTL != 168*time.Hour || !tr.ChargeCacheHits || tr.ScoringDelay != 2*time.Second ||
		tr.Workers != 4 || tr.TaskQueue != 256 || tr.DefaultSourceLang != "en" || tr.LanguagesFile != "" {
		t.Fatalf("translation defaults unexpected: %+v", tr)
	}
}

func TestLoad_Success_Overrides(t *testing.T) {
	t.Setenv("PORT", "8088")
	t.Setenv("READ_TIMEOUT", "2s")
	t.Setenv("READ_HEADER_TIMEOUT", "1s")
	t.Setenv("WRITE_TIMEOUT", "3s")
	t.Setenv("IDLE_TIMEOUT", "4s")
	t.Setenv("MAX_HEADER_BYTES", "8192")
	t.Setenv("GIN_MODE", "weird") // normalizes to release

	t.Setenv("LOG_LEVEL", "warning") // normalizes to warn
	t.Setenv("LOG_PRETTY", "yes")
	t.Setenv("SWAGGER_ENABLED", "on")
	t.Setenv("API_BASE_PATH", "api/v2/")

	t.Setenv("DB_PATH", "db.sqlite")
	t.Setenv("RATE_RPS", "x") // falls back to default
	t.Setenv("RATE_BURST", "nope")

	t.Setenv("CORS_ALLOWED_ORIGINS", " https://a.com , , http://b ")
	t.Setenv("ENABLE_HSTS", "TRUE")
	t.Setenv("HSTS_MAX_AGE", "24h")
	t.Setenv("IDEMPOTENCY_TTL", "48h")

	t.Setenv("PROVIDER", "OLLAMA")
	t.Setenv("PROVIDER_BASE_URL", "http://ollama:11434")
	t.Setenv("PROVIDER_TIMEOUT", "30s")
	t.Setenv("PROVIDER_MAX_ATTEMPTS", "5")
	t.Setenv("PROVIDER_RETRY_DELAY", "250ms")
	t.Setenv("PROVIDER_RETRY_BACKOFF", "1.5")
	t.Setenv("PROVIDER_MAX_RETRY_DELAY", "2s")
	t.Setenv("PROVIDER_RPS", "3")
	t.Setenv("PROVIDER_COST_PER_1K_TOKENS", "0.0150")

	t.Setenv("CACHE_TTL", "1h")
	t.Setenv("CHARGE_CACHE_HITS", "off")
	t.Setenv("SCORING_DELAY", "0s")
	t.Setenv("WORKERS", "2")
	t.Setenv("LANGUAGES_FILE", "langs.yaml")
	t.Setenv("DEFAULT_SOURCE_LANG", "fr")

	t.Setenv("OTEL_ENABLED", "1")
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", "otel:4317")
	t.Setenv("OTEL_EXPORTER_OTLP_INSECURE", "0")
	t.Setenv("OTEL_SERVICE_NAME", "svc")
	t.Setenv("OTEL_TRACES_SAMPLER_ARG", "0.75")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}

	if cfg.Port != "8088" ||
		cfg.ReadTimeout != 2*time.Second ||
		cfg.ReadHeaderTimeout != 1*time.Second ||
		cfg.WriteTimeout != 3*time.Second ||
		cfg.IdleTimeout != 4*time.Second ||
		cfg.MaxHeaderBytes != 8192 ||
		cfg.GinMode != "release" {
		t.Fatalf("server fields unexpected: %+v", cfg)
	}
	if cfg.LogLevel != "warn" || !cfg.LogPretty || !cfg.SwaggerEnabled || cfg.APIBasePath != "/api/v2" {
		t.Fatalf("logging/docs unexpected: %+v", cfg)
	}
	if cfg.DBPath != "db.sqlite" || cfg.RateRPS != 5.0 || cfg.RateBurst != 10 {
		t.Fatalf("storage/rate unexpected: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.CORS.AllowedOrigins, []string{"https://a.com", "http://b"}) {
		t.Fatalf("cors origins unexpected: %#v", cfg.CORS.AllowedOrigins)
	}
	if !cfg.Security.EnableHSTS || cfg.Security.HSTSMaxAge != 24*time.Hour || cfg.IdempotencyTTL != 48*time.Hour {
		t.Fatalf("security unexpected: %+v", cfg.Security)
	}

	p := cfg.Provider
	if p.Kind != "ollama" || p.Model != "llama3.1" || p.BaseURL != "http://ollama:11434" ||
		p.Timeout != 30*time.Second || p.MaxAttempts != 5 || p.RetryDelay != 250*time.Millisecond ||
		p.Backoff != 1.5 || p.MaxDelay != 2*time.Second || p.RPS != 3 {
		t.Fatalf("provider unexpected: %+v", p)
	}
	if p.CostPer1K.String() != "0.015" {
		t.Fatalf("cost = %s", p.CostPer1K)
	}

	tr := cfg.Translation
	if tr.CacheTTL != time.Hour || tr.ChargeCacheHits || tr.ScoringDelay != 0 || tr.Workers != 2 ||
		tr.LanguagesFile != "langs.yaml" || tr.DefaultSourceLang != "fr" {
		t.Fatalf("translation unexpected: %+v", tr)
	}

	if !cfg.OTEL.Enabled || cfg.OTEL.Endpoint != "otel:4317" || cfg.OTEL.Insecure || cfg.OTEL.ServiceName != "svc" || cfg.OTEL.SampleRatio != 0.75 {
		t.Fatalf("otel unexpected: %+v", cfg.OTEL)
	}
}

func TestLoad_ValidationErrors(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
		want string
	}{
		{"invalid LOG_LEVEL", map[string]string{"LOG_LEVEL": "verbose"}, "LOG_LEVEL"},
		{"empty PORT", map[string]string{"PORT": "   "}, "PORT must not be empty"},
		{"non-positive timeouts", map[string]string{"READ_TIMEOUT": "0s"}, "timeouts must be positive"},
		{"max header bytes", map[string]string{"MAX_HEADER_BYTES": "0"}, "MAX_HEADER_BYTES"},
		{"empty DB_PATH", map[string]string{"DB_PATH": "   "}, "DB_PATH must not be empty"},
		{"rate rps negative", map[string]string{"RATE_RPS": "-1"}, "RATE_RPS"},
		{"rate burst", map[string]string{"RATE_BURST": "0"}, "RATE_BURST"},
		{"hsts negative", map[string]string{"HSTS_MAX_AGE": "-1s"}, "HSTS_MAX_AGE"},
		{"idempotency ttl", map[string]string{"IDEMPOTENCY_TTL": "0s"}, "IDEMPOTENCY_TTL"},
		{"unknown provider", map[string]string{"PROVIDER": "gemini"}, "PROVIDER must be one of"},
		{"compatible without base url", map[string]string{"PROVIDER": "openai_compatible"}, "PROVIDER_BASE_URL"},
		{"provider timeout", map[string]string{"PROVIDER_TIMEOUT": "0s"}, "PROVIDER_TIMEOUT"},
		{"max attempts", map[string]string{"PROVIDER_MAX_ATTEMPTS": "0"}, "PROVIDER_MAX_ATTEMPTS"},
		{"negative retry delay", map[string]string{"PROVIDER_RETRY_DELAY": "-1s"}, "PROVIDER_RETRY_DELAY"},
		{"backoff below one", map[string]string{"PROVIDER_RETRY_BACKOFF": "0.5"}, "PROVIDER_RETRY_BACKOFF"},
		{"provider rps", map[string]string{"PROVIDER_RPS": "-2"}, "PROVIDER_RPS"},
		{"temperature", map[string]string{"PROVIDER_TEMPERATURE": "3"}, "PROVIDER_TEMPERATURE"},
		{"negative cost", map[string]string{"PROVIDER_COST_PER_1K_TOKENS": "-0.1"}, "PROVIDER_COST_PER_1K_TOKENS"},
		{"cache ttl", map[string]string{"CACHE_TTL": "0s"}, "CACHE_TTL"},
		{"scoring delay", map[string]string{"SCORING_DELAY": "-1s"}, "SCORING_DELAY"},
		{"workers", map[string]string{"WORKERS": "0"}, "WORKERS"},
		{"task queue", map[string]string{"TASK_QUEUE": "0"}, "TASK_QUEUE"},
		{"otel sample ratio", map[string]string{"OTEL_TRACES_SAMPLER_ARG": "1.5"}, "OTEL_TRACES_SAMPLER_ARG"},
	}
	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			for k, v := range tc.env {
				t.Setenv(k, v)
			}
			if _, err := Load(); !containsErr(err, tc.want) {
				t.Fatalf("expected error containing %q, got: %v", tc.want, err)
			}
		})
	}
}

func TestHelpers_getenv(t *testing.T) {
	t.Setenv("X_EMPTY", "")
	if getenv("X_EMPTY", "d") != "d" {
		t.Fatalf("getenv should fall back to default on empty var")
	}
	t.Setenv("X_SET", "val")
	if getenv("X_SET", "d") != "val" {
		t.Fatalf("getenv should read set value")
	}
}

func TestHelpers_parsers(t *testing.T) {
	t.Setenv("F_VALID", "3.14")
	if getfloat("F_VALID", 0) != 3.14 {
		t.Fatalf("getfloat parse failed")
	}
	t.Setenv("F_BAD", "nope")
	if getfloat("F_BAD", 1.23) != 1.23 {
		t.Fatalf("getfloat default on bad parse failed")
	}
	t.Setenv("I_VALID", "42")
	if getint("I_VALID", 0) != 42 {
		t.Fatalf("getint parse failed")
	}
	t.Setenv("D_VALID", "150ms")
	if getdur("D_VALID", time.Second) != 150*time.Millisecond {
		t.Fatalf("getdur parse failed")
	}
	t.Setenv("DEC_VALID", " 1.25 ")
	if !getdecimal("DEC_VALID", decimal.Zero).Equal(decimal.RequireFromString("1.25")) {
		t.Fatalf("getdecimal parse failed")
	}
	t.Setenv("DEC_BAD", "one")
	if !getdecimal("DEC_BAD", decimal.NewFromInt(7)).Equal(decimal.NewFromInt(7)) {
		t.Fatalf("getdecimal default on bad parse failed")
	}
}

func TestHelpers_getbool(t *testing.T) {
	for i, v := range []string{"1", "true", "TRUE", " yes ", "Y", "on"} {
		k := "B_T_" + string(rune('a'+i))
		t.Setenv(k, v)
		if !getbool(k, false) {
			t.Fatalf("getbool(%q) = false; want true", v)
		}
	}
	for i, v := range []string{"0", "false", " no ", "N", "off"} {
		k := "B_F_" + string(rune('a'+i))
		t.Setenv(k, v)
		if getbool(k, true) {
			t.Fatalf("getbool(%q) = true; want false", v)
		}
	}
	t.Setenv("B_EMPTY", "")
	if !getbool("B_EMPTY", true) || getbool("B_EMPTY", false) {
		t.Fatalf("getbool default behavior unexpected")
	}
}

func TestHelpers_splitCSV_and_normalizeBasePath(t *testing.T) {
	if out := splitCSV(""); out != nil {
		t.Fatalf("splitCSV empty should return nil")
	}
	if got := splitCSV(" a, ,b ,  c  ,"); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("splitCSV mismatch: %#v", got)
	}
	for in, want := range map[string]string{"": "/", "v1": "/v1", "/v1/": "/v1", " / ": "/"} {
		if got := normalizeBasePath(in); got != want {
			t.Fatalf("normalizeBasePath(%q)=%q want %q", in, got, want)
		}
	}
}

func TestMain(m *testing.M) {
	for _, k := range []string{"PORT", "PROVIDER", "PROVIDER_MODEL", "PROVIDER_BASE_URL", "LOG_LEVEL"} {
		os.Unsetenv(k)
	}
	os.Exit(m.Run())
}

func containsErr(err error, want string) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), want)
}
