// Package config provides application configuration loaded from environment
// variables with defaults and validation. It centralizes server timeouts,
// logging, storage paths, rate limiting, observability, and the settings of
// the messaging pipeline (LLM provider, Twilio, flow timeouts, worker).
package config

import (
	"errors"
	"os"
	"strconv"
	"strings"
	"time"
)

// LLM provider names accepted by LLM_PROVIDER.
const (
	ProviderOpenAI  = "openai"
	ProviderGemini  = "gemini"
	ProviderOffline = "offline"
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
	ServiceName string  // OTEL_SERVICE_NAME (e.g. "powerpulse-backend")
	SampleRatio float64 // OTEL_TRACES_SAMPLER_ARG in [0..1]
}

// TwilioConfig holds the WhatsApp channel credentials.
type TwilioConfig struct {
	AccountSID        string // TWILIO_ACCOUNT_SID
	AuthToken         string // TWILIO_AUTH_TOKEN
	WhatsAppFrom      string // TWILIO_WHATSAPP_NUMBER, with or without "whatsapp:"
	DefaultTo         string // TWILIO_WHATSAPP_TO, used when a request has no sender
	ValidateSignature bool   // TWILIO_VALIDATE_SIGNATURE
	DryRun            bool   // DISPATCH_DRY_RUN; defaults to true without credentials
}

// LLMConfig selects and configures the language model provider.
type LLMConfig struct {
	Provider         string // openai|gemini|offline
	OpenAIKey        string
	OpenAIModel      string
	OpenAIImageModel string
	OpenAIBaseURL    string
	GeminiKey        string
	GeminiModel      string
	ImagesEnabled    bool
}

// FlowConfig holds the per-stage limits of the routing state machine.
type FlowConfig struct {
	ClassifyTimeout time.Duration
	GenerateTimeout time.Duration
	PersistTimeout  time.Duration
	DispatchTimeout time.Duration
	MaxBodyRunes    int
}

// WorkerConfig bounds background processing of inbound messages.
type WorkerConfig struct {
	MaxInflight int
	TaskTimeout time.Duration
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
	ShutdownTimeout   time.Duration // grace period for HTTP + worker drain

	// Logging / Docs / Admin
	LogLevel        string // debug|info|warn|error|fatal|panic
	LogPretty       bool   // pretty console logs in dev
	SwaggerEnabled  bool   // enable Swagger UI route
	SimulateEnabled bool   // enable POST {api}/flow/run
	APIBasePath     string // base path for API routes

	// Storage
	DBPath        string // SQLite path
	KnowledgePath string // optional energy tips markdown; embedded copy when empty
	MediaRoot     string // directory for archived images, served under /media
	PublicBaseURL string // externally reachable base URL of this service

	// Inbound de-duplication
	RedisURL      string        // optional; database claims when empty
	InboundDedupe time.Duration // INBOUND_DEDUPE_TTL
	PurgeInterval time.Duration // how often expired DB claims are removed

	// Rate limiting
	RateRPS   float64 // tokens per second (>= 0)
	RateBurst int     // bucket size (>= 1)

	// Web protection
	CORS     CORSConfig
	Security SecurityConfig

	// Pipeline
	Twilio TwilioConfig
	LLM    LLMConfig
	Flow   FlowConfig
	Worker WorkerConfig

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
	sid := getenv("TWILIO_ACCOUNT_SID", "")
	openAIKey := getenv("OPENAI_API_KEY", "")
	geminiKey := getenv("GEMINI_API_KEY", "")
	defaultProvider := ProviderOffline
	switch {
	case openAIKey != "":
		defaultProvider = ProviderOpenAI
	case geminiKey != "":
		defaultProvider = ProviderGemini
	}

	cfg := Config{
		// Server
		Port:              getenv("PORT", "8080"),
		ReadTimeout:       getdur("READ_TIMEOUT", 15*time.Second),
		ReadHeaderTimeout: getdur("READ_HEADER_TIMEOUT", 10*time.Second),
		WriteTimeout:      getdur("WRITE_TIMEOUT", 20*time.Second),
		IdleTimeout:       getdur("IDLE_TIMEOUT", 60*time.Second),
		MaxHeaderBytes:    getint("MAX_HEADER_BYTES", 1<<20),
		GinMode:           strings.ToLower(getenv("GIN_MODE", "release")),
		ShutdownTimeout:   getdur("SHUTDOWN_TIMEOUT", 30*time.Second),

		// Logging / Docs / Admin
		LogLevel:        strings.ToLower(getenv("LOG_LEVEL", "info")),
		LogPretty:       getbool("LOG_PRETTY", false),
		SwaggerEnabled:  getbool("SWAGGER_ENABLED", false),
		SimulateEnabled: getbool("SIMULATE_ENABLED", false),
		APIBasePath:     normalizeBasePath(getenv("API_BASE_PATH", "/api/v1")),

		// Storage
		DBPath:        getenv("DB_PATH", "powerpulse.db"),
		KnowledgePath: getenv("KNOWLEDGE_PATH", ""),
		MediaRoot:     getenv("MEDIA_ROOT", "media"),
		PublicBaseURL: strings.TrimRight(getenv("PUBLIC_BASE_URL", "http://localhost:8080"), "/"),

		RedisURL:      getenv("REDIS_URL", ""),
		InboundDedupe: getdur("INBOUND_DEDUPE_TTL", 24*time.Hour),
		PurgeInterval: getdur("INBOUND_PURGE_INTERVAL", time.Hour),

		// Rate limiting
		RateRPS:   getfloat("RATE_RPS", 1.0),
		RateBurst: getint("RATE_BURST", 5),

		// Web protection
		CORS: CORSConfig{
			AllowedOrigins: splitCSV(getenv("CORS_ALLOWED_ORIGINS", "")),
		},
		Security: SecurityConfig{
			EnableHSTS: getbool("ENABLE_HSTS", false),
			HSTSMaxAge: getdur("HSTS_MAX_AGE", 180*24*time.Hour),
		},

		Twilio: TwilioConfig{
			AccountSID:        sid,
			AuthToken:         getenv("TWILIO_AUTH_TOKEN", ""),
			WhatsAppFrom:      getenv("TWILIO_WHATSAPP_NUMBER", ""),
			DefaultTo:         getenv("TWILIO_WHATSAPP_TO", ""),
			ValidateSignature: getbool("TWILIO_VALIDATE_SIGNATURE", false),
			DryRun:            getbool("DISPATCH_DRY_RUN", sid == ""),
		},

		LLM: LLMConfig{
			Provider:         strings.ToLower(getenv("LLM_PROVIDER", defaultProvider)),
			OpenAIKey:        openAIKey,
			OpenAIModel:      getenv("OPENAI_MODEL", "gpt-4o-mini"),
			OpenAIImageModel: getenv("OPENAI_IMAGE_MODEL", "dall-e-3"),
			OpenAIBaseURL:    getenv("OPENAI_BASE_URL", ""),
			GeminiKey:        geminiKey,
			GeminiModel:      getenv("GEMINI_MODEL", "gemini-2.0-flash"),
			ImagesEnabled:    getbool("IMAGES_ENABLED", true),
		},

		Flow: FlowConfig{
			ClassifyTimeout: getdur("CLASSIFY_TIMEOUT", 20*time.Second),
			GenerateTimeout: getdur("GENERATE_TIMEOUT", 120*time.Second),
			PersistTimeout:  getdur("PERSIST_TIMEOUT", 5*time.Second),
			DispatchTimeout: getdur("DISPATCH_TIMEOUT", 30*time.Second),
			MaxBodyRunes:    getint("MAX_BODY_RUNES", 1600),
		},

		Worker: WorkerConfig{
			MaxInflight: getint("WORKER_MAX_INFLIGHT", 8),
			TaskTimeout: getdur("TASK_TIMEOUT", 4*time.Minute),
		},

		// Observability (OpenTelemetry)
		OTEL: OTELConfig{
			Enabled:     getbool("OTEL_ENABLED", false),
			Endpoint:    getenv("OTEL_EXPORTER_OTLP_ENDPOINT", "localhost:4317"),
			Insecure:    getbool("OTEL_EXPORTER_OTLP_INSECURE", true),
			ServiceName: getenv("OTEL_SERVICE_NAME", "powerpulse-backend"),
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
	if cfg.ShutdownTimeout <= 0 {
		return cfg, errors.New("SHUTDOWN_TIMEOUT must be > 0")
	}
	if cfg.MaxHeaderBytes <= 0 {
		return cfg, errors.New("MAX_HEADER_BYTES must be > 0")
	}
	if strings.TrimSpace(cfg.DBPath) == "" {
		return cfg, errors.New("DB_PATH must not be empty")
	}
	if strings.TrimSpace(cfg.MediaRoot) == "" {
		return cfg, errors.New("MEDIA_ROOT must not be empty")
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
	if cfg.InboundDedupe <= 0 {
		return cfg, errors.New("INBOUND_DEDUPE_TTL must be > 0")
	}
	if cfg.PurgeInterval <= 0 {
		return cfg, errors.New("INBOUND_PURGE_INTERVAL must be > 0")
	}
	if cfg.OTEL.SampleRatio < 0 || cfg.OTEL.SampleRatio > 1 {
		return cfg, errors.New("OTEL_TRACES_SAMPLER_ARG must be in [0,1]")
	}

	switch cfg.LLM.Provider {
	case ProviderOpenAI:
		if cfg.LLM.OpenAIKey == "" {
			return cfg, errors.New("OPENAI_API_KEY is required when LLM_PROVIDER=openai")
		}
	case ProviderGemini:
		if cfg.LLM.GeminiKey == "" {
			return cfg, errors.New("GEMINI_API_KEY is required when LLM_PROVIDER=gemini")
		}
	case ProviderOffline:
	default:
		return cfg, errors.New("LLM_PROVIDER must be one of: openai, gemini, offline")
	}

	if !cfg.Twilio.DryRun {
		if cfg.Twilio.AccountSID == "" || cfg.Twilio.AuthToken == "" || cfg.Twilio.WhatsAppFrom == "" {
			return cfg, errors.New("TWILIO_ACCOUNT_SID, TWILIO_AUTH_TOKEN and TWILIO_WHATSAPP_NUMBER are required unless DISPATCH_DRY_RUN is set")
		}
	}
	if cfg.Twilio.ValidateSignature && cfg.Twilio.AuthToken == "" {
		return cfg, errors.New("TWILIO_VALIDATE_SIGNATURE requires TWILIO_AUTH_TOKEN")
	}

	if cfg.Flow.ClassifyTimeout <= 0 || cfg.Flow.GenerateTimeout <= 0 ||
		cfg.Flow.PersistTimeout <= 0 || cfg.Flow.DispatchTimeout <= 0 {
		return cfg, errors.New("flow stage timeouts must be positive durations")
	}
	if cfg.Flow.MaxBodyRunes < 0 {
		return cfg, errors.New("MAX_BODY_RUNES must be >= 0")
	}
	if cfg.Worker.MaxInflight < 1 {
		return cfg, errors.New("WORKER_MAX_INFLIGHT must be >= 1")
	}
	if cfg.Worker.TaskTimeout <= 0 {
		return cfg, errors.New("TASK_TIMEOUT must be > 0")
	}

	return cfg, nil
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
