package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"cvbuilder/internal/shared/telemetry"
)

// Config holds application configuration.
type Config struct {
	Port            string
	CORSAllowOrigin []string
	Env             string

	ObjectStoreType string
	LocalStoreDir   string
	AWSRegion       string
	S3Bucket        string
	S3Prefix        string
	S3Endpoint      string
	S3AccessKey     string
	S3SecretKey     string
	SSEKMSKeyID     string

	DatabaseURL string

	LLMProvider   string
	LLMModel      string
	LLMTimeout    time.Duration
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GeminiAPIKey  string

	QueueProvider  string
	SQSQueueURL    string
	AMQPURL        string
	AMQPQueue      string
	EventsExchange string

	WorkerConcurrency    int
	SQSVisibilityTimeout time.Duration
	ShutdownTimeout      time.Duration

	JWTSecret          string
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string
	UIRedirectURL      string

	TrialDays            int
	AutosaveDelay        time.Duration
	BillingWebhookSecret string
	TemplatesDir         string
}

const devJWTSecret = "dev-secret"

// Load reads configuration from environment variables with sensible defaults.
func Load() Config {
	// Best-effort load of local env files for dev convenience.
	loadEnvFiles(".env", "cmd/.env")

	env := normalizeEnv(getEnv("ENV", "dev"))
	cfg := Config{
		Port:            getEnv("PORT", "8080"),
		CORSAllowOrigin: splitAndTrim(getEnv("CORS_ALLOW_ORIGINS", "http://localhost:5173")),
		Env:             env,

		ObjectStoreType: normalizeStoreType(getEnv("OBJECT_STORE", "local")),
		LocalStoreDir:   getEnv("LOCAL_STORE_DIR", "./data"),
		AWSRegion:       getEnv("AWS_REGION", ""),
		S3Bucket:        getEnv("S3_BUCKET", ""),
		S3Prefix:        getEnv("S3_PREFIX", ""),
		S3Endpoint:      getEnv("S3_ENDPOINT", ""),
		S3AccessKey:     getEnv("S3_ACCESS_KEY_ID", ""),
		S3SecretKey:     getEnv("S3_SECRET_ACCESS_KEY", ""),
		SSEKMSKeyID:     getEnv("SSE_KMS_KEY_ID", ""),

		DatabaseURL: os.Getenv("DATABASE_URL"),

		LLMProvider:   normalizeLLMProvider(getEnv("LLM_PROVIDER", "placeholder")),
		LLMModel:      getEnv("LLM_MODEL", ""),
		LLMTimeout:    getDuration("LLM_TIMEOUT", 60*time.Second),
		OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com"),
		GeminiAPIKey:  getEnv("GEMINI_API_KEY", ""),

		QueueProvider:  normalizeQueueProvider(getEnv("QUEUE_PROVIDER", "inline")),
		SQSQueueURL:    getEnv("SQS_QUEUE_URL", ""),
		AMQPURL:        getEnv("AMQP_URL", ""),
		AMQPQueue:      getEnv("AMQP_QUEUE", "analyses"),
		EventsExchange: getEnv("EVENTS_EXCHANGE", "analysis_updates"),

		WorkerConcurrency:    max(1, getInt("WORKER_CONCURRENCY", 4)),
		SQSVisibilityTimeout: getDuration("SQS_VISIBILITY_TIMEOUT", 20*time.Minute),
		ShutdownTimeout:      getDuration("SHUTDOWN_TIMEOUT", 30*time.Second),

		JWTSecret:          getEnv("JWT_SECRET", devJWTSecret),
		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
		GoogleRedirectURL:  getEnv("GOOGLE_REDIRECT_URL", ""),
		UIRedirectURL:      getEnv("UI_REDIRECT_URL", ""),

		TrialDays:            getInt("TRIAL_DAYS", 7),
		AutosaveDelay:        getDuration("AUTOSAVE_DELAY", 1500*time.Millisecond),
		BillingWebhookSecret: getEnv("BILLING_WEBHOOK_SECRET", ""),
		TemplatesDir:         getEnv("TEMPLATES_DIR", ""),
	}

	if cfg.IsProduction() {
		if cfg.DatabaseURL == "" {
			telemetry.Error("config.invalid", map[string]any{"key": "DATABASE_URL", "reason": "required in production"})
		}
		if cfg.JWTSecret == devJWTSecret {
			telemetry.Error("config.invalid", map[string]any{"key": "JWT_SECRET", "reason": "dev secret in production"})
		}
	}
	return cfg
}

// IsProduction reports whether the service runs with production settings.
func (c Config) IsProduction() bool {
	return c.Env == "production"
}

// IsDevLike reports whether dev-only routes and memory fallbacks are allowed.
func (c Config) IsDevLike() bool {
	return c.Env == "dev" || c.Env == "local"
}

func getEnv(key, def string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return def
}

func getInt(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		telemetry.Warn("config.default_used", map[string]any{"key": key, "value": raw})
		return def
	}
	return n
}

func getDuration(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		telemetry.Warn("config.default_used", map[string]any{"key": key, "value": raw})
		return def
	}
	return d
}

func splitAndTrim(raw string) []string {
	parts := strings.Split(raw, ",")
	var out []string
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func normalizeEnv(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "production", "prod":
		return "production"
	case "staging":
		return "staging"
	case "local":
		return "local"
	default:
		return "dev"
	}
}

func normalizeStoreType(raw string) string {
	if strings.EqualFold(strings.TrimSpace(raw), "s3") {
		return "s3"
	}
	return "local"
}

func normalizeLLMProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "openai":
		return "openai"
	case "gemini", "google":
		return "gemini"
	default:
		return "placeholder"
	}
}

func normalizeQueueProvider(raw string) string {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "sqs":
		return "sqs"
	case "amqp", "rabbitmq":
		return "amqp"
	default:
		return "inline"
	}
}
