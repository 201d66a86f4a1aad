package config

import (
	"os"
	"strconv"
	"strings"
)

const (
	defaultMaxUploadBytes         = 10 << 20
	defaultKeyConfidenceThreshold = 0.70
)

// Config holds the application configuration
type Config struct {
	// Environment
	Environment string
	Port        string

	// Storage
	DatabaseURL  string // postgres:// URL, otherwise a sqlite file path
	UploadsDir   string
	GeneratedDir string

	// Uploads
	MaxUploadBytes int64

	// LLM API Keys
	OpenAIAPIKey string // OpenAI API key for GPT models
	GeminiAPIKey string // Google Gemini API key

	// Continuation
	ContinuationModel    string
	ContinuationOnUpload bool // generate a continuation for every uploaded file

	// Analysis
	AnalysisLocale         string
	KeyConfidenceThreshold float64
	SuspiciousMeters       string // comma separated, e.g. "1/4,2/4"
	MIDISuppressWarnings   bool
	MIDIAutoDownload       bool

	// Observability
	SentryDSN         string // Sentry DSN for error tracking
	LangfusePublicKey string // Langfuse public key
	LangfuseSecretKey string // Langfuse secret key
	LangfuseHost      string // Langfuse host URL (cloud or self-hosted)
	LangfuseEnabled   bool   // Feature flag for Langfuse

	// HTTP
	CORSAllowedOrigins []string
}

func Load() *Config {
	return &Config{
		Environment:            getEnv("ENVIRONMENT", "development"),
		Port:                   getEnv("PORT", "8080"),
		DatabaseURL:            getEnv("DATABASE_URL", "midi-insight.sqlite3"),
		UploadsDir:             getEnv("UPLOADS_DIR", "data/uploads"),
		GeneratedDir:           getEnv("GENERATED_DIR", "data/generated"),
		MaxUploadBytes:         getEnvInt64("MAX_UPLOAD_BYTES", defaultMaxUploadBytes),
		OpenAIAPIKey:           getEnv("OPENAI_API_KEY", ""),
		GeminiAPIKey:           getEnv("GEMINI_API_KEY", ""),
		ContinuationModel:      getEnv("CONTINUATION_MODEL", "gemini-2.5-flash"),
		ContinuationOnUpload:   getEnvBool("CONTINUATION_ON_UPLOAD", false),
		AnalysisLocale:         getEnv("ANALYSIS_LOCALE", "en"),
		KeyConfidenceThreshold: getEnvFloat("KEY_CONFIDENCE_THRESHOLD", defaultKeyConfidenceThreshold),
		SuspiciousMeters:       getEnv("SUSPICIOUS_METERS", "1/4,2/4"),
		MIDISuppressWarnings:   getEnvBool("MIDI_SUPPRESS_WARNINGS", true),
		MIDIAutoDownload:       getEnvBool("MIDI_AUTO_DOWNLOAD", false),
		SentryDSN:              getEnv("SENTRY_DSN", ""),
		LangfusePublicKey:      getEnv("LANGFUSE_PUBLIC_KEY", ""),
		LangfuseSecretKey:      getEnv("LANGFUSE_SECRET_KEY", ""),
		LangfuseHost:           getEnv("LANGFUSE_HOST", "https://cloud.langfuse.com"),
		LangfuseEnabled:        getEnv("LANGFUSE_ENABLED", "false") == "true",
		CORSAllowedOrigins:     splitList(getEnv("CORS_ALLOWED_ORIGINS", "*")),
	}
}

func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	value, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvInt64(key string, defaultValue int64) int64 {
	value, err := strconv.ParseInt(os.Getenv(key), 10, 64)
	if err != nil || value <= 0 {
		return defaultValue
	}
	return value
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value, err := strconv.ParseFloat(os.Getenv(key), 64)
	if err != nil || value <= 0 || value > 1 {
		return defaultValue
	}
	return value
}

func splitList(s string) []string {
	var out []string
	for _, item := range strings.Split(s, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// IsProduction returns true when running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// UsesPostgres reports whether DatabaseURL points at a postgres server
func (c *Config) UsesPostgres() bool {
	return strings.HasPrefix(c.DatabaseURL, "postgres://") || strings.HasPrefix(c.DatabaseURL, "postgresql://")
}
