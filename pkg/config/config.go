package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Server         ServerConfig
	OCR            OCRConfig
	Categorization CategorizationConfig
	Normalizer     NormalizerConfig
	Cache          CacheConfig
	Ingest         IngestConfig
	Observability  ObservabilityConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	RateLimitPerSecond int
	RateLimitBurst     int
	MaxUploadBytes     int64
	CORSOrigins        []string
	ShutdownTimeout    time.Duration
}

type OCRConfig struct {
	Backend            string
	Language           string
	Timeout            time.Duration
	TesseractPath      string
	OllamaURL          string
	OllamaModel        string
	GeminiAPIKey       string
	GeminiModel        string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

type CategorizationConfig struct {
	// TaxonomyPath points at a YAML keyword table. Empty uses the built-in table.
	TaxonomyPath string
}

type NormalizerConfig struct {
	KnownVendors []string
	Threshold    int
}

type CacheConfig struct {
	TTL       time.Duration
	SweepSpec string
}

type IngestConfig struct {
	BatchConcurrency  int
	BlockedExtensions []string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
	LogLevel       string
}

var (
	ErrInvalidPort        = errors.New("server port must be between 1 and 65535")
	ErrInvalidConcurrency = errors.New("batch concurrency must be at least 1")
	ErrMissingGeminiKey   = errors.New("RECEIPTS_GEMINI_API_KEY is required for the gemini backend")
	ErrInvalidUploadLimit = errors.New("max upload size must be positive")
)

// Load reads a .env file when present, then configuration from environment variables
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FromEnv builds a Config from the environment without validating it.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Host:               getEnv("RECEIPTS_HOST", "localhost"),
			Port:               getEnvAsInt("RECEIPTS_PORT", 8080),
			RateLimitPerSecond: getEnvAsInt("RECEIPTS_RATE_LIMIT_PER_SECOND", 20),
			RateLimitBurst:     getEnvAsInt("RECEIPTS_RATE_LIMIT_BURST", 40),
			MaxUploadBytes:     int64(getEnvAsInt("RECEIPTS_MAX_UPLOAD_BYTES", 20<<20)),
			CORSOrigins:        getEnvAsList("RECEIPTS_CORS_ORIGINS", []string{"*"}),
			ShutdownTimeout:    getEnvAsDuration("RECEIPTS_SHUTDOWN_TIMEOUT", 15*time.Second),
		},
		OCR: OCRConfig{
			Backend:            getEnv("RECEIPTS_OCR_BACKEND", "tesseract"),
			Language:           getEnv("RECEIPTS_OCR_LANGUAGE", "eng"),
			Timeout:            getEnvAsDuration("RECEIPTS_OCR_TIMEOUT", 2*time.Minute),
			TesseractPath:      getEnv("RECEIPTS_TESSERACT_PATH", "tesseract"),
			OllamaURL:          getEnv("RECEIPTS_OLLAMA_URL", "http://localhost:11434"),
			OllamaModel:        getEnv("RECEIPTS_OLLAMA_MODEL", "llava"),
			GeminiAPIKey:       getEnv("RECEIPTS_GEMINI_API_KEY", ""),
			GeminiModel:        getEnv("RECEIPTS_GEMINI_MODEL", "gemini-2.5-flash"),
			RateLimitPerSecond: getEnvAsFloat("RECEIPTS_OCR_RATE_LIMIT_PER_SECOND", 2),
			RateLimitBurst:     getEnvAsInt("RECEIPTS_OCR_RATE_LIMIT_BURST", 4),
		},
		Categorization: CategorizationConfig{
			TaxonomyPath: getEnv("RECEIPTS_TAXONOMY_PATH", ""),
		},
		Normalizer: NormalizerConfig{
			KnownVendors: getEnvAsList("RECEIPTS_KNOWN_VENDORS", nil),
			Threshold:    getEnvAsInt("RECEIPTS_VENDOR_MATCH_THRESHOLD", 70),
		},
		Cache: CacheConfig{
			TTL:       getEnvAsDuration("RECEIPTS_CACHE_TTL", 5*time.Minute),
			SweepSpec: getEnv("RECEIPTS_CACHE_SWEEP_SPEC", "@every 1m"),
		},
		Ingest: IngestConfig{
			BatchConcurrency:  getEnvAsInt("RECEIPTS_BATCH_CONCURRENCY", 4),
			BlockedExtensions: getEnvAsList("RECEIPTS_BLOCKED_EXTENSIONS", nil),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("RECEIPTS_METRICS_ENABLED", true),
			LogLevel:       getEnv("RECEIPTS_LOG_LEVEL", "info"),
		},
	}
}

// Validate checks values that would otherwise fail late at runtime.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return ErrInvalidPort
	}
	if c.Server.MaxUploadBytes <= 0 {
		return ErrInvalidUploadLimit
	}
	if c.Ingest.BatchConcurrency < 1 {
		return ErrInvalidConcurrency
	}
	if strings.EqualFold(c.OCR.Backend, "gemini") && c.OCR.GeminiAPIKey == "" {
		return ErrMissingGeminiKey
	}
	return nil
}

// Addr returns the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated value, dropping blanks.
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
