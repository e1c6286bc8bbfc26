package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kapu/nyaay-triage-go/internal/constants"
)

type Config struct {
	Server     ServerConfig
	OpenAI     OpenAIConfig
	Gemini     GeminiConfig
	Triage     TriageConfig
	Classifier ClassifierConfig
	Catalog    CatalogConfig
	Postgres   PostgresConfig
	Redis      RedisConfig
	Logging    LoggingConfig
}

type ServerConfig struct {
	Addr               string
	RequestTimeout     time.Duration
	MaxAudioBytes      int64
	MaxQueryLength     int
	CORSAllowedOrigins []string
	RateLimitPerSecond float64
	RateLimitBurst     int
}

type OpenAIConfig struct {
	APIKey             string
	Model              string
	TranscriptionModel string
}

type GeminiConfig struct {
	APIKey         string
	Model          string
	EnableFallback bool
}

type TriageConfig struct {
	ClassifyTemperature float32
	AdviceTemperature   float32
	MaxRecommendations  int
}

const (
	ClassifierBackendHTTP    = "http"
	ClassifierBackendKeyword = "keyword"
)

type ClassifierConfig struct {
	Backend   string
	URL       string
	RulesFile string
}

const (
	CatalogSourceCSV      = "csv"
	CatalogSourcePostgres = "postgres"
)

type CatalogConfig struct {
	Source       string
	LawyersCSV   string
	NGOsCSV      string
	LawyersTable string
	NGOsTable    string
	SnapshotTTL  time.Duration
}

type PostgresConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

type LoggingConfig struct {
	Level  string
	Format string
	File   string
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Server: ServerConfig{
			Addr:               getEnv("SERVER_ADDR", ":8000"),
			RequestTimeout:     time.Duration(getEnvInt("REQUEST_TIMEOUT_SECONDS", 60)) * time.Second,
			MaxAudioBytes:      int64(getEnvInt("MAX_AUDIO_BYTES", int(constants.HTTPLimits.MaxAudioBytes))),
			MaxQueryLength:     getEnvInt("MAX_QUERY_LENGTH", constants.HTTPLimits.MaxQueryLength),
			CORSAllowedOrigins: parseCommaSeparated(getEnv("CORS_ALLOWED_ORIGINS", "*")),
			RateLimitPerSecond: getEnvFloat("RATE_LIMIT_PER_SECOND", 5),
			RateLimitBurst:     getEnvInt("RATE_LIMIT_BURST", 10),
		},
		OpenAI: OpenAIConfig{
			APIKey:             getEnv("OPENAI_API_KEY", ""),
			Model:              getEnv("OPENAI_MODEL", constants.ModelDefaults.OpenAIModel),
			TranscriptionModel: getEnv("OPENAI_TRANSCRIPTION_MODEL", constants.ModelDefaults.TranscriptionModel),
		},
		Gemini: GeminiConfig{
			APIKey:         getEnv("GEMINI_API_KEY", ""),
			Model:          getEnv("GEMINI_MODEL", constants.ModelDefaults.GeminiModel),
			EnableFallback: getEnvBool("GEMINI_ENABLE_FALLBACK", true),
		},
		Triage: TriageConfig{
			ClassifyTemperature: float32(getEnvFloat("CLASSIFY_TEMPERATURE", 0.2)),
			AdviceTemperature:   float32(getEnvFloat("ADVICE_TEMPERATURE", 0.6)),
			MaxRecommendations:  getEnvInt("MAX_RECOMMENDATIONS", 5),
		},
		Classifier: ClassifierConfig{
			Backend:   strings.ToLower(getEnv("CLASSIFIER_BACKEND", ClassifierBackendHTTP)),
			URL:       getEnv("CLASSIFIER_URL", "http://localhost:8500"),
			RulesFile: getEnv("CLASSIFIER_RULES_FILE", ""),
		},
		Catalog: CatalogConfig{
			Source:       strings.ToLower(getEnv("CATALOG_SOURCE", CatalogSourceCSV)),
			LawyersCSV:   getEnv("LAWYERS_CSV", "data/lawyers.csv"),
			NGOsCSV:      getEnv("NGOS_CSV", "data/ngos.csv"),
			LawyersTable: getEnv("LAWYERS_TABLE", "lawyers"),
			NGOsTable:    getEnv("NGOS_TABLE", "ngos"),
			SnapshotTTL:  time.Duration(getEnvInt("CATALOG_SNAPSHOT_TTL_MINUTES", int(constants.CatalogConfig.SnapshotTTL/time.Minute))) * time.Minute,
		},
		Postgres: PostgresConfig{
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "nyaay"),
			Password: getEnv("POSTGRES_PASSWORD", ""),
			Database: getEnv("POSTGRES_DB", "nyaay"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Enabled:  getEnvBool("REDIS_ENABLED", false),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnvInt("REDIS_PORT", 6379),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		Logging: LoggingConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "console"),
			File:   getEnv("LOG_FILE", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.OpenAI.APIKey == "" {
		return fmt.Errorf("OPENAI_API_KEY is required")
	}
	if c.Server.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT_SECONDS must be positive")
	}
	if c.Triage.MaxRecommendations <= 0 {
		return fmt.Errorf("MAX_RECOMMENDATIONS must be positive")
	}
	if c.Triage.ClassifyTemperature < 0 || c.Triage.ClassifyTemperature > 2 {
		return fmt.Errorf("CLASSIFY_TEMPERATURE must be between 0 and 2")
	}
	if c.Triage.AdviceTemperature < 0 || c.Triage.AdviceTemperature > 2 {
		return fmt.Errorf("ADVICE_TEMPERATURE must be between 0 and 2")
	}

	switch c.Classifier.Backend {
	case ClassifierBackendHTTP:
		if c.Classifier.URL == "" {
			return fmt.Errorf("CLASSIFIER_URL is required for the http classifier backend")
		}
	case ClassifierBackendKeyword:
	default:
		return fmt.Errorf("unknown CLASSIFIER_BACKEND %q", c.Classifier.Backend)
	}

	switch c.Catalog.Source {
	case CatalogSourceCSV:
		if c.Catalog.LawyersCSV == "" || c.Catalog.NGOsCSV == "" {
			return fmt.Errorf("LAWYERS_CSV and NGOS_CSV are required for the csv catalog source")
		}
	case CatalogSourcePostgres:
		if c.Postgres.Host == "" || c.Postgres.Database == "" {
			return fmt.Errorf("POSTGRES_HOST and POSTGRES_DB are required for the postgres catalog source")
		}
	default:
		return fmt.Errorf("unknown CATALOG_SOURCE %q", c.Catalog.Source)
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 64); err == nil {
			return floatVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

func parseCommaSeparated(value string) []string {
	if value == "" {
		return []string{}
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}
