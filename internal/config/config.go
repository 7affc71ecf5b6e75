// Package config loads and validates application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds the configuration for an application that embeds the
// research pipeline.
type Config struct {
	// Budget caps, mirroring lineage.WithBudgetCaps.
	MaxTotalSeconds int
	MaxSources      int
	MaxResults      int

	// Embedding provider settings.
	EmbeddingProvider   string // "auto", "openai", "ollama", or "noop"
	OpenAIAPIKey        string
	EmbeddingModel      string
	EmbeddingDimensions int // Vector dimensions; must match the chosen model's output.
	OllamaURL           string
	OllamaModel         string

	// OTEL settings.
	OTELEndpoint string
	OTELInsecure bool // Use HTTP instead of HTTPS for OTEL exporter (default: false).
	ServiceName  string

	// Qdrant vector search settings. Optional: when QdrantURL is empty the
	// resolver falls back to exact fingerprint clustering with no
	// CandidateFinder.
	QdrantURL        string // gRPC-compatible URL (e.g. "https://xyz.cloud.qdrant.io:6334")
	QdrantAPIKey     string
	QdrantCollection string

	// Operational settings.
	LogLevel string
}

// Load reads configuration from environment variables with sensible defaults.
// Returns an error if any environment variable contains an unparseable value.
// Missing variables use sensible defaults; only malformed values are rejected.
func Load() (Config, error) {
	// Best-effort .env loading; production deployments set real env vars and
	// won't have a .env file to find.
	_ = godotenv.Load()

	var errs []error
	cfg := Config{
		EmbeddingProvider: envStr("LINEAGE_EMBEDDING_PROVIDER", "auto"),
		OpenAIAPIKey:      envStr("OPENAI_API_KEY", ""),
		EmbeddingModel:    envStr("LINEAGE_EMBEDDING_MODEL", "text-embedding-3-small"),
		OllamaURL:         envStr("OLLAMA_URL", "http://localhost:11434"),
		OllamaModel:       envStr("OLLAMA_MODEL", "mxbai-embed-large"),
		OTELEndpoint:      envStr("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
		ServiceName:       envStr("OTEL_SERVICE_NAME", "lineage"),
		QdrantURL:         envStr("QDRANT_URL", ""),
		QdrantAPIKey:      envStr("QDRANT_API_KEY", ""),
		QdrantCollection:  envStr("QDRANT_COLLECTION", "lineage_fingerprints"),
		LogLevel:          envStr("LINEAGE_LOG_LEVEL", "info"),
	}
	// An explicitly empty QDRANT_COLLECTION stays empty so Validate rejects it.
	if v, ok := os.LookupEnv("QDRANT_COLLECTION"); ok && v == "" {
		cfg.QdrantCollection = ""
	}

	cfg.MaxTotalSeconds, errs = collectInt(errs, "LINEAGE_MAX_TOTAL_SECONDS", 300)
	cfg.MaxSources, errs = collectInt(errs, "LINEAGE_MAX_SOURCES", 20)
	cfg.MaxResults, errs = collectInt(errs, "LINEAGE_MAX_RESULTS", 500)
	cfg.EmbeddingDimensions, errs = collectInt(errs, "LINEAGE_EMBEDDING_DIMENSIONS", 1024)

	cfg.OTELInsecure, errs = collectBool(errs, "OTEL_EXPORTER_OTLP_INSECURE", false)

	if len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return Config{}, fmt.Errorf("config: invalid environment variables:\n  %s", strings.Join(msgs, "\n  "))
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// collectInt parses an int env var, appending any error to the accumulator.
func collectInt(errs []error, key string, fallback int) (int, []error) {
	v, err := envInt(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// collectBool parses a bool env var, appending any error to the accumulator.
func collectBool(errs []error, key string, fallback bool) (bool, []error) {
	v, err := envBool(key, fallback)
	if err != nil {
		errs = append(errs, err)
	}
	return v, errs
}

// Validate checks that required configuration is present and sane.
func (c Config) Validate() error {
	var errs []error

	if c.EmbeddingDimensions <= 0 {
		errs = append(errs, errors.New("config: LINEAGE_EMBEDDING_DIMENSIONS must be positive"))
	}
	if c.MaxTotalSeconds <= 0 {
		errs = append(errs, errors.New("config: LINEAGE_MAX_TOTAL_SECONDS must be positive"))
	}
	if c.MaxSources <= 0 {
		errs = append(errs, errors.New("config: LINEAGE_MAX_SOURCES must be positive"))
	}
	if c.MaxResults <= 0 {
		errs = append(errs, errors.New("config: LINEAGE_MAX_RESULTS must be positive"))
	}
	if c.QdrantURL != "" && c.QdrantCollection == "" {
		errs = append(errs, errors.New("config: QDRANT_COLLECTION is required when QDRANT_URL is set"))
	}

	return errors.Join(errs...)
}

func envStr(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s=%q is not a valid integer", key, v)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s=%q is not a valid boolean", key, v)
	}
	return b, nil
}
