package config

import (
	"testing"
)

func TestEnvIntValid(t *testing.T) {
	t.Setenv("TEST_INT", "42")
	v, err := envInt("TEST_INT", 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 42 {
		t.Fatalf("expected 42, got %d", v)
	}
}

func TestEnvIntFallback(t *testing.T) {
	// TEST_INT_MISSING is not set.
	v, err := envInt("TEST_INT_MISSING", 99)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != 99 {
		t.Fatalf("expected fallback 99, got %d", v)
	}
}

func TestEnvIntInvalid(t *testing.T) {
	t.Setenv("TEST_INT_BAD", "abc")
	_, err := envInt("TEST_INT_BAD", 0)
	if err == nil {
		t.Fatal("expected error for non-integer value, got nil")
	}
	if got := err.Error(); got != `TEST_INT_BAD="abc" is not a valid integer` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestEnvBoolValid(t *testing.T) {
	t.Setenv("TEST_BOOL", "true")
	v, err := envBool("TEST_BOOL", false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !v {
		t.Fatal("expected true")
	}
}

func TestEnvBoolInvalid(t *testing.T) {
	t.Setenv("TEST_BOOL_BAD", "maybe")
	_, err := envBool("TEST_BOOL_BAD", false)
	if err == nil {
		t.Fatal("expected error for non-boolean value, got nil")
	}
	if got := err.Error(); got != `TEST_BOOL_BAD="maybe" is not a valid boolean` {
		t.Fatalf("unexpected error message: %s", got)
	}
}

func TestLoadFailsOnInvalidMaxSources(t *testing.T) {
	t.Setenv("LINEAGE_MAX_SOURCES", "abc")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with invalid LINEAGE_MAX_SOURCES")
	}
	if got := err.Error(); !contains(got, "LINEAGE_MAX_SOURCES") || !contains(got, "abc") {
		t.Fatalf("error should mention LINEAGE_MAX_SOURCES and value 'abc', got: %s", got)
	}
}

func TestLoadFailsOnMultipleInvalid(t *testing.T) {
	t.Setenv("LINEAGE_MAX_SOURCES", "abc")
	t.Setenv("LINEAGE_EMBEDDING_DIMENSIONS", "xyz")
	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail with multiple invalid vars")
	}
	got := err.Error()
	if !contains(got, "LINEAGE_MAX_SOURCES") {
		t.Fatalf("error should mention LINEAGE_MAX_SOURCES, got: %s", got)
	}
	if !contains(got, "LINEAGE_EMBEDDING_DIMENSIONS") {
		t.Fatalf("error should mention LINEAGE_EMBEDDING_DIMENSIONS, got: %s", got)
	}
}

func TestLoadSucceedsWithDefaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed with defaults, got: %v", err)
	}
	if cfg.MaxTotalSeconds != 300 {
		t.Fatalf("expected default MaxTotalSeconds 300, got %d", cfg.MaxTotalSeconds)
	}
	if cfg.MaxSources != 20 {
		t.Fatalf("expected default MaxSources 20, got %d", cfg.MaxSources)
	}
	if cfg.EmbeddingProvider != "auto" {
		t.Fatalf("expected default EmbeddingProvider auto, got %q", cfg.EmbeddingProvider)
	}
	if cfg.QdrantURL != "" {
		t.Fatalf("expected empty QdrantURL by default, got %q", cfg.QdrantURL)
	}
}

func contains(s, substr string) bool {
	return len(s) >= len(substr) && searchSubstring(s, substr)
}

func searchSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}

func TestLoad_OTELEndpointParsing(t *testing.T) {
	endpoint := "https://otel.example.com:4317"
	t.Setenv("OTEL_EXPORTER_OTLP_ENDPOINT", endpoint)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.OTELEndpoint != endpoint {
		t.Fatalf("expected OTELEndpoint %q, got %q", endpoint, cfg.OTELEndpoint)
	}
}

func TestLoad_EmbeddingProviderSelection(t *testing.T) {
	t.Setenv("LINEAGE_EMBEDDING_PROVIDER", "ollama")
	t.Setenv("OLLAMA_URL", "http://localhost:11434")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}
	if cfg.EmbeddingProvider != "ollama" {
		t.Fatalf("expected EmbeddingProvider %q, got %q", "ollama", cfg.EmbeddingProvider)
	}
	if cfg.OllamaURL != "http://localhost:11434" {
		t.Fatalf("expected OllamaURL %q, got %q", "http://localhost:11434", cfg.OllamaURL)
	}
}

func TestLoad_QdrantRequiresCollectionName(t *testing.T) {
	t.Setenv("QDRANT_URL", "https://qdrant.example.com:6334")
	t.Setenv("QDRANT_COLLECTION", "")

	_, err := Load()
	if err == nil {
		t.Fatal("expected Load() to fail when QDRANT_URL is set but QDRANT_COLLECTION is empty")
	}
	if !contains(err.Error(), "QDRANT_COLLECTION") {
		t.Fatalf("error should mention QDRANT_COLLECTION, got: %s", err.Error())
	}
}

func TestLoad_QdrantURLOptional(t *testing.T) {
	t.Run("explicit URL", func(t *testing.T) {
		qdrantURL := "https://qdrant.example.com:6334"
		t.Setenv("QDRANT_URL", qdrantURL)

		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected Load() to succeed, got: %v", err)
		}
		if cfg.QdrantURL != qdrantURL {
			t.Fatalf("expected QdrantURL %q, got %q", qdrantURL, cfg.QdrantURL)
		}
	})

	t.Run("empty default", func(t *testing.T) {
		cfg, err := Load()
		if err != nil {
			t.Fatalf("expected Load() to succeed, got: %v", err)
		}
		if cfg.QdrantURL != "" {
			t.Fatalf("expected empty QdrantURL by default, got %q", cfg.QdrantURL)
		}
	})
}

func TestLoad_AllEnvVarsHonored(t *testing.T) {
	t.Setenv("LINEAGE_MAX_TOTAL_SECONDS", "120")
	t.Setenv("LINEAGE_MAX_SOURCES", "5")
	t.Setenv("LINEAGE_MAX_RESULTS", "50")
	t.Setenv("LINEAGE_EMBEDDING_DIMENSIONS", "768")
	t.Setenv("OTEL_SERVICE_NAME", "lineage-test")
	t.Setenv("LINEAGE_LOG_LEVEL", "debug")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("expected Load() to succeed, got: %v", err)
	}

	if cfg.MaxTotalSeconds != 120 {
		t.Fatalf("expected MaxTotalSeconds 120, got %d", cfg.MaxTotalSeconds)
	}
	if cfg.MaxSources != 5 {
		t.Fatalf("expected MaxSources 5, got %d", cfg.MaxSources)
	}
	if cfg.MaxResults != 50 {
		t.Fatalf("expected MaxResults 50, got %d", cfg.MaxResults)
	}
	if cfg.EmbeddingDimensions != 768 {
		t.Fatalf("expected EmbeddingDimensions 768, got %d", cfg.EmbeddingDimensions)
	}
	if cfg.ServiceName != "lineage-test" {
		t.Fatalf("expected ServiceName %q, got %q", "lineage-test", cfg.ServiceName)
	}
	if cfg.LogLevel != "debug" {
		t.Fatalf("expected LogLevel %q, got %q", "debug", cfg.LogLevel)
	}
}
