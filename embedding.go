package lineage

import (
	"fmt"

	"github.com/kinlink/lineage/internal/service/embedding"
)

// NewOpenAIEmbeddingProvider builds an EmbeddingProvider backed by the
// OpenAI embeddings API, suitable for WithEmbeddingProvider. dimensions
// should match the chosen model's output size (e.g. 1536 for
// text-embedding-3-small); pass 0 to accept that default.
func NewOpenAIEmbeddingProvider(apiKey, model string, dimensions int) (EmbeddingProvider, error) {
	p, err := embedding.NewOpenAIProvider(apiKey, model, dimensions)
	if err != nil {
		return nil, fmt.Errorf("lineage: new openai embedding provider: %w", err)
	}
	return embedding.LineageAdapter{Provider: p}, nil
}

// NewOllamaEmbeddingProvider builds an EmbeddingProvider backed by a local
// Ollama server, suitable for WithEmbeddingProvider. dimensions must match
// the chosen model's native output size (e.g. 1024 for mxbai-embed-large).
func NewOllamaEmbeddingProvider(baseURL, model string, dimensions int) EmbeddingProvider {
	return embedding.LineageAdapter{Provider: embedding.NewOllamaProvider(baseURL, model, dimensions)}
}

// NewNoopEmbeddingProvider builds an EmbeddingProvider that always reports
// embedding.ErrNoProvider, for deployments that want fuzzy matching wired
// through configuration without a live embedding backend. The resolver and
// verifier both treat an Embed error as "fall back to exact matching," so
// this is equivalent to leaving WithEmbeddingProvider unset but lets callers
// select providers uniformly from configuration.
func NewNoopEmbeddingProvider(dims int) EmbeddingProvider {
	return embedding.LineageAdapter{Provider: embedding.NewNoopProvider(dims)}
}
