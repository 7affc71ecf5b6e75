package embedding

import "context"

// LineageAdapter exposes a Provider as the single-vector Embed(ctx, text)
// shape the research pipeline's EmbeddingProvider extension point expects,
// unwrapping the pgvector.Vector result to a plain []float32.
type LineageAdapter struct {
	Provider Provider
}

// Embed generates one embedding for text.
func (a LineageAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	vec, err := a.Provider.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	return vec.Slice(), nil
}
