package lineage

import (
	"context"
	"log/slog"

	"github.com/kinlink/lineage/internal/search"
)

// NewQdrantCandidateFinder connects to the Qdrant collection described by
// cfg and returns it as a CandidateFinder for WithCandidateFinder, plus an
// io.Closer-shaped Close for releasing the gRPC connection at shutdown.
// EnsureCollection is called once up front so a fresh deployment doesn't
// need a separate migration step.
func NewQdrantCandidateFinder(ctx context.Context, cfg search.Config, logger *slog.Logger) (*QdrantCandidateFinder, error) {
	idx, err := search.NewIndex(cfg, logger)
	if err != nil {
		return nil, err
	}
	if err := idx.EnsureCollection(ctx); err != nil {
		_ = idx.Close()
		return nil, err
	}
	return &QdrantCandidateFinder{idx: idx}, nil
}

// QdrantCandidateFinder wraps internal/search's Qdrant-backed index as the
// public CandidateFinder extension point, and additionally lets callers
// persist resolved entities' fingerprints so future runs can surface them as
// merge candidates.
type QdrantCandidateFinder struct {
	idx *search.Index
}

// FindSimilar implements CandidateFinder.
func (q *QdrantCandidateFinder) FindSimilar(ctx context.Context, embedding []float32, excludeID string, limit int) ([]string, error) {
	return q.idx.FindSimilar(ctx, embedding, excludeID, limit)
}

// IndexEntity upserts one resolved entity's descriptive embedding into the
// collection, so subsequent runs' FindSimilar calls can surface it as a
// merge candidate. Embedding applications typically call this after Run
// succeeds, once for each entity in the response with a non-empty
// FullName.
func (q *QdrantCandidateFinder) IndexEntity(ctx context.Context, entityID, fullName string, birthYear *int, embedding []float32) error {
	return q.idx.Upsert(ctx, []search.Point{{
		EntityID:  entityID,
		FullName:  fullName,
		BirthYear: birthYear,
		Embedding: embedding,
	}})
}

// Healthy reports whether the underlying Qdrant connection is reachable.
func (q *QdrantCandidateFinder) Healthy(ctx context.Context) error {
	return q.idx.Healthy(ctx)
}

// Close releases the underlying gRPC connection.
func (q *QdrantCandidateFinder) Close() error {
	return q.idx.Close()
}

var _ CandidateFinder = (*QdrantCandidateFinder)(nil)
