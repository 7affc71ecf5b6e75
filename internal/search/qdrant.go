// Package search provides an approximate-nearest-neighbor CandidateFinder
// backed by Qdrant, used by the entity resolver to surface merge candidates
// from earlier runs' indexed fingerprints.
package search

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/qdrant/go-client/qdrant"
)

// Config holds the connection parameters for a Qdrant collection.
type Config struct {
	URL        string // e.g. "https://xyz.cloud.qdrant.io:6333" or "http://localhost:6333"
	APIKey     string
	Collection string
	Dims       uint64
}

// Point is one entity fingerprint's embedding, upserted after a resolver run
// so future runs can find it as a merge candidate.
type Point struct {
	EntityID  string
	FullName  string
	BirthYear *int
	Embedding []float32
}

// Index implements the resolver's CandidateFinder interface against a
// Qdrant collection.
type Index struct {
	client     *qdrant.Client
	collection string
	dims       uint64
	logger     *slog.Logger

	healthMu  sync.Mutex
	lastCheck time.Time
	lastErr   error
}

// parseURL extracts host, port, and TLS flag from a Qdrant URL. Accepts
// forms like "https://host:6333" or "http://host:6333"; a URL without a
// scheme is rejected.
func parseURL(rawURL string) (host string, port int, useTLS bool, err error) {
	u, parseErr := url.Parse(rawURL)
	if parseErr != nil || u.Host == "" {
		return "", 0, false, fmt.Errorf("search: invalid qdrant URL: %q", rawURL)
	}

	useTLS = u.Scheme == "https"
	host = u.Hostname()

	if portStr := u.Port(); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return "", 0, false, fmt.Errorf("search: invalid port in qdrant URL: %q", portStr)
		}
		if p == 6333 {
			port = 6334 // REST port specified; use the gRPC port instead.
		} else {
			port = p
		}
	} else {
		port = 6334
	}

	return host, port, useTLS, nil
}

// NewIndex connects to the Qdrant server at cfg.URL via gRPC.
func NewIndex(cfg Config, logger *slog.Logger) (*Index, error) {
	host, port, useTLS, err := parseURL(cfg.URL)
	if err != nil {
		return nil, err
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   host,
		Port:   port,
		APIKey: cfg.APIKey,
		UseTLS: useTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("search: connect to qdrant at %s:%d: %w", host, port, err)
	}

	return &Index{
		client:     client,
		collection: cfg.Collection,
		dims:       cfg.Dims,
		logger:     logger,
	}, nil
}

// EnsureCollection creates the collection if it doesn't already exist, with
// HNSW parameters tuned for cosine similarity over name/place embeddings.
func (idx *Index) EnsureCollection(ctx context.Context) error {
	exists, err := idx.client.CollectionExists(ctx, idx.collection)
	if err != nil {
		return fmt.Errorf("search: check collection exists: %w", err)
	}
	if exists {
		idx.logger.Info("qdrant: collection already exists", "collection", idx.collection)
		return nil
	}

	m := uint64(16)
	efConstruct := uint64(128)

	err = idx.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: idx.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     idx.dims,
			Distance: qdrant.Distance_Cosine,
			HnswConfig: &qdrant.HnswConfigDiff{
				M:           &m,
				EfConstruct: &efConstruct,
			},
		}),
	})
	if err != nil {
		return fmt.Errorf("search: create collection %q: %w", idx.collection, err)
	}

	keywordType := qdrant.FieldType_FieldTypeKeyword
	if _, err := idx.client.CreateFieldIndex(ctx, &qdrant.CreateFieldIndexCollection{
		CollectionName: idx.collection,
		FieldName:      "full_name",
		FieldType:      &keywordType,
	}); err != nil {
		return fmt.Errorf("search: create index on full_name: %w", err)
	}

	idx.logger.Info("qdrant: created collection with payload index", "collection", idx.collection, "dims", idx.dims)
	return nil
}

// FindSimilar implements resolver.CandidateFinder: it returns entity
// fingerprint IDs whose stored embeddings are closest to embedding,
// excluding excludeID, capped to limit.
func (idx *Index) FindSimilar(ctx context.Context, embedding []float32, excludeID string, limit int) ([]string, error) {
	fetchLimit := uint64(limit) + 1 // over-fetch by one in case excludeID is itself a near-neighbor
	scored, err := idx.client.Query(ctx, &qdrant.QueryPoints{
		CollectionName: idx.collection,
		Query:          qdrant.NewQueryDense(embedding),
		Limit:          &fetchLimit,
		WithPayload:    qdrant.NewWithPayload(false),
	})
	if err != nil {
		return nil, fmt.Errorf("search: qdrant query: %w", err)
	}

	ids := make([]string, 0, len(scored))
	for _, sp := range scored {
		id := sp.Id.GetUuid()
		if id == "" || id == excludeID {
			continue
		}
		ids = append(ids, id)
		if len(ids) >= limit {
			break
		}
	}
	return ids, nil
}

// Upsert inserts or updates entity fingerprint points in Qdrant.
func (idx *Index) Upsert(ctx context.Context, points []Point) error {
	if len(points) == 0 {
		return nil
	}

	qdrantPoints := make([]*qdrant.PointStruct, len(points))
	for i, p := range points {
		payload := map[string]any{"full_name": p.FullName}
		if p.BirthYear != nil {
			payload["birth_year"] = float64(*p.BirthYear)
		}
		qdrantPoints[i] = &qdrant.PointStruct{
			Id:      qdrant.NewID(p.EntityID),
			Vectors: qdrant.NewVectorsDense(p.Embedding),
			Payload: qdrant.NewValueMap(payload),
		}
	}

	_, err := idx.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: idx.collection,
		Wait:           qdrant.PtrOf(true),
		Points:         qdrantPoints,
	})
	if err != nil {
		return fmt.Errorf("search: qdrant upsert %d points: %w", len(points), err)
	}
	return nil
}

// Healthy returns nil if Qdrant is reachable. Results are cached for 5
// seconds to avoid hammering the health endpoint on every resolver run.
func (idx *Index) Healthy(ctx context.Context) error {
	idx.healthMu.Lock()
	defer idx.healthMu.Unlock()

	if time.Since(idx.lastCheck) < 5*time.Second {
		return idx.lastErr
	}

	_, err := idx.client.HealthCheck(ctx)
	idx.lastCheck = time.Now()
	if err != nil {
		idx.lastErr = fmt.Errorf("search: qdrant unhealthy: %w", err)
	} else {
		idx.lastErr = nil
	}
	return idx.lastErr
}

// Close shuts down the Qdrant gRPC connection.
func (idx *Index) Close() error {
	return idx.client.Close()
}
