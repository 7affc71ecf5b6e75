// Package registry implements the source registry and router: it holds the
// process-local map of source name to handle and ranks sources for a query
// by region and record-type affinity.
package registry

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/kinlink/lineage/model"
)

// Handle is the capability a registered source exposes to the router and
// executor. It mirrors the root Source interface without importing it, so
// this package never imports the root package (no import cycle).
type Handle interface {
	Name() string
	Metadata() model.SourceMetadata
}

// Registry maps source name to handle. Safe for concurrent use; the map is
// read-only during a run and mutated only by Register, which callers are
// expected to serialize outside of runs.
type Registry struct {
	mu      sync.RWMutex
	sources map[string]Handle
}

// New returns an empty Registry.
func New() *Registry {
	return &Registry{sources: make(map[string]Handle)}
}

// Register adds a source handle. Registering a second source under a name
// already in use overwrites the first.
func (r *Registry) Register(h Handle) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[h.Name()] = h
}

// Lookup returns the handle for name, or false if no source is registered
// under that name.
func (r *Registry) Lookup(name string) (Handle, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	h, ok := r.sources[name]
	return h, ok
}

// Names returns every registered source name in no particular order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.sources))
	for name := range r.sources {
		out = append(out, name)
	}
	return out
}

// originalKeywords classify a source as tier-bonus eligible for ranking
// purposes. This mirrors the "original" tier keyword set used by the
// verifier, without requiring a full tier classification here.
var originalKeywords = []string{"parish", "civil", "church", "archive"}

func tierBonus(name string) int {
	lower := strings.ToLower(name)
	for _, kw := range originalKeywords {
		if strings.Contains(lower, kw) {
			return 1
		}
	}
	return 0
}

// RankSourcesForQuery ranks every registered source for query against the
// inferred region. Priority = 2*region_match + record_type_matches +
// tier_bonus. The result is stably sorted by descending priority, then by
// source name ascending, so identical inputs always yield identical plans.
func (r *Registry) RankSourcesForQuery(query model.SearchQuery, region model.Region) []model.RankedSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ranked := make([]model.RankedSource, 0, len(r.sources))
	for name, h := range r.sources {
		meta := h.Metadata()
		regionMatch := 0
		if meta.SupportsRegion(region) {
			regionMatch = 1
		}
		priority := 2*regionMatch + meta.MatchingRecordTypes(query.RecordTypes) + tierBonus(name)
		ranked = append(ranked, model.RankedSource{Name: name, Priority: priority})
	}

	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].Priority != ranked[j].Priority {
			return ranked[i].Priority > ranked[j].Priority
		}
		return ranked[i].Name < ranked[j].Name
	})
	return ranked
}

// ErrNotRegistered is the sentinel that NotRegisteredError wraps with the
// source name.
var ErrNotRegistered = fmt.Errorf("source not registered")

// NotRegisteredError reports that name has no registered handle.
func NotRegisteredError(name string) error {
	return fmt.Errorf("registry: source %q: %w", name, ErrNotRegistered)
}
