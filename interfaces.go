// Package lineage is the public API for the GPS-compliant genealogical
// research pipeline. Embedding applications import this package to register
// sources, optionally supply an Adjudicator, and run research queries
// without reaching into internal/*.
//
// The import graph enforces a strict no-cycle rule: lineage (root) imports
// internal/*, but internal/* never imports lineage (root). Source and
// Adjudicator are the two main consumed interfaces, alongside the optional
// EmbeddingProvider and CandidateFinder; all are defined here against model
// types so implementers outside this module never need to import an internal
// package.
//
//	mgr, err := lineage.New(
//	    lineage.WithLogger(logger),
//	    lineage.WithSource(myParishRegistrySource{}),
//	    lineage.WithSource(myWikiTreeSource{}),
//	    lineage.WithAdjudicator(myLLMAdjudicator{}),
//	)
//	if err != nil { ... }
//	resp, err := mgr.Run(ctx, model.SearchQuery{Surname: "Smith", BirthYear: &year})
package lineage

import (
	"context"

	"github.com/kinlink/lineage/model"
)

// Source is the capability every genealogical data provider implements.
// Implementations must be safe for concurrent Search calls on disjoint
// queries; the core never serializes calls to a single source.
type Source interface {
	Name() string
	Metadata() model.SourceMetadata
	Search(ctx context.Context, query model.SearchQuery) ([]model.RawRecord, error)
}

// CompetingAssertionInput is one candidate value passed to the Adjudicator
// for a contested fact-type field.
type CompetingAssertionInput struct {
	Value       string
	PriorWeight float64
	Patterns    []string
	Penalty     float64
}

// AdjudicateInput is the full context handed to an Adjudicator for one
// contested field on one entity.
type AdjudicateInput struct {
	SubjectID           string
	FactType            string
	CompetingAssertions []CompetingAssertionInput
	SubjectContext      map[string]any
}

// AdjudicateVerdict is the Adjudicator's decision. WinningIndex is only
// meaningful when Status is StatusResolved; it indexes
// AdjudicateInput.CompetingAssertions.
type AdjudicateVerdict struct {
	Status             model.ResolutionStatus
	WinningIndex       *int
	Confidence         float64
	TieBreakerQueries  []string
	Analysis           string
}

// Adjudicator chooses among competing assertions when automatic consensus
// fails. The core treats any non-resolved verdict as conflict-preserving:
// no choice is forced on pending_review, insufficient_evidence, or
// human_review_required.
type Adjudicator interface {
	Adjudicate(ctx context.Context, input AdjudicateInput) (AdjudicateVerdict, error)
}

// EmbeddingProvider is an optional extension point. The verifier uses it for
// fuzzy value matching beyond literal normalization (e.g. "Boston, MA" vs
// "Boston, Massachusetts"); the resolver uses it only to build the query
// vector for a CandidateFinder. When unset, verifier matching falls back to
// exact lowercase/trim comparison.
type EmbeddingProvider interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// CandidateFinder performs approximate-nearest-neighbor lookup over
// previously seen fingerprints. The Entity Resolver uses it, when set, to
// attach merge candidates from earlier runs to entities; clustering itself
// is always exact fingerprint clustering and never requires a
// CandidateFinder.
type CandidateFinder interface {
	FindSimilar(ctx context.Context, embedding []float32, excludeID string, limit int) ([]string, error)
}
