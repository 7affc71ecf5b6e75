package lineage

import (
	"log/slog"
)

// Option configures a Manager.
type Option func(*resolvedOptions)

// resolvedOptions holds all extension points after applying defaults.
// Unexported — callers use the With* functions.
type resolvedOptions struct {
	logger              *slog.Logger
	sources             []Source
	adjudicator         Adjudicator
	embeddingProvider   EmbeddingProvider
	candidateFinder     CandidateFinder
	temporalProximityFn func(yearA, yearB int) float64
	errorPatternFn      func(value string) []string
	maxTotalSeconds     int
	maxSources          int
	maxResults          int
	otelEndpoint        string
	otelInsecure        bool
	serviceName         string
}

// WithLogger sets the structured logger for the Manager.
// If not set, the default slog logger is used.
func WithLogger(logger *slog.Logger) Option {
	return func(o *resolvedOptions) { o.logger = logger }
}

// WithSource registers a Source the router may dispatch queries to.
// Multiple sources may be registered; Name() must be unique across them.
func WithSource(s Source) Option {
	return func(o *resolvedOptions) { o.sources = append(o.sources, s) }
}

// WithAdjudicator sets the arbiter consulted when automatic consensus fails
// to resolve a contested field. Only the last call wins. When unset, every
// contested field that reaches adjudication is left as pending_review.
func WithAdjudicator(a Adjudicator) Option {
	return func(o *resolvedOptions) { o.adjudicator = a }
}

// WithEmbeddingProvider enables fuzzy field matching during evidence
// verification and, together with WithCandidateFinder, merge-candidate
// lookup during entity resolution. When unset, matching is exact
// (lowercase, trimmed).
func WithEmbeddingProvider(p EmbeddingProvider) Option {
	return func(o *resolvedOptions) { o.embeddingProvider = p }
}

// WithCandidateFinder enables approximate-nearest-neighbor lookup of merge
// candidates from earlier runs for resolved entities. Clustering itself
// stays exact fingerprint clustering.
func WithCandidateFinder(c CandidateFinder) Option {
	return func(o *resolvedOptions) { o.candidateFinder = c }
}

// WithTemporalProximityFunc replaces the default temporal-proximity curve
// used when scoring how much two conflicting dated assertions corroborate
// or contradict one another. fn receives two years and returns a bonus in
// [0, 0.1]; closer years should score higher.
func WithTemporalProximityFunc(fn func(yearA, yearB int) float64) Option {
	return func(o *resolvedOptions) { o.temporalProximityFn = fn }
}

// WithErrorPatternDetector replaces the default catalog of known
// transcription-error patterns (OCR digit confusion and truncated values)
// used to discount assertions that look like a copy error
// rather than an independent observation. fn returns the pattern tags that
// match value, or nil.
func WithErrorPatternDetector(fn func(value string) []string) Option {
	return func(o *resolvedOptions) { o.errorPatternFn = fn }
}

// WithBudgetCaps overrides the default BudgetPolicy ceilings. Zero values
// leave the corresponding default in place.
func WithBudgetCaps(maxTotalSeconds, maxSources, maxResults int) Option {
	return func(o *resolvedOptions) {
		if maxTotalSeconds > 0 {
			o.maxTotalSeconds = maxTotalSeconds
		}
		if maxSources > 0 {
			o.maxSources = maxSources
		}
		if maxResults > 0 {
			o.maxResults = maxResults
		}
	}
}

// WithOTELEndpoint sets the OTLP collector endpoint for traces and metrics.
// When unset, telemetry initializes as a no-op.
func WithOTELEndpoint(endpoint string, insecure bool) Option {
	return func(o *resolvedOptions) {
		o.otelEndpoint = endpoint
		o.otelInsecure = insecure
	}
}

// WithServiceName sets the service name reported to the OTEL resource.
func WithServiceName(name string) Option {
	return func(o *resolvedOptions) { o.serviceName = name }
}
