package lineage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kinlink/lineage/internal/budget"
	"github.com/kinlink/lineage/internal/executor"
	"github.com/kinlink/lineage/internal/orchestrator"
	"github.com/kinlink/lineage/internal/planner"
	"github.com/kinlink/lineage/internal/registry"
	"github.com/kinlink/lineage/internal/resolver"
	"github.com/kinlink/lineage/internal/synth"
	"github.com/kinlink/lineage/internal/telemetry"
	"github.com/kinlink/lineage/internal/verifier"
	"github.com/kinlink/lineage/model"
)

// Manager is the assembled research pipeline. Construct with New and reuse
// across concurrent Run calls; every stage is safe for concurrent use once
// built.
type Manager struct {
	logger        *slog.Logger
	orchestrator  *orchestrator.Orchestrator
	otelShutdown  telemetry.Shutdown
}

// New builds a Manager from the supplied options. At least one source must
// be registered via WithSource.
func New(opts ...Option) (*Manager, error) {
	o := &resolvedOptions{
		maxTotalSeconds: 300,
		maxSources:      20,
		maxResults:      500,
		serviceName:     "lineage",
	}
	for _, opt := range opts {
		opt(o)
	}

	if len(o.sources) == 0 {
		return nil, fmt.Errorf("lineage: at least one Source must be registered via WithSource")
	}

	logger := o.logger
	if logger == nil {
		logger = slog.Default()
	}

	shutdown, err := telemetry.Init(context.Background(), o.otelEndpoint, o.serviceName, "dev", o.otelInsecure)
	if err != nil {
		return nil, fmt.Errorf("lineage: init telemetry: %w", err)
	}

	reg := registry.New()
	for _, s := range o.sources {
		reg.Register(sourceHandle{s})
	}

	plan := planner.New(reg)

	bp := budget.Default()
	if o.maxTotalSeconds > 0 {
		bp.MaxTotalSeconds = float64(o.maxTotalSeconds)
	}
	if o.maxSources > 0 {
		bp.MaxSources = o.maxSources
	}
	if o.maxResults > 0 {
		bp.MaxResults = o.maxResults
	}

	exec := executor.New(registryAdapter{reg})

	var candidateFinder resolver.CandidateFinder
	if o.candidateFinder != nil {
		candidateFinder = candidateFinderAdapter{o.candidateFinder}
	}
	var resolverEmbedder resolver.Embedder
	if o.embeddingProvider != nil {
		resolverEmbedder = resolverEmbedderAdapter{o.embeddingProvider}
	}
	res := resolver.New(candidateFinder, resolverEmbedder)

	var adjudicator verifier.Adjudicator
	if o.adjudicator != nil {
		adjudicator = adjudicatorAdapter{o.adjudicator}
	}
	var verifierEmbedder verifier.Embedder
	if o.embeddingProvider != nil {
		verifierEmbedder = verifierEmbedderAdapter{o.embeddingProvider}
	}
	ver := verifier.New(adjudicator, o.temporalProximityFn, o.errorPatternFn, verifierEmbedder)

	orch := orchestrator.New(orchestrator.Config{
		Planner:            plan,
		BudgetPolicy:       bp,
		Executor:           exec,
		Resolver:           res,
		Verifier:           ver,
		Synthesize:         synth.Synthesize,
		MaxSources:         o.maxSources,
		TotalBudgetSeconds: float64(o.maxTotalSeconds),
	})

	return &Manager{logger: logger, orchestrator: orch, otelShutdown: shutdown}, nil
}

// Run executes one end-to-end research pass for query.
func (m *Manager) Run(ctx context.Context, query model.SearchQuery) (model.ManagerResponse, error) {
	if query.Surname == "" && query.GivenName == "" {
		return model.ManagerResponse{}, fmt.Errorf("lineage: query must specify at least a surname or given name")
	}
	resp := m.orchestrator.Run(ctx, query)
	m.logger.InfoContext(ctx, "research run completed",
		"run_id", resp.Trace.RunID, "success", resp.Success, "entity_count", len(resp.Syntheses))
	return resp, nil
}

// Close releases resources held by the Manager, including flushing
// outstanding telemetry.
func (m *Manager) Close(ctx context.Context) error {
	if m.otelShutdown == nil {
		return nil
	}
	return m.otelShutdown(ctx)
}

// sourceHandle adapts the public Source interface to registry.Handle and
// executor.Source, both of which are narrower mirrors of Source defined
// locally in their own packages to avoid an import cycle back to this
// package.
type sourceHandle struct {
	src Source
}

func (s sourceHandle) Name() string                     { return s.src.Name() }
func (s sourceHandle) Metadata() model.SourceMetadata    { return s.src.Metadata() }
func (s sourceHandle) Search(ctx context.Context, query model.SearchQuery) ([]model.RawRecord, error) {
	return s.src.Search(ctx, query)
}

// registryAdapter adapts *registry.Registry to executor.Registry, whose
// Lookup returns executor.Source rather than registry.Handle.
type registryAdapter struct {
	reg *registry.Registry
}

func (a registryAdapter) Lookup(name string) (executor.Source, bool) {
	h, ok := a.reg.Lookup(name)
	if !ok {
		return nil, false
	}
	sh, ok := h.(sourceHandle)
	if !ok {
		return nil, false
	}
	return sh, true
}

// adjudicatorAdapter bridges the public Adjudicator to the verifier
// package's local mirror interface.
type adjudicatorAdapter struct {
	adj Adjudicator
}

func (a adjudicatorAdapter) Adjudicate(ctx context.Context, input verifier.AdjudicateInput) (verifier.AdjudicateVerdict, error) {
	competing := make([]CompetingAssertionInput, len(input.CompetingAssertions))
	for i, c := range input.CompetingAssertions {
		competing[i] = CompetingAssertionInput{
			Value:       c.Value,
			PriorWeight: c.PriorWeight,
			Patterns:    c.Patterns,
			Penalty:     c.Penalty,
		}
	}
	verdict, err := a.adj.Adjudicate(ctx, AdjudicateInput{
		SubjectID:           input.SubjectID,
		FactType:            input.FactType,
		CompetingAssertions: competing,
		SubjectContext:      input.SubjectContext,
	})
	if err != nil {
		return verifier.AdjudicateVerdict{}, err
	}
	return verifier.AdjudicateVerdict{
		Status:       verdict.Status,
		WinningIndex: verdict.WinningIndex,
		Confidence:   verdict.Confidence,
		Analysis:     verdict.Analysis,
	}, nil
}

// candidateFinderAdapter bridges the public CandidateFinder to the
// resolver package's local mirror interface (identical shape, distinct
// type to avoid the import cycle).
type candidateFinderAdapter struct {
	finder CandidateFinder
}

func (a candidateFinderAdapter) FindSimilar(ctx context.Context, embedding []float32, excludeID string, limit int) ([]string, error) {
	return a.finder.FindSimilar(ctx, embedding, excludeID, limit)
}

// resolverEmbedderAdapter bridges the public EmbeddingProvider to the
// resolver package's local mirror interface.
type resolverEmbedderAdapter struct {
	provider EmbeddingProvider
}

func (a resolverEmbedderAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.provider.Embed(ctx, text)
}

// verifierEmbedderAdapter bridges the public EmbeddingProvider to the
// verifier package's local mirror interface (identical shape, distinct type
// to avoid the import cycle).
type verifierEmbedderAdapter struct {
	provider EmbeddingProvider
}

func (a verifierEmbedderAdapter) Embed(ctx context.Context, text string) ([]float32, error) {
	return a.provider.Embed(ctx, text)
}
