// Package orchestrator drives the research pipeline's stage sequence,
// owns the RunTrace, and assembles the final ManagerResponse.
package orchestrator

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/kinlink/lineage/internal/budget"
	"github.com/kinlink/lineage/internal/executor"
	"github.com/kinlink/lineage/internal/planner"
	"github.com/kinlink/lineage/internal/resolver"
	"github.com/kinlink/lineage/internal/verifier"
	"github.com/kinlink/lineage/model"
)

var (
	tracer    = otel.Tracer("lineage/orchestrator")
	runMeter  = otel.GetMeterProvider().Meter("lineage/orchestrator")
	runCount  otelmetric.Int64Counter
	entityGPS otelmetric.Int64Counter
)

func init() {
	var err error
	runCount, err = runMeter.Int64Counter("lineage.orchestrator.run_count")
	if err != nil {
		runCount, _ = runMeter.Int64Counter("lineage.orchestrator.run_count.fallback")
	}
	entityGPS, err = runMeter.Int64Counter("lineage.orchestrator.entities_verified")
	if err != nil {
		entityGPS, _ = runMeter.Int64Counter("lineage.orchestrator.entities_verified.fallback")
	}
}

// Planner produces a SearchPlan from query fields.
type Planner interface {
	CreatePlan(query model.SearchQuery, maxSources int, totalBudgetSeconds float64) model.SearchPlan
}

// Executor fans a plan's sources out and aggregates results.
type Executor interface {
	Execute(ctx context.Context, plan model.SearchPlan, query model.SearchQuery, sink executor.TraceSink) model.ExecutionResult
}

// Resolver clusters an execution's records into entities.
type Resolver interface {
	Resolve(ctx context.Context, execution model.ExecutionResult) model.EntityClusters
}

// Verifier scores one entity's evidence.
type Verifier interface {
	Verify(ctx context.Context, entity model.ResolvedEntity, records []model.RawRecord) model.EvidenceScore
}

// Orchestrator drives Plan -> Validate/Adjust -> Execute -> Resolve ->
// (Verify + Synthesize)* -> Response.
type Orchestrator struct {
	planner      Planner
	budgetPolicy budget.Policy
	executor     Executor
	resolver     Resolver
	verifier     Verifier
	synthesize   func(entity model.ResolvedEntity, evidence model.EvidenceScore, records []model.RawRecord) model.Synthesis

	maxSources         int
	totalBudgetSeconds float64
}

// Config bundles the stage implementations and process-wide parameters the
// Orchestrator needs to construct plans.
type Config struct {
	Planner            Planner
	BudgetPolicy       budget.Policy
	Executor           Executor
	Resolver           Resolver
	Verifier           Verifier
	Synthesize         func(entity model.ResolvedEntity, evidence model.EvidenceScore, records []model.RawRecord) model.Synthesis
	MaxSources         int
	TotalBudgetSeconds float64
}

// New constructs an Orchestrator from cfg.
func New(cfg Config) *Orchestrator {
	totalBudget := cfg.TotalBudgetSeconds
	if totalBudget <= 0 {
		totalBudget = 300
	}
	return &Orchestrator{
		planner:            cfg.Planner,
		budgetPolicy:       cfg.BudgetPolicy,
		executor:           cfg.Executor,
		resolver:           cfg.Resolver,
		verifier:           cfg.Verifier,
		synthesize:         cfg.Synthesize,
		maxSources:         cfg.MaxSources,
		totalBudgetSeconds: totalBudget,
	}
}

// Run executes one end-to-end research pipeline run for query.
func (o *Orchestrator) Run(ctx context.Context, query model.SearchQuery) (resp model.ManagerResponse) {
	ctx, span := tracer.Start(ctx, "orchestrator.run",
		trace.WithAttributes(attribute.String("lineage.surname", query.Surname)))
	defer span.End()
	runCount.Add(ctx, 1)

	rec := NewTraceRecorder()

	defer func() {
		if r := recover(); r != nil {
			errStr := fmt.Sprintf("panic: %v", r)
			rec.Append(model.EventError, model.RoleOrchestrator, "unrecoverable error", nil, nil, errStr)
			rec.Finalize(false, errStr)
			span.SetAttributes(attribute.Bool("lineage.success", false))
			resp = model.ManagerResponse{Trace: rec.Snapshot(), Success: false, Error: errStr}
		}
	}()

	_, planSpan := tracer.Start(ctx, "orchestrator.plan")
	plan := o.planner.CreatePlan(query, o.maxSources, o.totalBudgetSeconds)
	rec.Append(model.EventPlanCreated, model.RolePlanner, "plan created",
		map[string]any{"plan_id": plan.PlanID, "source_count": len(plan.SourceBudgets)}, nil, "")
	planSpan.End()

	_, budgetSpan := tracer.Start(ctx, "orchestrator.budget_check")
	if ok, reason := o.budgetPolicy.Validate(plan); !ok {
		rec.Append(model.EventBudgetCheck, model.RoleBudgetPolicy, "plan exceeds caps, adjusting",
			map[string]any{"reason": reason}, nil, "")
		plan = o.budgetPolicy.Adjust(plan)
		rec.Append(model.EventBudgetCheck, model.RoleBudgetPolicy, "plan adjusted",
			map[string]any{"source_count": len(plan.SourceBudgets), "total_budget_seconds": plan.TotalBudgetSeconds}, nil, "")
	} else {
		rec.Append(model.EventBudgetCheck, model.RoleBudgetPolicy, "plan within caps", nil, nil, "")
	}
	budgetSpan.End()

	execCtx, execSpan := tracer.Start(ctx, "orchestrator.execute")
	rec.Append(model.EventExecutionStarted, model.RoleExecutor, "execution started",
		map[string]any{"plan_id": plan.PlanID}, nil, "")
	execution := o.executor.Execute(execCtx, plan, query, rec)
	rec.Append(model.EventExecutionCompleted, model.RoleExecutor, "execution completed",
		map[string]any{"record_count": execution.TotalRecords(), "pass_number": execution.PassNumber}, nil, "")
	execSpan.SetAttributes(
		attribute.Int("lineage.record_count", execution.TotalRecords()),
		attribute.Int("lineage.pass_number", execution.PassNumber),
	)
	execSpan.End()

	if execution.TotalRecords() == 0 {
		rec.Finalize(true, "")
		span.SetAttributes(attribute.Bool("lineage.success", true), attribute.Int("lineage.entity_count", 0))
		return model.ManagerResponse{Trace: rec.Snapshot(), Success: true}
	}

	resolveCtx, resolveSpan := tracer.Start(ctx, "orchestrator.resolve")
	clusters := o.resolver.Resolve(resolveCtx, execution)
	rec.Append(model.EventEntitiesResolved, model.RoleResolver, "entities resolved",
		map[string]any{"entity_count": len(clusters.Entities), "unresolved_count": len(clusters.UnresolvedRecordIDs)}, nil, "")
	resolveSpan.SetAttributes(attribute.Int("lineage.entity_count", len(clusters.Entities)))
	resolveSpan.End()

	if len(clusters.Entities) == 0 {
		rec.Finalize(true, "")
		span.SetAttributes(attribute.Bool("lineage.success", true), attribute.Int("lineage.entity_count", 0))
		return model.ManagerResponse{Trace: rec.Snapshot(), Success: true}
	}

	var syntheses []model.Synthesis
	for _, entity := range clusters.Entities {
		entityCtx, entitySpan := tracer.Start(ctx, "orchestrator.verify_and_synthesize",
			trace.WithAttributes(attribute.String("lineage.entity_id", entity.EntityID)))

		records := recordsForEntity(execution.AllRecords, entity)
		evidence := o.verifier.Verify(entityCtx, entity, records)
		rec.Append(model.EventEvidenceVerified, model.RoleVerifier, "evidence verified",
			map[string]any{"entity_id": entity.EntityID, "gps_score": evidence.GPSComplianceScore}, nil, "")

		synthesis := o.synthesize(entity, evidence, records)
		rec.Append(model.EventSynthesisCompleted, model.RoleSynthesizer, "synthesis completed",
			map[string]any{"entity_id": entity.EntityID, "gps_compliant": synthesis.GPSCompliant}, nil, "")

		entitySpan.SetAttributes(
			attribute.Bool("lineage.gps_compliant", synthesis.GPSCompliant),
			attribute.Bool("lineage.contested", synthesis.HasContestedFields()),
		)
		entitySpan.End()
		entityGPS.Add(ctx, 1, otelmetric.WithAttributes(attribute.Bool("lineage.gps_compliant", synthesis.GPSCompliant)))

		syntheses = append(syntheses, synthesis)
	}

	var primary *model.Synthesis
	if len(syntheses) > 0 {
		primary = &syntheses[0]
	}

	requiresHumanDecision := false
	for _, s := range syntheses {
		if s.HasContestedFields() {
			requiresHumanDecision = true
			break
		}
	}

	rec.Finalize(true, "")
	span.SetAttributes(
		attribute.Bool("lineage.success", true),
		attribute.Int("lineage.entity_count", len(syntheses)),
		attribute.Bool("lineage.requires_human_decision", requiresHumanDecision),
	)
	return model.ManagerResponse{
		Trace:                 rec.Snapshot(),
		PrimarySynthesis:      primary,
		Syntheses:             syntheses,
		Success:               true,
		RequiresHumanDecision: requiresHumanDecision,
	}
}

// recordsForEntity returns the subset of allRecords belonging to entity, by
// "source_name:record_id" composite membership — record_id alone is only
// unique within a single source, so two sources issuing the same record_id
// must not collide here.
func recordsForEntity(allRecords []model.RawRecord, entity model.ResolvedEntity) []model.RawRecord {
	want := make(map[string]bool, len(entity.RecordIDs))
	for _, id := range entity.RecordIDs {
		want[id] = true
	}
	var out []model.RawRecord
	for _, r := range allRecords {
		if want[r.SourceName+":"+r.RecordID] {
			out = append(out, r)
		}
	}
	return out
}

// ensure the stage interfaces are satisfied by the concrete packages this
// orchestrator is wired to in lineage.go.
var (
	_ Planner  = (*planner.Planner)(nil)
	_ Executor = (*executor.Executor)(nil)
	_ Resolver = (*resolver.Resolver)(nil)
	_ Verifier = (*verifier.Verifier)(nil)
)
