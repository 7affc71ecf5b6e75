// Package executor fans a SearchPlan's source budgets out to concurrent
// source searches, aggregates results, and decides whether a second pass is
// warranted.
package executor

import (
	"context"
	"fmt"
	"time"

	"golang.org/x/sync/errgroup"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/kinlink/lineage/model"
)

var (
	execMeter      = otel.GetMeterProvider().Meter("lineage/executor")
	searchesIssued otelmetric.Int64Counter
	retriesIssued  otelmetric.Int64Counter
	secondPasses   otelmetric.Int64Counter
)

func init() {
	var err error
	searchesIssued, err = execMeter.Int64Counter("lineage.executor.searches_issued")
	if err != nil {
		searchesIssued, _ = execMeter.Int64Counter("lineage.executor.searches_issued.fallback")
	}
	retriesIssued, err = execMeter.Int64Counter("lineage.executor.retries_issued")
	if err != nil {
		retriesIssued, _ = execMeter.Int64Counter("lineage.executor.retries_issued.fallback")
	}
	secondPasses, err = execMeter.Int64Counter("lineage.executor.second_pass_triggered")
	if err != nil {
		secondPasses, _ = execMeter.Int64Counter("lineage.executor.second_pass_triggered.fallback")
	}
}

// Source is the capability the executor dispatches to. It mirrors the root
// Source interface without importing the root package.
type Source interface {
	Name() string
	Search(ctx context.Context, query model.SearchQuery) ([]model.RawRecord, error)
}

// Registry resolves a source name to its handle.
type Registry interface {
	Lookup(name string) (Source, bool)
}

// TraceSink receives source_searched/source_failed events during execution.
// The orchestrator owns the RunTrace; the executor only appends through
// this narrow interface, serialized by the sink's own implementation.
type TraceSink interface {
	Append(kind model.TraceEventKind, stage model.AgentRole, message string, payload map[string]any, durationMs *int64, errStr string)
}

// Executor runs a plan's source budgets concurrently, in up to two passes.
type Executor struct {
	registry Registry
}

// New returns an Executor backed by registry.
func New(registry Registry) *Executor {
	return &Executor{registry: registry}
}

// Execute runs plan against query, appending trace events to sink as each
// source attempt completes.
func (e *Executor) Execute(ctx context.Context, plan model.SearchPlan, query model.SearchQuery, sink TraceSink) model.ExecutionResult {
	start := time.Now()

	firstPassLimit := plan.FirstPassSourceLimit
	if firstPassLimit <= 0 || firstPassLimit > len(plan.SourceBudgets) {
		firstPassLimit = len(plan.SourceBudgets)
	}
	firstPass := plan.SourceBudgets[:firstPassLimit]
	remaining := plan.SourceBudgets[firstPassLimit:]

	result := model.ExecutionResult{PlanID: plan.PlanID, PassNumber: 1}
	pass1Results := e.runPass(ctx, firstPass, query, sink)
	mergeResults(&result, pass1Results)
	result.ConfidenceAfterPass = confidence(pass1Results)

	if plan.SecondPassThreshold > 0 && result.ConfidenceAfterPass < plan.SecondPassThreshold && len(remaining) > 0 {
		secondPasses.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("lineage.plan_id", plan.PlanID)))
		result.PassNumber = 2
		pass2Results := e.runPass(ctx, remaining, query, sink)
		mergeResults(&result, pass2Results)
		result.ConfidenceAfterPass = confidence(append(append([]model.SourceExecutionResult(nil), pass1Results...), pass2Results...))
	}

	result.TotalExecutionTimeMs = time.Since(start).Milliseconds()
	return result
}

// runPass dispatches budgets concurrently and returns one SourceExecutionResult
// per budget, in the same order as budgets.
func (e *Executor) runPass(ctx context.Context, budgets []model.SourceBudget, query model.SearchQuery, sink TraceSink) []model.SourceExecutionResult {
	if len(budgets) == 0 {
		return nil
	}

	results := make([]model.SourceExecutionResult, len(budgets))
	g, gCtx := errgroup.WithContext(ctx)

	for i, b := range budgets {
		i, b := i, b
		g.Go(func() error {
			results[i] = e.runOne(gCtx, b, query, sink)
			return nil
		})
	}
	_ = g.Wait() // runOne never returns an error; failures are captured per-source.
	return results
}

// runOne executes a single source budget with retry, under a per-attempt
// deadline of b.TimeoutSeconds.
func (e *Executor) runOne(ctx context.Context, b model.SourceBudget, query model.SearchQuery, sink TraceSink) model.SourceExecutionResult {
	started := time.Now()

	src, ok := e.registry.Lookup(b.SourceName)
	if !ok {
		err := fmt.Sprintf("source %q not registered", b.SourceName)
		sink.Append(model.EventSourceFailed, model.RoleExecutor, "source not registered",
			map[string]any{"source": b.SourceName}, durationPtr(started), err)
		return model.SourceExecutionResult{SourceName: b.SourceName, Success: false, Error: err}
	}

	var records []model.RawRecord
	var lastErr error
	attempts := b.RetryCount + 1
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			retriesIssued.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("lineage.source", b.SourceName)))
		}
		searchesIssued.Add(ctx, 1, otelmetric.WithAttributes(attribute.String("lineage.source", b.SourceName)))
		deadline := time.Duration(b.TimeoutSeconds * float64(time.Second))
		attemptCtx, cancel := context.WithTimeout(ctx, deadline)
		records, lastErr = src.Search(attemptCtx, query)
		cancel()
		if lastErr == nil {
			break
		}
	}

	elapsed := time.Since(started)
	durMs := elapsed.Milliseconds()

	if lastErr != nil {
		sink.Append(model.EventSourceFailed, model.RoleExecutor, "source search failed",
			map[string]any{"source": b.SourceName, "retry_count": b.RetryCount}, &durMs, lastErr.Error())
		return model.SourceExecutionResult{
			SourceName: b.SourceName,
			Success:    false,
			RetryCount: b.RetryCount,
			SearchTimeMs: durMs,
			Error:      lastErr.Error(),
		}
	}

	if b.MaxResults > 0 && len(records) > b.MaxResults {
		records = records[:b.MaxResults]
	}

	sink.Append(model.EventSourceSearched, model.RoleExecutor, "source searched",
		map[string]any{"source": b.SourceName, "record_count": len(records)}, &durMs, "")

	return model.SourceExecutionResult{
		SourceName:   b.SourceName,
		Success:      true,
		Records:      records,
		RecordCount:  len(records),
		SearchTimeMs: durMs,
	}
}

func durationPtr(started time.Time) *int64 {
	ms := time.Since(started).Milliseconds()
	return &ms
}

// mergeResults appends pass into result's accumulators. Pass-1 records
// always precede pass-2 records because mergeResults is called once per
// pass in order.
func mergeResults(result *model.ExecutionResult, pass []model.SourceExecutionResult) {
	result.SourceResults = append(result.SourceResults, pass...)
	for _, r := range pass {
		if r.Success {
			result.AllRecords = append(result.AllRecords, r.Records...)
			result.SourcesSearched = append(result.SourcesSearched, r.SourceName)
		} else {
			result.SourcesFailed = append(result.SourcesFailed, r.SourceName)
		}
	}
}

// confidence implements the pass confidence estimate: the mean of a
// record-count factor and a source-success-ratio factor, both capped.
func confidence(results []model.SourceExecutionResult) float64 {
	if len(results) == 0 {
		return 0.0
	}
	var totalRecords, successCount int
	for _, r := range results {
		if r.Success {
			successCount++
			totalRecords += r.RecordCount
		}
	}
	if successCount == 0 {
		return 0.0
	}
	recordFactor := float64(totalRecords) / 10
	if recordFactor > 1.0 {
		recordFactor = 1.0
	}
	sourceFactor := float64(successCount) / float64(len(results))
	return (recordFactor + sourceFactor) / 2
}
