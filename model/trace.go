package model

import "time"

// TraceEventKind is a closed set of trace event types. Unknown kinds
// encountered during trace replay must be treated as errors.
type TraceEventKind string

const (
	EventPlanCreated        TraceEventKind = "plan_created"
	EventBudgetCheck        TraceEventKind = "budget_check"
	EventExecutionStarted   TraceEventKind = "execution_started"
	EventSourceSearched     TraceEventKind = "source_searched"
	EventSourceFailed       TraceEventKind = "source_failed"
	EventExecutionCompleted TraceEventKind = "execution_completed"
	EventEntitiesResolved   TraceEventKind = "entities_resolved"
	EventEvidenceVerified   TraceEventKind = "evidence_verified"
	EventSynthesisCompleted TraceEventKind = "synthesis_completed"
	EventError              TraceEventKind = "error"
)

// AgentRole identifies which stage of the pipeline emitted a trace event.
// A closed enum for the same reason as TraceEventKind.
type AgentRole string

const (
	RolePlanner      AgentRole = "planner"
	RoleBudgetPolicy AgentRole = "budget_policy"
	RoleExecutor     AgentRole = "executor"
	RoleResolver     AgentRole = "resolver"
	RoleVerifier     AgentRole = "verifier"
	RoleSynthesizer  AgentRole = "synthesizer"
	RoleOrchestrator AgentRole = "orchestrator"
)

// TraceEvent is one entry in a RunTrace. Payload carries kind-specific
// structured detail (e.g. the plan id and source count for plan_created, the
// source name for source_failed, whose error text goes in Error).
type TraceEvent struct {
	Timestamp   time.Time      `json:"ts"`
	Stage       AgentRole      `json:"stage_id"`
	Kind        TraceEventKind `json:"kind"`
	Message     string         `json:"message"`
	Payload     map[string]any `json:"payload,omitempty"`
	DurationMs  *int64         `json:"duration_ms,omitempty"`
	Error       string         `json:"error,omitempty"`
}

// RunTrace is the append-only, totally-ordered log of a single research
// run. Finalized exactly once with Success/Error populated on termination.
type RunTrace struct {
	RunID     string       `json:"run_id"`
	Events    []TraceEvent `json:"events"`
	Success   bool         `json:"success"`
	Error     string       `json:"error,omitempty"`
	StartedAt time.Time    `json:"started_at"`
	EndedAt   time.Time    `json:"ended_at,omitempty"`
	Finalized bool         `json:"finalized"`
}
