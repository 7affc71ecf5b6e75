package orchestrator

import (
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kinlink/lineage/model"
)

// TraceRecorder is the append-only, mutex-protected sink the Orchestrator
// exclusively owns. Executor tasks append to it concurrently; every other
// stage appends sequentially from the orchestrator's own goroutine.
type TraceRecorder struct {
	mu    sync.Mutex
	trace model.RunTrace
}

// NewTraceRecorder starts a fresh trace with a random run id.
func NewTraceRecorder() *TraceRecorder {
	return &TraceRecorder{trace: model.RunTrace{
		RunID:     uuid.NewString(),
		StartedAt: time.Now(),
	}}
}

// Append adds one event to the trace. Safe for concurrent use.
func (r *TraceRecorder) Append(kind model.TraceEventKind, stage model.AgentRole, message string, payload map[string]any, durationMs *int64, errStr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.trace.Events = append(r.trace.Events, model.TraceEvent{
		Timestamp:  time.Now(),
		Stage:      stage,
		Kind:       kind,
		Message:    message,
		Payload:    payload,
		DurationMs: durationMs,
		Error:      errStr,
	})
}

// Finalize stamps the trace success/error and end time. Calling it more
// than once is a no-op after the first call.
func (r *TraceRecorder) Finalize(success bool, errStr string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.trace.Finalized {
		return
	}
	r.trace.Success = success
	r.trace.Error = errStr
	r.trace.EndedAt = time.Now()
	r.trace.Finalized = true
}

// Snapshot returns a copy of the trace as it stands.
func (r *TraceRecorder) Snapshot() model.RunTrace {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := r.trace
	out.Events = append([]model.TraceEvent(nil), r.trace.Events...)
	return out
}
