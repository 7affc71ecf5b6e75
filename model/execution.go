package model

// SourceExecutionResult is one source's outcome within a pass.
type SourceExecutionResult struct {
	SourceName   string      `json:"source_name"`
	Success      bool        `json:"success"`
	Records      []RawRecord `json:"records,omitempty"`
	RecordCount  int         `json:"record_count"`
	SearchTimeMs int64       `json:"search_time_ms"`
	RetryCount   int         `json:"retry_count"`
	Error        string      `json:"error,omitempty"`
}

// ExecutionResult aggregates one or two passes of source execution for a
// single plan.
type ExecutionResult struct {
	PlanID               string                  `json:"plan_id"`
	SourceResults        []SourceExecutionResult `json:"source_results"`
	AllRecords           []RawRecord             `json:"all_records"`
	SourcesSearched      []string                `json:"sources_searched"`
	SourcesFailed        []string                `json:"sources_failed"`
	PassNumber           int                     `json:"pass_number"` // 1 or 2
	ConfidenceAfterPass  float64                 `json:"confidence_after_pass"`
	TotalExecutionTimeMs int64                   `json:"total_execution_time_ms"`
}

// TotalRecords returns len(AllRecords), named for readability at call sites
// that check the "zero records" termination condition for early exit.
func (e ExecutionResult) TotalRecords() int {
	return len(e.AllRecords)
}
