package model

// ResolvedEntity is one clustered person built from corroborating records.
// EntityID is the content fingerprint, not a random identifier, so the same
// underlying person resolves to the same ID across runs with the same
// inputs.
type ResolvedEntity struct {
	EntityID          string   `json:"entity_id"`
	// RecordIDs holds "source_name:record_id" composite keys, since
	// record_id is only guaranteed unique within a single source.
	RecordIDs         []string `json:"record_ids"`
	Sources           []string `json:"sources"`
	FullName          string   `json:"full_name,omitempty"`
	BirthYear         *int     `json:"birth_year,omitempty"`
	DeathYear         *int     `json:"death_year,omitempty"`
	BirthPlace        string   `json:"birth_place,omitempty"`
	ClusterConfidence float64  `json:"cluster_confidence"`
	CorroborationBoost float64 `json:"corroboration_boost"`
	RecordCount       int      `json:"record_count"`
	SourceCount       int      `json:"source_count"`
	// MergeCandidateIDs lists fingerprint-adjacent entity IDs surfaced by an
	// optional ANN CandidateFinder, from prior runs' indexed fingerprints.
	// Informational only: the core never auto-merges across runs, since it
	// has no access to the candidate's underlying records.
	MergeCandidateIDs []string `json:"merge_candidate_ids,omitempty"`
}

// EntityClusters is the Entity Resolver's output for one execution.
type EntityClusters struct {
	ExecutionID           string            `json:"execution_id"` // == plan ID of the originating execution
	Entities              []ResolvedEntity  `json:"entities"`      // sorted descending by ClusterConfidence
	UnresolvedRecordIDs   []string          `json:"unresolved_record_ids"` // "source_name:record_id" composite keys
	TotalRecords          int               `json:"total_records"`
	MultiSourceEntityCount int              `json:"multi_source_entity_count"`
}
