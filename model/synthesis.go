package model

// ContestedFieldOutput lists the competing values for a field the Verifier
// could not resolve to consensus, surfaced for a human or downstream
// adjudication step.
type ContestedFieldOutput struct {
	FieldName    string             `json:"field_name"`
	Alternatives []ValueObservation `json:"alternatives"`
	ConsensusScore float64          `json:"consensus_score"`
}

// Synthesis is the Synthesizer's per-entity output: a citation-backed
// conclusion plus a GPS-compliance verdict.
type Synthesis struct {
	EntityID          string                 `json:"entity_id"`
	BestEstimate      map[string]string      `json:"best_estimate"`
	ContestedFields   []ContestedFieldOutput `json:"contested_fields,omitempty"`
	ConsensusFields   []string               `json:"consensus_fields,omitempty"`
	Citations         []string               `json:"citations"`
	OverallConfidence float64                `json:"overall_confidence"`
	NextSteps         []string               `json:"next_steps"`
	GPSCompliant      bool                   `json:"gps_compliant"`
	GPSNotes          string                 `json:"gps_notes,omitempty"`
}

// HasContestedFields reports whether any field in the synthesis is
// contested, used by the Orchestrator to compute RequiresHumanDecision.
func (s Synthesis) HasContestedFields() bool {
	return len(s.ContestedFields) > 0
}
