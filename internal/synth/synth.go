// Package synth produces the final per-entity synthesis: best estimate,
// contested fields, citations, next-step recommendations, and the GPS
// compliance verdict.
package synth

import (
	"fmt"
	"strings"

	"github.com/kinlink/lineage/model"
)

// Synthesize builds a Synthesis for entity from its evidence score and
// underlying records.
func Synthesize(entity model.ResolvedEntity, evidence model.EvidenceScore, records []model.RawRecord) model.Synthesis {
	bestEstimate := map[string]string{}
	var contested []model.ContestedFieldOutput
	var consensus []string

	for _, f := range evidence.Fields {
		if f.BestValue != nil {
			bestEstimate[f.FieldName] = *f.BestValue
		}
		if f.IsContested {
			contested = append(contested, model.ContestedFieldOutput{
				FieldName:      f.FieldName,
				Alternatives:   f.Observations,
				ConsensusScore: f.ConsensusScore,
			})
		}
		if f.IsConsensus {
			consensus = append(consensus, f.FieldName)
		}
	}

	citations := buildCitations(records)
	nextSteps := buildNextSteps(entity, evidence)
	gpsCompliant, gpsNotes := gpsVerdict(evidence)

	return model.Synthesis{
		EntityID:          entity.EntityID,
		BestEstimate:      bestEstimate,
		ContestedFields:   contested,
		ConsensusFields:   consensus,
		Citations:         citations,
		OverallConfidence: evidence.OverallConfidence,
		NextSteps:         nextSteps,
		GPSCompliant:      gpsCompliant,
		GPSNotes:          gpsNotes,
	}
}

// buildCitations formats one citation per record and deduplicates the
// result, preserving first-seen order.
func buildCitations(records []model.RawRecord) []string {
	seen := map[string]bool{}
	var out []string
	for _, rec := range records {
		parts := make([]string, 0, 4)
		if rec.SourceName != "" {
			parts = append(parts, rec.SourceName)
		}
		if rec.RecordID != "" {
			parts = append(parts, fmt.Sprintf("record %s", rec.RecordID))
		}
		if rec.RecordType != "" {
			parts = append(parts, fmt.Sprintf("(%s)", rec.RecordType))
		}
		if rec.URL != "" {
			parts = append(parts, rec.URL)
		}
		if len(parts) == 0 {
			continue
		}
		citation := strings.Join(parts, ", ")
		if !seen[citation] {
			seen[citation] = true
			out = append(out, citation)
		}
	}
	return out
}

// buildNextSteps emits applicable recommendations in the fixed priority
// order; if none apply, evidence is declared sufficient. The corroboration
// step is keyed on entity.SourceCount (distinct sources backing the
// cluster), not evidence.SourceCount() (tier-classified records), since a
// single source split across multiple records must not read as
// corroborated.
func buildNextSteps(entity model.ResolvedEntity, evidence model.EvidenceScore) []string {
	var steps []string
	if evidence.OverallConfidence < 0.7 {
		steps = append(steps, "Expand search to additional record types")
	}
	if evidence.OriginalCount == 0 {
		steps = append(steps, "Seek original sources to strengthen evidentiary authority")
	}
	if evidence.RequiresHumanReview {
		steps = append(steps, fmt.Sprintf("Manual review needed: %s", strings.Join(evidence.ReviewReason, ", ")))
	}
	if entity.SourceCount < 2 {
		steps = append(steps, "Corroborate with additional independent sources")
	}
	if len(steps) == 0 {
		steps = append(steps, "Evidence sufficient for GPS compliance")
	}
	return steps
}

// gpsVerdict decides gps_compliant and, when not compliant, names the
// specific reasons.
func gpsVerdict(evidence model.EvidenceScore) (bool, string) {
	compliant := evidence.GPSComplianceScore >= 0.7 && !evidence.RequiresHumanReview && evidence.OriginalCount > 0

	if compliant {
		return true, ""
	}

	var reasons []string
	if evidence.GPSComplianceScore < 0.7 {
		reasons = append(reasons, fmt.Sprintf("GPS score %.2f below 0.70", evidence.GPSComplianceScore))
	}
	if evidence.RequiresHumanReview {
		reasons = append(reasons, "unresolved contested fields require human review")
	}
	if evidence.OriginalCount == 0 {
		reasons = append(reasons, "no original-tier source present")
	}
	return false, strings.Join(reasons, "; ")
}
