package synth

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinlink/lineage/model"
)

func strPtr(s string) *string { return &s }

func TestSynthesizeHighConfidenceSingleSource(t *testing.T) {
	entity := model.ResolvedEntity{EntityID: "e1"}
	evidence := model.EvidenceScore{
		Fields: []model.FieldEvidence{
			{FieldName: "full_name", BestValue: strPtr("John Smith"), IsConsensus: true},
		},
		OriginalCount:      1,
		OverallConfidence:  0.9,
		GPSComplianceScore: 0.9,
	}
	records := []model.RawRecord{{SourceName: "S", RecordID: "r1", RecordType: "image_parish"}}

	s := Synthesize(entity, evidence, records)
	assert.Equal(t, "John Smith", s.BestEstimate["full_name"])
	require.Len(t, s.Citations, 1)
	assert.Contains(t, s.Citations[0], "S, record r1, (image_parish)")
	assert.True(t, s.GPSCompliant)
}

func TestSynthesizeContestedField(t *testing.T) {
	entity := model.ResolvedEntity{EntityID: "e1"}
	evidence := model.EvidenceScore{
		Fields: []model.FieldEvidence{
			{FieldName: "birth_year", ConsensusScore: 0.5, IsContested: true,
				Observations: []model.ValueObservation{
					{Value: "1880"}, {Value: "1882"},
				}},
		},
		RequiresHumanReview: true,
		ReviewReason:        []string{"birth_year"},
	}

	s := Synthesize(entity, evidence, nil)
	require.Len(t, s.ContestedFields, 1)
	assert.Equal(t, "birth_year", s.ContestedFields[0].FieldName)
	assert.Contains(t, s.NextSteps, "Manual review needed: birth_year")
	assert.False(t, s.GPSCompliant)
}

func TestSynthesizeDeduplicatesCitations(t *testing.T) {
	entity := model.ResolvedEntity{EntityID: "e1"}
	evidence := model.EvidenceScore{}
	records := []model.RawRecord{
		{SourceName: "S", RecordID: "r1", RecordType: "t"},
		{SourceName: "S", RecordID: "r1", RecordType: "t"},
	}
	s := Synthesize(entity, evidence, records)
	assert.Len(t, s.Citations, 1)
}

func TestBuildNextStepsSufficientWhenNoIssues(t *testing.T) {
	entity := model.ResolvedEntity{SourceCount: 2}
	evidence := model.EvidenceScore{
		OriginalCount:     1,
		OverallConfidence: 0.95,
	}
	steps := buildNextSteps(entity, evidence)
	assert.Equal(t, []string{"Evidence sufficient for GPS compliance"}, steps)
}

func TestBuildNextStepsFlagsSingleSourceDespiteMultipleRecords(t *testing.T) {
	entity := model.ResolvedEntity{SourceCount: 1}
	evidence := model.EvidenceScore{
		OriginalCount:     1,
		DerivativeCount:   1, // two tier-classified records, but from the one source
		OverallConfidence: 0.95,
	}
	steps := buildNextSteps(entity, evidence)
	assert.Contains(t, steps, "Corroborate with additional independent sources")
}
