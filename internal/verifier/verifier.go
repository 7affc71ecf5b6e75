// Package verifier classifies source tiers, builds per-field consensus
// evidence, runs the hallucination firewall, detects conflicts and invokes
// an external Adjudicator, and computes the GPS compliance score for one
// resolved entity at a time.
package verifier

import (
	"context"
	"math"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/pgvector/pgvector-go"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelmetric "go.opentelemetry.io/otel/metric"

	"github.com/kinlink/lineage/model"
)

var (
	verifierMeter        = otel.GetMeterProvider().Meter("lineage/verifier")
	conflictsAdjudicated otelmetric.Int64Counter
)

func init() {
	var err error
	conflictsAdjudicated, err = verifierMeter.Int64Counter("lineage.verifier.conflicts_adjudicated")
	if err != nil {
		conflictsAdjudicated, _ = verifierMeter.Int64Counter("lineage.verifier.conflicts_adjudicated.fallback")
	}
}

// originalSourceKeywords/originalRecordTypeKeywords/authoredSourceKeywords
// classify a record's source name and record type into a tier.
// Anything matching neither is derivative.
var originalSourceKeywords = []string{"parish", "civil", "church", "archive"}
var originalRecordTypeKeywords = []string{"image", "original"}
var authoredSourceKeywords = []string{"tree", "wikitree", "gedcom", "compilation"}

// factTypeRoots are the field-name substrings subject to conflict detection
// and adjudication; everything else only gets consensus scoring.
var factTypeRoots = []string{"birth", "death", "marriage", "relationship"}

func isFactType(field string) bool {
	return containsAny(strings.ToLower(field), factTypeRoots)
}

// ClassifyTier classifies a source by name and record type.
func ClassifyTier(sourceName, recordType string) model.Tier {
	name := strings.ToLower(sourceName)
	rtype := strings.ToLower(recordType)

	if containsAny(name, originalSourceKeywords) && containsAny(rtype, originalRecordTypeKeywords) {
		return model.TierOriginal
	}
	if containsAny(name, authoredSourceKeywords) {
		return model.TierAuthored
	}
	return model.TierDerivative
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

// CitationSupported implements the hallucination firewall: citationSnippet
// is accepted iff its whitespace-normalized, case-insensitive form is a
// substring of the whitespace-normalized sourceText.
func CitationSupported(citationSnippet, sourceText string) bool {
	if citationSnippet == "" {
		return false
	}
	return strings.Contains(normalizeWhitespace(sourceText), normalizeWhitespace(citationSnippet))
}

func normalizeWhitespace(s string) string {
	fields := strings.Fields(strings.ToLower(s))
	return strings.Join(fields, " ")
}

// AdjudicateInput is the context handed to an Adjudicator for one contested
// field on one entity. Defined locally (mirroring the root package's type
// of the same shape) so this package never imports the root package.
type AdjudicateInput struct {
	SubjectID           string
	FactType            string
	CompetingAssertions []CompetingAssertionInput
	SubjectContext      map[string]any
}

// CompetingAssertionInput is one candidate value passed to the Adjudicator.
type CompetingAssertionInput struct {
	Value       string
	PriorWeight float64
	Patterns    []string
	Penalty     float64
}

// AdjudicateVerdict is the Adjudicator's decision.
type AdjudicateVerdict struct {
	Status       model.ResolutionStatus
	WinningIndex *int
	Confidence   float64
	Analysis     string
}

// Adjudicator chooses among competing assertions when automatic consensus
// fails.
type Adjudicator interface {
	Adjudicate(ctx context.Context, input AdjudicateInput) (AdjudicateVerdict, error)
}

// TemporalProximityFunc scores how close two years are, in [0, 0.1]. Left
// injectable because the exact curve is a policy decision, not a contract.
type TemporalProximityFunc func(yearA, yearB int) float64

// ErrorPatternFunc detects known transcription-error patterns in value,
// returning the matched pattern tags (nil if none).
type ErrorPatternFunc func(value string) []string

// Embedder produces a vector embedding for a field value. Used to catch
// near-duplicate values ("Boston, MA" vs "Boston, Massachusetts") that
// literal lowercase/trim normalization treats as distinct, contested
// values. Optional: when nil, field grouping stays exact-literal.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// fuzzyMatchThreshold is the cosine similarity above which two
// literal-normalized value groups are folded into one during field
// evidence construction.
const fuzzyMatchThreshold = 0.93

// Verifier computes evidence scores for resolved entities.
type Verifier struct {
	adjudicator    Adjudicator
	temporalFn     TemporalProximityFunc
	errorPatternFn ErrorPatternFunc
	embedder       Embedder
}

// New returns a Verifier. adjudicator may be nil, in which case every
// contested fact-type field is left pending_review. temporalFn/errorFn fall
// back to DefaultTemporalProximity/DefaultErrorPatterns when nil. embedder
// may be nil, in
// which case field-value matching stays exact-literal.
func New(adjudicator Adjudicator, temporalFn TemporalProximityFunc, errorFn ErrorPatternFunc, embedder Embedder) *Verifier {
	if temporalFn == nil {
		temporalFn = DefaultTemporalProximity
	}
	if errorFn == nil {
		errorFn = DefaultErrorPatterns
	}
	return &Verifier{adjudicator: adjudicator, temporalFn: temporalFn, errorPatternFn: errorFn, embedder: embedder}
}

// DefaultTemporalProximity is a monotone, bounded approximation: closer
// years score higher, capped at 0.1, and zero when the years are equal
// (equal years carry no corroborating signal beyond agreement itself,
// which is already captured by consensus scoring).
func DefaultTemporalProximity(yearA, yearB int) float64 {
	diff := yearA - yearB
	if diff < 0 {
		diff = -diff
	}
	if diff == 0 {
		return 0
	}
	bonus := 1.0 / float64(diff)
	if bonus > 0.1 {
		bonus = 0.1
	}
	return bonus
}

// DefaultErrorPatterns flags a small set of common transcription artifacts:
// OCR-style digit confusion (0/O, 1/l) and values that look truncated.
func DefaultErrorPatterns(value string) []string {
	var tags []string
	if strings.ContainsAny(value, "O0") && strings.ContainsAny(value, "Il1") {
		tags = append(tags, "digit_confusion")
	}
	if strings.HasSuffix(strings.TrimSpace(value), "...") {
		tags = append(tags, "truncated")
	}
	return tags
}

// Verify builds the EvidenceScore for entity from its underlying records.
func (v *Verifier) Verify(ctx context.Context, entity model.ResolvedEntity, records []model.RawRecord) model.EvidenceScore {
	fieldNames := collectFieldNames(records)
	sort.Strings(fieldNames)

	var fields []model.FieldEvidence
	var assertions []model.CompetingAssertion
	var originalCount, derivativeCount, authoredCount int
	tierSeen := map[string]bool{}

	for _, rec := range records {
		tier := ClassifyTier(rec.SourceName, rec.RecordType)
		key := rec.SourceName + ":" + rec.RecordID
		if !tierSeen[key] {
			tierSeen[key] = true
			switch tier {
			case model.TierOriginal:
				originalCount++
			case model.TierAuthored:
				authoredCount++
			default:
				derivativeCount++
			}
		}
	}

	for _, field := range fieldNames {
		fe, assertion := v.buildFieldEvidence(ctx, entity.EntityID, field, records)
		fields = append(fields, fe)
		if assertion != nil {
			assertions = append(assertions, *assertion)
		}
	}

	return finalizeScore(entity, fields, assertions, originalCount, derivativeCount, authoredCount)
}

// collectFieldNames gathers every extracted-field name present across
// records, deduplicated.
func collectFieldNames(records []model.RawRecord) []string {
	seen := map[string]bool{}
	var names []string
	for _, rec := range records {
		for field := range rec.ExtractedFields {
			if !seen[field] {
				seen[field] = true
				names = append(names, field)
			}
		}
	}
	return names
}

type valueGroup struct {
	normalized string
	original   string
	weight     float64
	bestWeight float64
}

// buildFieldEvidence constructs FieldEvidence for one field and, when the
// field is a contested fact type, a CompetingAssertion (and invokes the
// Adjudicator).
func (v *Verifier) buildFieldEvidence(ctx context.Context, entityID, field string, records []model.RawRecord) (model.FieldEvidence, *model.CompetingAssertion) {
	var observations []model.ValueObservation
	groups := map[string]*valueGroup{}
	var order []string

	for _, rec := range records {
		val, ok := rec.Field(field)
		if !ok {
			continue
		}
		tier := ClassifyTier(rec.SourceName, rec.RecordType)
		confidence := rec.Confidence()
		weight := tier.Weight() * confidence
		norm := strings.ToLower(strings.TrimSpace(val))
		snippet, _ := ExtractSupportingSnippet(string(rec.RawData), val)

		observations = append(observations, model.ValueObservation{
			SourceName:        rec.SourceName,
			RecordID:          rec.RecordID,
			Value:             val,
			NormalizedValue:   norm,
			Tier:              tier,
			ConfidenceHint:    confidence,
			Weight:            weight,
			SupportingSnippet: snippet,
		})

		g, exists := groups[norm]
		if !exists {
			g = &valueGroup{normalized: norm, original: val, weight: 0, bestWeight: -1}
			groups[norm] = g
			order = append(order, norm)
		}
		g.weight += weight
		if weight > g.bestWeight {
			g.bestWeight = weight
			g.original = val
		}
	}

	if len(observations) == 0 {
		return model.FieldEvidence{FieldName: field}, nil
	}

	order = v.mergeFuzzyGroups(ctx, order, groups)

	sort.SliceStable(order, func(i, j int) bool {
		return groups[order[i]].weight > groups[order[j]].weight
	})

	sumWeights := 0.0
	for _, norm := range order {
		sumWeights += groups[norm].weight
	}

	top := groups[order[0]]
	consensusScore := 0.0
	if sumWeights > 0 {
		consensusScore = top.weight / sumWeights
	}
	isContested := len(order) > 1 && consensusScore < 0.7
	isConsensus := len(order) == 1 || consensusScore >= 0.7
	bestValue := top.original

	fe := model.FieldEvidence{
		FieldName:      field,
		Observations:   observations,
		BestValue:      &bestValue,
		ConsensusScore: consensusScore,
		IsContested:    isContested,
		IsConsensus:    isConsensus,
		GroupCount:     len(order),
	}

	if !isContested || !isFactType(field) {
		return fe, nil
	}

	return fe, v.adjudicateField(ctx, entityID, field, order, groups, observations)
}

// adjudicateField builds a CompetingAssertion for a contested fact-type
// field and invokes the Adjudicator, if any, to resolve it.
func (v *Verifier) adjudicateField(ctx context.Context, entityID, field string, order []string, groups map[string]*valueGroup, observations []model.ValueObservation) *model.CompetingAssertion {
	competing := make([]CompetingAssertionInput, 0, len(order))
	claimIDs := make([]string, 0, len(order))
	var patternTags []string
	var patternPenalty float64

	for _, norm := range order {
		g := groups[norm]
		patterns := v.errorPatternFn(g.original)
		penalty := 0.0
		for range patterns {
			penalty += 0.1
		}
		if penalty > 0.3 {
			penalty = 0.3
		}
		patternTags = append(patternTags, patterns...)
		patternPenalty += penalty

		competing = append(competing, CompetingAssertionInput{
			Value:       g.original,
			PriorWeight: g.weight,
			Patterns:    patterns,
			Penalty:     penalty,
		})
	}
	for _, obs := range observations {
		claimIDs = append(claimIDs, obs.SourceName+":"+obs.RecordID)
	}

	status := model.StatusPendingReview

	if v.adjudicator != nil {
		verdict, err := v.adjudicator.Adjudicate(ctx, AdjudicateInput{
			SubjectID:           entityID,
			FactType:            field,
			CompetingAssertions: competing,
			SubjectContext:      map[string]any{"field": field},
		})
		if err == nil {
			status = verdict.Status
		}
		conflictsAdjudicated.Add(ctx, 1, otelmetric.WithAttributes(
			attribute.String("lineage.fact_type", field),
			attribute.String("lineage.status", string(status)),
		))
	}

	temporalBonus := 0.0
	if years := extractYears(order); len(years) >= 2 {
		temporalBonus = v.temporalFn(years[0], years[1])
	}

	assertion := &model.CompetingAssertion{
		SubjectID:        entityID,
		FactType:         field,
		ProposedValue:    competing[0].Value,
		EvidenceClaimIDs: claimIDs,
		ConflictGroupID:  entityID + ":" + field,
		Status:           status,
		PatternPenalty:   patternPenalty,
		PatternTags:      patternTags,
		TemporalBonus:    temporalBonus,
		PriorWeight:      competing[0].PriorWeight,
	}
	return assertion
}

// mergeFuzzyGroups folds value groups whose embeddings are near-duplicates
// into a single group, so "Boston, MA" and "Boston, Massachusetts" count as
// agreement rather than a contested field. Returns order unchanged if no
// embedder is configured, there's nothing to compare, or embedding fails
// (fail-soft: the field falls back to exact-literal grouping).
func (v *Verifier) mergeFuzzyGroups(ctx context.Context, order []string, groups map[string]*valueGroup) []string {
	if v.embedder == nil || len(order) < 2 {
		return order
	}

	embeddings := make(map[string]pgvector.Vector, len(order))
	for _, norm := range order {
		vec, err := v.embedder.Embed(ctx, groups[norm].original)
		if err != nil {
			return order
		}
		embeddings[norm] = pgvector.NewVector(vec)
	}

	merged := make(map[string]bool, len(order))
	result := make([]string, 0, len(order))
	for i, a := range order {
		if merged[a] {
			continue
		}
		for _, b := range order[i+1:] {
			if merged[b] {
				continue
			}
			if cosineSimilarity(embeddings[a].Slice(), embeddings[b].Slice()) < fuzzyMatchThreshold {
				continue
			}
			if groups[b].weight > groups[a].weight {
				groups[a].original = groups[b].original
			}
			groups[a].weight += groups[b].weight
			merged[b] = true
		}
		result = append(result, a)
	}
	return result
}

// cosineSimilarity returns the cosine similarity of a and b, or 0 for
// mismatched or empty vectors.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, normA, normB float64
	for i := range a {
		da, db := float64(a[i]), float64(b[i])
		dot += da * db
		normA += da * da
		normB += db * db
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var yearPattern = regexp.MustCompile(`\d{4}`)

// extractYears pulls one in-range year out of each of values, skipping
// values that contain none, in order.
func extractYears(values []string) []int {
	var years []int
	for _, v := range values {
		for _, tok := range yearPattern.FindAllString(v, -1) {
			n, err := strconv.Atoi(tok)
			if err != nil {
				continue
			}
			if n >= 1000 && n <= 2099 {
				years = append(years, n)
				break
			}
		}
	}
	return years
}

// finalizeScore computes the GPS compliance score, overall confidence, and
// review flag from the per-field evidence and tier counts.
func finalizeScore(entity model.ResolvedEntity, fields []model.FieldEvidence, assertions []model.CompetingAssertion, original, derivative, authored int) model.EvidenceScore {
	totalSrc := original + derivative + authored
	quality := 0.0
	if totalSrc > 0 {
		quality = (float64(original)*1.0 + float64(derivative)*0.7 + float64(authored)*0.4) / float64(totalSrc)
	}

	var consensusCount, contestedCount int
	var consensusSum float64
	var contestedFieldNames []string
	for _, f := range fields {
		if len(f.Observations) == 0 {
			continue
		}
		consensusSum += f.ConsensusScore
		if f.IsConsensus {
			consensusCount++
		}
		if f.IsContested {
			contestedCount++
			contestedFieldNames = append(contestedFieldNames, f.FieldName)
		}
	}

	agreement := 0.5
	if consensusCount+contestedCount > 0 {
		agreement = float64(consensusCount) / float64(consensusCount+contestedCount)
	}

	corroboration := float64(entity.SourceCount) / 3
	if corroboration > 1.0 {
		corroboration = 1.0
	}

	gpsScore := 0.4*quality + 0.4*agreement + 0.2*corroboration

	meanConsensus := 0.5
	fieldsWithObservations := consensusCount + contestedCount
	if fieldsWithObservations > 0 {
		meanConsensus = consensusSum / float64(fieldsWithObservations)
	}
	overallConfidence := entity.ClusterConfidence * meanConsensus
	if overallConfidence > 1.0 {
		overallConfidence = 1.0
	}

	requiresReview := contestedCount > 0 && meanConsensus < 0.6
	var reviewReason []string
	if requiresReview {
		reviewReason = contestedFieldNames
	}

	return model.EvidenceScore{
		EntityID:            entity.EntityID,
		Fields:              fields,
		Assertions:          assertions,
		OriginalCount:       original,
		DerivativeCount:     derivative,
		AuthoredCount:       authored,
		OverallConfidence:   overallConfidence,
		GPSComplianceScore:  gpsScore,
		RequiresHumanReview: requiresReview,
		ReviewReason:        reviewReason,
	}
}
