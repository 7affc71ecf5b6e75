// Package resolver clusters raw records into person entities by content
// fingerprint and computes corroboration-aware cluster confidence.
package resolver

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/kinlink/lineage/model"
)

// fingerprintFields are the record fields gathered into a fingerprint, in
// the order their normalized pairs are produced (the pairs themselves are
// sorted before hashing, so this order only matters for readability).
var fingerprintFields = []string{"full_name", "given_name", "surname", "birth_date", "birth_year", "birth_place"}

var yearPattern = regexp.MustCompile(`\d{4}`)

// CandidateFinder is optional: given an embedding, it returns ids of
// entities from earlier indexed runs that look similar, which Resolve
// records as MergeCandidateIDs. Clustering itself is always exact
// fingerprint clustering, which is O(n), whether or not a finder is set.
type CandidateFinder interface {
	FindSimilar(ctx context.Context, embedding []float32, excludeID string, limit int) ([]string, error)
}

// Embedder produces a vector embedding for a descriptive string. Used to
// turn a resolved entity's identifying fields into the query vector a
// CandidateFinder searches against.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// candidateSearchThreshold is the minimum number of records a run must
// accumulate before merge candidates are looked up; below it, an extra
// embedding call per entity isn't worth the round trip.
const candidateSearchThreshold = 50

// mergeCandidateLimit bounds how many merge candidates are surfaced per
// entity.
const mergeCandidateLimit = 3

// Resolver clusters records by fingerprint.
type Resolver struct {
	candidateFinder CandidateFinder
	embedder        Embedder
}

// New returns a Resolver. finder and embedder may be nil; both must be set
// for ANN-backed merge-candidate lookup to run.
func New(finder CandidateFinder, embedder Embedder) *Resolver {
	return &Resolver{candidateFinder: finder, embedder: embedder}
}

// Resolve clusters execution's records into entities.
func (r *Resolver) Resolve(ctx context.Context, execution model.ExecutionResult) model.EntityClusters {
	clusters := map[string][]model.RawRecord{}
	var unresolved []string

	for _, rec := range execution.AllRecords {
		fp, ok := fingerprint(rec)
		if !ok {
			unresolved = append(unresolved, rec.SourceName+":"+rec.RecordID)
			continue
		}
		clusters[fp] = append(clusters[fp], rec)
	}

	entities := make([]model.ResolvedEntity, 0, len(clusters))
	for fp, records := range clusters {
		entities = append(entities, buildEntity(fp, records))
	}

	if r.candidateFinder != nil && r.embedder != nil && len(execution.AllRecords) >= candidateSearchThreshold {
		for i := range entities {
			entities[i].MergeCandidateIDs = r.findMergeCandidates(ctx, entities[i])
		}
	}

	sort.SliceStable(entities, func(i, j int) bool {
		return entities[i].ClusterConfidence > entities[j].ClusterConfidence
	})

	multiSource := 0
	for _, e := range entities {
		if e.SourceCount > 1 {
			multiSource++
		}
	}

	return model.EntityClusters{
		ExecutionID:           execution.PlanID,
		Entities:              entities,
		UnresolvedRecordIDs:   unresolved,
		TotalRecords:          len(execution.AllRecords),
		MultiSourceEntityCount: multiSource,
	}
}

// findMergeCandidates embeds entity's identifying fields and asks the
// CandidateFinder for fingerprint-adjacent entities from previously indexed
// runs. A failure here is stage-local: it only suppresses the optional
// merge hint, never the entity itself.
func (r *Resolver) findMergeCandidates(ctx context.Context, entity model.ResolvedEntity) []string {
	descriptor := entityDescriptor(entity)
	if descriptor == "" {
		return nil
	}
	vec, err := r.embedder.Embed(ctx, descriptor)
	if err != nil {
		return nil
	}
	ids, err := r.candidateFinder.FindSimilar(ctx, vec, entity.EntityID, mergeCandidateLimit)
	if err != nil {
		return nil
	}
	return ids
}

// entityDescriptor builds the text an Embedder turns into the vector used
// for ANN merge-candidate lookup.
func entityDescriptor(entity model.ResolvedEntity) string {
	parts := make([]string, 0, 3)
	if entity.FullName != "" {
		parts = append(parts, entity.FullName)
	}
	if entity.BirthYear != nil {
		parts = append(parts, fmt.Sprintf("born %d", *entity.BirthYear))
	}
	if entity.BirthPlace != "" {
		parts = append(parts, entity.BirthPlace)
	}
	return strings.Join(parts, ", ")
}

// fingerprint builds the deterministic content hash for rec. Returns
// ok=false when fewer than two identifying pairs are present, in which case
// the record is left unresolved.
func fingerprint(rec model.RawRecord) (string, bool) {
	pairs := make([]string, 0, len(fingerprintFields))
	for _, field := range fingerprintFields {
		val, ok := rec.Field(field)
		if !ok {
			continue
		}
		norm := normalize(val)
		if norm == "" {
			continue
		}
		pairs = append(pairs, field+":"+norm)
	}
	if len(pairs) < 2 {
		return "", false
	}
	sort.Strings(pairs)
	sum := sha256.Sum256([]byte(strings.Join(pairs, "|")))
	return hex.EncodeToString(sum[:])[:32], true
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}

// buildEntity computes best-value selection and cluster confidence for one
// fingerprint cluster.
func buildEntity(fingerprintID string, records []model.RawRecord) model.ResolvedEntity {
	recordIDs := make([]string, 0, len(records))
	sourceSet := map[string]bool{}
	var confidenceSum float64
	for _, rec := range records {
		recordIDs = append(recordIDs, rec.SourceName+":"+rec.RecordID)
		sourceSet[rec.SourceName] = true
		confidenceSum += rec.Confidence()
	}
	sources := make([]string, 0, len(sourceSet))
	for s := range sourceSet {
		sources = append(sources, s)
	}
	sort.Strings(sources)

	fullName, _ := bestValue(records, "full_name")
	birthPlace, _ := bestValue(records, "birth_place")
	birthYear := bestYear(records, "birth_year", "birth_date")
	deathYear := bestYear(records, "death_year", "death_date")

	base := confidenceSum / float64(len(records))
	boost := 0.05 * float64(len(sources)-1)
	if boost < 0 {
		boost = 0
	}
	if boost > 0.2 {
		boost = 0.2
	}
	clusterConfidence := base + boost
	if clusterConfidence > 1.0 {
		clusterConfidence = 1.0
	}

	return model.ResolvedEntity{
		EntityID:           fingerprintID,
		RecordIDs:          recordIDs,
		Sources:            sources,
		FullName:           fullName,
		BirthYear:          birthYear,
		DeathYear:          deathYear,
		BirthPlace:         birthPlace,
		ClusterConfidence:  clusterConfidence,
		CorroborationBoost: boost,
		RecordCount:        len(records),
		SourceCount:        len(sources),
	}
}

// bestValue returns the value of field with the highest confidence_hint
// across records, ties broken by first encounter. ok is false if no record
// carries the field.
func bestValue(records []model.RawRecord, field string) (string, bool) {
	var best string
	var bestConf float64 = -1
	found := false
	for _, rec := range records {
		val, ok := rec.Field(field)
		if !ok || val == "" {
			continue
		}
		conf := rec.Confidence()
		if !found || conf > bestConf {
			best, bestConf, found = val, conf, true
		}
	}
	return best, found
}

// bestYear selects the best raw value across the given field alternatives
// (e.g. birth_year then birth_date) and extracts the first in-range 4-digit
// token from it.
func bestYear(records []model.RawRecord, fields ...string) *int {
	var best string
	var bestConf float64 = -1
	found := false
	for _, rec := range records {
		for _, field := range fields {
			val, ok := rec.Field(field)
			if !ok || val == "" {
				continue
			}
			conf := rec.Confidence()
			if !found || conf > bestConf {
				best, bestConf, found = val, conf, true
			}
		}
	}
	if !found {
		return nil
	}
	return extractYear(best)
}

// extractYear returns the first 4-digit token in [1000, 2099] found in s, or
// nil if none qualifies.
func extractYear(s string) *int {
	for _, tok := range yearPattern.FindAllString(s, -1) {
		n, err := strconv.Atoi(tok)
		if err != nil {
			continue
		}
		if n >= 1000 && n <= 2099 {
			return &n
		}
	}
	return nil
}
