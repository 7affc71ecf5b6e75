package planner

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinlink/lineage/model"
)

type fakeRouter struct {
	ranked []model.RankedSource
}

func (f fakeRouter) RankSourcesForQuery(model.SearchQuery, model.Region) []model.RankedSource {
	return f.ranked
}

func TestExpandSurnameVariants(t *testing.T) {
	variants := expandSurnameVariants("Johnson")
	assert.Contains(t, variants, "Johnson")
	assert.Contains(t, variants, "Johnsen")
}

func TestExpandSurnameVariantsEmpty(t *testing.T) {
	assert.Nil(t, expandSurnameVariants(""))
}

func TestInferRegionExplicit(t *testing.T) {
	region := inferRegion(model.SearchQuery{Region: model.RegionGermany})
	assert.Equal(t, model.RegionGermany, region)
}

func TestInferRegionFromBirthPlace(t *testing.T) {
	region := inferRegion(model.SearchQuery{Places: []string{"Boston, United States"}})
	assert.Equal(t, model.RegionUSA, region)
}

func TestInferRegionNoMatch(t *testing.T) {
	region := inferRegion(model.SearchQuery{Places: []string{"Atlantis"}})
	assert.Equal(t, model.Region(""), region)
}

func TestCreatePlanAllocatesBudgets(t *testing.T) {
	router := fakeRouter{ranked: []model.RankedSource{
		{Name: "archive-a", Priority: 3},
		{Name: "wiki-b", Priority: 1},
	}}
	p := New(router)
	p.SetIDGen(func() string { return "fixed-id" })

	plan := p.CreatePlan(model.SearchQuery{Surname: "Smith"}, 0, 60)

	require.Equal(t, "fixed-id", plan.PlanID)
	require.Len(t, plan.SourceBudgets, 2)
	assert.Equal(t, 50, plan.SourceBudgets[0].MaxResults)
	assert.Equal(t, 2, plan.SourceBudgets[0].RetryCount)
	assert.Equal(t, 30, plan.SourceBudgets[1].MaxResults)
	assert.Equal(t, 1, plan.SourceBudgets[1].RetryCount)
	assert.Equal(t, 5, plan.FirstPassSourceLimit)
	assert.Equal(t, 0.7, plan.SecondPassThreshold)
	assert.Equal(t, 200, plan.MaxTotalResults)
	assert.Equal(t, []string{"birth", "death", "marriage", "census"}, plan.RecordTypes)
}

func TestCreatePlanTruncatesToMaxSources(t *testing.T) {
	router := fakeRouter{ranked: []model.RankedSource{
		{Name: "a", Priority: 1},
		{Name: "b", Priority: 1},
		{Name: "c", Priority: 1},
	}}
	p := New(router)
	plan := p.CreatePlan(model.SearchQuery{Surname: "Smith"}, 2, 30)
	assert.Len(t, plan.SourceBudgets, 2)
}

func TestCreatePlanIsDeterministicModuloID(t *testing.T) {
	router := fakeRouter{ranked: []model.RankedSource{{Name: "a", Priority: 2}}}
	p := New(router)
	p1 := p.CreatePlan(model.SearchQuery{Surname: "Smith"}, 0, 60)
	p2 := p.CreatePlan(model.SearchQuery{Surname: "Smith"}, 0, 60)
	p1.PlanID, p2.PlanID = "", ""
	assert.Equal(t, p1, p2)
}
