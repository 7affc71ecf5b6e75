package registry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinlink/lineage/model"
)

type fakeHandle struct {
	name string
	meta model.SourceMetadata
}

func (f fakeHandle) Name() string                     { return f.name }
func (f fakeHandle) Metadata() model.SourceMetadata    { return f.meta }

func TestRegisterAndLookup(t *testing.T) {
	reg := New()
	reg.Register(fakeHandle{name: "parish-registry"})

	h, ok := reg.Lookup("parish-registry")
	require.True(t, ok)
	assert.Equal(t, "parish-registry", h.Name())

	_, ok = reg.Lookup("missing")
	assert.False(t, ok)
}

func TestRankSourcesForQueryDeterministicOrdering(t *testing.T) {
	reg := New()
	reg.Register(fakeHandle{name: "zzz-archive", meta: model.SourceMetadata{
		RegionsSupported:     []model.Region{model.RegionUSA},
		RecordTypesSupported: []string{"birth"},
	}})
	reg.Register(fakeHandle{name: "aaa-wiki", meta: model.SourceMetadata{
		RegionsSupported:     []model.Region{model.RegionUSA},
		RecordTypesSupported: []string{"birth"},
	}})
	reg.Register(fakeHandle{name: "offregion", meta: model.SourceMetadata{
		RegionsSupported:     []model.Region{model.RegionUK},
		RecordTypesSupported: []string{"birth"},
	}})

	query := model.SearchQuery{RecordTypes: []string{"birth"}}
	ranked := reg.RankSourcesForQuery(query, model.RegionUSA)

	require.Len(t, ranked, 3)
	// zzz-archive gets the tier bonus (contains "archive") so it outranks aaa-wiki.
	assert.Equal(t, "zzz-archive", ranked[0].Name)
	assert.Equal(t, "aaa-wiki", ranked[1].Name)
	assert.Equal(t, "offregion", ranked[2].Name)
	assert.Greater(t, ranked[0].Priority, ranked[2].Priority)
}

func TestRankSourcesForQueryTieBreakByName(t *testing.T) {
	reg := New()
	reg.Register(fakeHandle{name: "bravo"})
	reg.Register(fakeHandle{name: "alpha"})

	ranked := reg.RankSourcesForQuery(model.SearchQuery{}, "")
	require.Len(t, ranked, 2)
	assert.Equal(t, "alpha", ranked[0].Name)
	assert.Equal(t, "bravo", ranked[1].Name)
}
