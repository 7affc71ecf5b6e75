package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"testing"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinlink/lineage/model"
)

type fakeRunner struct {
	resp model.ManagerResponse
	err  error

	lastQuery model.SearchQuery
}

func (f *fakeRunner) Run(ctx context.Context, query model.SearchQuery) (model.ManagerResponse, error) {
	f.lastQuery = query
	return f.resp, f.err
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func researchRequest(args map[string]any) mcplib.CallToolRequest {
	return mcplib.CallToolRequest{
		Params: mcplib.CallToolParams{
			Name:      "lineage_research",
			Arguments: args,
		},
	}
}

func parseToolText(t *testing.T, result *mcplib.CallToolResult) string {
	t.Helper()
	for _, c := range result.Content {
		if tc, ok := c.(mcplib.TextContent); ok {
			return tc.Text
		}
	}
	t.Fatal("no TextContent found in tool result")
	return ""
}

func TestHandleResearchRequiresNameField(t *testing.T) {
	s := New(&fakeRunner{}, testLogger(), "test")

	result, err := s.handleResearch(context.Background(), researchRequest(map[string]any{}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "surname or given_name")
}

func TestHandleResearchBuildsQueryFromArguments(t *testing.T) {
	runner := &fakeRunner{resp: model.ManagerResponse{Success: true}}
	s := New(runner, testLogger(), "test")

	_, err := s.handleResearch(context.Background(), researchRequest(map[string]any{
		"surname":               "Smith",
		"given_name":            "John",
		"birth_year":            float64(1880),
		"birth_year_plus_minus": float64(2),
		"places":                "Boston, MA, USA",
		"parent_names":          "Robert Smith, Anne Smith",
		"record_types":          "birth, census",
	}))
	require.NoError(t, err)

	require.NotNil(t, runner.lastQuery.BirthYear)
	assert.Equal(t, 1880, *runner.lastQuery.BirthYear)
	assert.Equal(t, 2, runner.lastQuery.BirthYearPM)
	assert.Equal(t, []string{"Boston", "MA", "USA"}, runner.lastQuery.Places)
	assert.Equal(t, []string{"Robert Smith", "Anne Smith"}, runner.lastQuery.ParentNames)
	assert.Equal(t, []string{"birth", "census"}, runner.lastQuery.RecordTypes)
}

func TestHandleResearchReturnsConciseSummaryByDefault(t *testing.T) {
	bestEstimate := map[string]string{"full_name": "John Smith"}
	runner := &fakeRunner{resp: model.ManagerResponse{
		Success: true,
		PrimarySynthesis: &model.Synthesis{
			EntityID:     "e1",
			BestEstimate: bestEstimate,
		},
		Syntheses: []model.Synthesis{{EntityID: "e1", BestEstimate: bestEstimate}},
	}}
	s := New(runner, testLogger(), "test")

	result, err := s.handleResearch(context.Background(), researchRequest(map[string]any{"surname": "Smith"}))
	require.NoError(t, err)
	require.False(t, result.IsError)

	var summary map[string]any
	require.NoError(t, json.Unmarshal([]byte(parseToolText(t, result)), &summary))
	assert.Equal(t, true, summary["success"])
	assert.Equal(t, float64(1), summary["entity_count"])
	assert.NotNil(t, summary["primary_synthesis"])
}

func TestHandleResearchFullFormatIncludesTrace(t *testing.T) {
	runner := &fakeRunner{resp: model.ManagerResponse{
		Success: true,
		Trace:   model.RunTrace{RunID: "run-123"},
	}}
	s := New(runner, testLogger(), "test")

	result, err := s.handleResearch(context.Background(), researchRequest(map[string]any{
		"given_name": "John",
		"format":     "full",
	}))
	require.NoError(t, err)
	require.False(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "run-123")
}

func TestHandleResearchSurfacesRunnerError(t *testing.T) {
	runner := &fakeRunner{err: fmt.Errorf("boom")}
	s := New(runner, testLogger(), "test")

	result, err := s.handleResearch(context.Background(), researchRequest(map[string]any{"surname": "Smith"}))
	require.NoError(t, err)
	assert.True(t, result.IsError)
	assert.Contains(t, parseToolText(t, result), "boom")
}

func TestSplitCSVTrimsAndDropsEmpty(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitCSV(" a, b ,c"))
	assert.Nil(t, splitCSV(""))
	assert.Nil(t, splitCSV("   "))
}
