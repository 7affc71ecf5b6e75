package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	mcplib "github.com/mark3labs/mcp-go/mcp"

	"github.com/kinlink/lineage/model"
)

func (s *Server) registerTools() {
	// lineage_research — run one end-to-end research pipeline pass.
	s.mcpServer.AddTool(
		mcplib.NewTool("lineage_research",
			mcplib.WithDescription(`Run a GPS-compliant genealogical research pass for a person.

WHEN TO USE: when asked to research, verify, or build a biography for a
named individual, optionally narrowed by birth/death year or place.

WHAT HAPPENS: the query is planned across registered sources, executed
concurrently, the resulting records are clustered into entities by
fingerprint, the evidence for each entity is scored against GPS standards
(source quality, agreement across sources, corroboration), and a synthesis
is produced per entity.

WHAT YOU GET BACK: the primary synthesis (highest-confidence entity),
every synthesis produced, whether any field is contested and needs a human
decision, and the full run trace.

At least one of surname or given_name is required.`),
			mcplib.WithReadOnlyHintAnnotation(true),
			mcplib.WithIdempotentHintAnnotation(false),
			mcplib.WithOpenWorldHintAnnotation(true),
			mcplib.WithString("surname",
				mcplib.Description("Family surname to search for."),
			),
			mcplib.WithString("given_name",
				mcplib.Description("Given name to search for."),
			),
			mcplib.WithNumber("birth_year",
				mcplib.Description("Approximate birth year, if known."),
			),
			mcplib.WithNumber("birth_year_plus_minus",
				mcplib.Description("Years of slack either side of birth_year. Defaults to 0."),
			),
			mcplib.WithNumber("death_year",
				mcplib.Description("Approximate death year, if known."),
			),
			mcplib.WithNumber("death_year_plus_minus",
				mcplib.Description("Years of slack either side of death_year. Defaults to 0."),
			),
			mcplib.WithString("places",
				mcplib.Description("Comma-separated list of known places associated with the person, most specific first."),
			),
			mcplib.WithString("spouse_name",
				mcplib.Description("Name of a known spouse, to disambiguate common names."),
			),
			mcplib.WithString("parent_names",
				mcplib.Description("Comma-separated list of known parent names, to disambiguate common names."),
			),
			mcplib.WithString("record_types",
				mcplib.Description("Comma-separated list of record types to restrict the search to, e.g. \"birth,marriage,census\". Leave empty to search all supported types."),
			),
			mcplib.WithString("region",
				mcplib.Description("Explicit region override (USA, UK, Ireland, Germany, France, Italy, Poland, Sweden, Norway). Inferred from places when omitted."),
			),
			mcplib.WithString("format",
				mcplib.Description("Result detail: \"concise\" (default, primary synthesis plus summary) or \"full\" (every synthesis and the complete trace)."),
			),
		),
		s.handleResearch,
	)
}

func (s *Server) handleResearch(ctx context.Context, request mcplib.CallToolRequest) (*mcplib.CallToolResult, error) {
	surname := request.GetString("surname", "")
	givenName := request.GetString("given_name", "")
	if surname == "" && givenName == "" {
		return errorResult("at least one of surname or given_name is required"), nil
	}

	query := model.SearchQuery{
		Surname:     surname,
		GivenName:   givenName,
		BirthYearPM: request.GetInt("birth_year_plus_minus", 0),
		DeathYearPM: request.GetInt("death_year_plus_minus", 0),
		Places:      splitCSV(request.GetString("places", "")),
		SpouseName:  request.GetString("spouse_name", ""),
		ParentNames: splitCSV(request.GetString("parent_names", "")),
		RecordTypes: splitCSV(request.GetString("record_types", "")),
		Region:      model.Region(request.GetString("region", "")),
	}

	if by := request.GetInt("birth_year", 0); by != 0 {
		query.BirthYear = &by
	}
	if dy := request.GetInt("death_year", 0); dy != 0 {
		query.DeathYear = &dy
	}

	resp, err := s.runner.Run(ctx, query)
	if err != nil {
		return errorResult(fmt.Sprintf("research run failed: %v", err)), nil
	}

	if request.GetString("format", "concise") == "full" {
		data, err := json.MarshalIndent(resp, "", "  ")
		if err != nil {
			return errorResult(fmt.Sprintf("failed to encode response: %v", err)), nil
		}
		return &mcplib.CallToolResult{
			Content: []mcplib.Content{
				mcplib.TextContent{Type: "text", Text: string(data)},
			},
		}, nil
	}

	result := map[string]any{
		"success":                 resp.Success,
		"error":                   resp.Error,
		"entity_count":            len(resp.Syntheses),
		"requires_human_decision": resp.RequiresHumanDecision,
		"primary_synthesis":       resp.PrimarySynthesis,
		"run_id":                  resp.Trace.RunID,
	}

	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return errorResult(fmt.Sprintf("failed to encode response: %v", err)), nil
	}
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: string(data)},
		},
	}, nil
}

// splitCSV splits a comma-separated parameter value into trimmed,
// non-empty parts. Returns nil for an empty input.
func splitCSV(s string) []string {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
