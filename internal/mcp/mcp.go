// Package mcp implements a Model Context Protocol server exposing the
// genealogical research pipeline as a single tool, letting MCP-compatible
// agents run a research query and read back the synthesized result and
// trace without embedding the pipeline directly.
package mcp

import (
	"context"
	"log/slog"

	mcplib "github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/kinlink/lineage/model"
)

// serverInstructions is sent to every MCP client during the initialize
// handshake.
const serverInstructions = `You have access to a genealogical research pipeline.

Call lineage_research with at least a surname or given name to run a full
research pass: it plans source searches, executes them, resolves matching
records into entities, verifies the evidence against GPS standards, and
returns a synthesized biography per entity.

Fields marked as contested in the result mean sources disagree and an
automatic consensus could not be reached; treat the synthesis as
provisional until a human resolves them.`

// Runner is the subset of the research pipeline's Manager the MCP server
// depends on. Defined locally to avoid an import cycle back to the root
// lineage package, which is the only package permitted to import internal/*.
type Runner interface {
	Run(ctx context.Context, query model.SearchQuery) (model.ManagerResponse, error)
}

// Server wraps the MCP server with the research pipeline.
type Server struct {
	mcpServer *mcpserver.MCPServer
	runner    Runner
	logger    *slog.Logger
}

// New creates and configures a new MCP server exposing runner's research
// capability.
func New(runner Runner, logger *slog.Logger, version string) *Server {
	s := &Server{
		runner: runner,
		logger: logger,
	}

	s.mcpServer = mcpserver.NewMCPServer(
		"lineage",
		version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithInstructions(serverInstructions),
	)

	s.registerTools()

	return s
}

// MCPServer returns the underlying mcp-go server for transport setup.
func (s *Server) MCPServer() *mcpserver.MCPServer {
	return s.mcpServer
}

func errorResult(msg string) *mcplib.CallToolResult {
	return &mcplib.CallToolResult{
		Content: []mcplib.Content{
			mcplib.TextContent{Type: "text", Text: msg},
		},
		IsError: true,
	}
}
