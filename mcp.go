package lineage

import (
	"log/slog"

	"github.com/kinlink/lineage/internal/mcp"
)

// NewMCPServer wraps mgr as a Model Context Protocol server exposing a
// single research tool. The returned server's MCPServer() method returns
// the underlying *mcpserver.MCPServer for transport setup (stdio, SSE,
// streamable HTTP).
func NewMCPServer(mgr *Manager, logger *slog.Logger, version string) *mcp.Server {
	return mcp.New(mgr, logger, version)
}

var _ mcp.Runner = (*Manager)(nil)
