package tools

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/michaelbrown/sshmcp/internal/config"
)

// NewServer builds the MCP server exposing the catalog. Extra options (tool
// middleware, hooks) are applied after the defaults.
func NewServer(cfg config.Config, d *Dispatcher, opts ...server.ServerOption) *server.MCPServer {
	opts = append([]server.ServerOption{
		server.WithToolCapabilities(false),
		server.WithRecovery(),
	}, opts...)

	s := server.NewMCPServer(cfg.Server.Name, cfg.Server.Version, opts...)
	for _, tool := range Catalog(cfg.SSH) {
		s.AddTool(tool, d.Handle)
	}
	return s
}
