package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/ziadkadry99/qnagen/internal/pipeline"
	"github.com/ziadkadry99/qnagen/internal/usagelog"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server that exposes content generation tools.
type Server struct {
	runner pipeline.Runner
	usage  *usagelog.Store
	mcp    *server.MCPServer
}

// NewServer creates a new MCP server. usage may be nil, in which case the
// usage_summary tool is not registered.
func NewServer(runner pipeline.Runner, usage *usagelog.Store) *Server {
	s := &Server{
		runner: runner,
		usage:  usage,
	}

	s.mcp = server.NewMCPServer(
		"qnagen",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers to the MCP server.
func (s *Server) registerTools() {
	s.mcp.AddTool(generateContentTool, s.handleGenerateContent)
	if s.usage != nil {
		s.mcp.AddTool(usageSummaryTool, s.handleUsageSummary)
	}
}

// Serve starts the MCP server on stdio. Stdout is used for MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
