// Package mcpserver exposes the device inspection surface over MCP
// (Model Context Protocol) via stdio transport, for agent frameworks
// that speak MCP instead of shelling out to the CLI.
package mcpserver

import (
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/devicelab-dev/tether/pkg/config"
)

// Server wraps the MCP server with the tether inspection tools.
type Server struct {
	mcp *server.MCPServer
	cfg *config.Config
}

// New creates an MCP server with all tools registered. The version
// string is reported to clients during the handshake.
func New(cfg *config.Config, version string) *Server {
	s := &Server{cfg: cfg}

	s.mcp = server.NewMCPServer(
		"tether",
		version,
		server.WithToolCapabilities(false),
	)

	s.mcp.AddTool(mcp.NewTool("ui_elements",
		mcp.WithDescription("Dump the visible UI elements of the device as a normalized, "+
			"noise-filtered listing. Element refs (@1, @2, ...) are positions in this "+
			"listing and are only valid until the next dump."),
		mcp.WithString("platform", mcp.Description("Platform override: android, ios or mock (defaults to the configured platform)")),
		mcp.WithString("format", mcp.Description("Output format: text (default) or json")),
	), s.uiElements)

	s.mcp.AddTool(mcp.NewTool("ui_screenshot",
		mcp.WithDescription("Capture a device screenshot into the artifacts directory and return the saved path."),
		mcp.WithString("platform", mcp.Description("Platform override: android, ios or mock")),
	), s.uiScreenshot)

	s.mcp.AddTool(mcp.NewTool("ui_diff",
		mcp.WithDescription("Compare two element listings captured with ui_elements format=json. "+
			"Reports added, removed and flag-modified elements; refs never participate in matching."),
		mcp.WithString("before", mcp.Required(), mcp.Description("Earlier element list as JSON")),
		mcp.WithString("after", mcp.Required(), mcp.Description("Later element list as JSON")),
	), s.uiDiff)

	s.mcp.AddTool(mcp.NewTool("device_status",
		mcp.WithDescription("Report whether the configured device is running and booted."),
		mcp.WithString("platform", mcp.Description("Platform override: android, ios or mock")),
	), s.deviceStatus)

	return s
}

// ServeStdio blocks serving MCP requests on stdin/stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcp)
}

// MCPServer returns the underlying server for testing.
func (s *Server) MCPServer() *server.MCPServer {
	return s.mcp
}
