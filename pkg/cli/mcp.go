package cli

import (
	"github.com/urfave/cli/v2"

	"github.com/devicelab-dev/tether/pkg/mcpserver"
)

var mcpCommand = &cli.Command{
	Name:  "mcp",
	Usage: "Serve the inspection tools over MCP on stdio",
	Description: `Expose ui_elements, ui_screenshot, ui_diff and device_status as MCP
tools for agent frameworks that speak the protocol instead of shelling
out. The server reads requests from stdin and blocks until the client
disconnects.`,
	Action: runMCP,
}

func runMCP(c *cli.Context) error {
	cfg, err := resolveConfig(c)
	if err != nil {
		return err
	}
	return mcpserver.New(cfg, Version).ServeStdio()
}
