package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/devicelab-dev/tether/pkg/config"
	"github.com/devicelab-dev/tether/pkg/platform"
	"github.com/devicelab-dev/tether/pkg/uitree"
)

// resolvePlatform builds the backend for a tool call, honoring the
// optional per-call platform override.
func (s *Server) resolvePlatform(req mcp.CallToolRequest) (platform.Platform, error) {
	cfg := *s.cfg
	if name, err := req.RequireString("platform"); err == nil && name != "" {
		cfg.Platform = name
	}
	return platform.New(&cfg)
}

func (s *Server) uiElements(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.resolvePlatform(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	elements, err := platform.Elements(ctx, p)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if format, err := req.RequireString("format"); err == nil && format == "json" {
		out, err := json.MarshalIndent(elements, "", "  ")
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return mcp.NewToolResultText(string(out)), nil
	}
	return mcp.NewToolResultText(uitree.RenderList(elements)), nil
}

func (s *Server) uiScreenshot(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.resolvePlatform(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	shot, err := p.Screenshot(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	if err := config.EnsureHome(); err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	path := filepath.Join(config.GetArtifactsDir(),
		time.Now().Format("20060102-150405")+"-screen.png")
	if err := os.WriteFile(path, shot, 0o644); err != nil { //#nosec G306 -- screenshots are read by other tools
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(path), nil
}

func (s *Server) uiDiff(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	beforeJSON, err := req.RequireString("before")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	afterJSON, err := req.RequireString("after")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	var before, after []*uitree.Element
	if err := json.Unmarshal([]byte(beforeJSON), &before); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("before payload: %v", err)), nil
	}
	if err := json.Unmarshal([]byte(afterJSON), &after); err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("after payload: %v", err)), nil
	}

	diff := uitree.Compare(before, after)
	out := struct {
		Summary string `json:"summary"`
		*uitree.Diff
	}{Summary: diff.Summary(), Diff: diff}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}

func (s *Server) deviceStatus(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	p, err := s.resolvePlatform(req)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}

	st, err := p.Status(ctx)
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	data, err := json.MarshalIndent(st, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	return mcp.NewToolResultText(string(data)), nil
}
