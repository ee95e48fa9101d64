package mcp

import (
	"context"

	mcptypes "github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"toolcall/config"
	"toolcall/tools"
)

// NewServer builds an MCP server offering every tool in the registry.
func NewServer(registry *tools.Registry, version string) *server.MCPServer {
	s := server.NewMCPServer(clientName, version, server.WithToolCapabilities(false))

	for _, name := range registry.Names() {
		tool, _ := registry.Lookup(name)
		s.AddTool(tool.Definition(), toolHandler(tool))
	}

	return s
}

// toolHandler adapts a tools.Tool to the server's handler signature. Tool
// failures are reported in the result so the calling model can see them.
func toolHandler(tool tools.Tool) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcptypes.CallToolRequest) (*mcptypes.CallToolResult, error) {
		result, err := tool.Call(ctx, req.GetArguments())
		if err != nil {
			if config.DebugLog != nil {
				config.DebugLog.Printf("[MCP] %s failed: %v", tool.Name(), err)
			}
			return mcptypes.NewToolResultError(err.Error()), nil
		}
		return mcptypes.NewToolResultText(result), nil
	}
}

// Serve runs the registry as an MCP server on stdin/stdout until the input is
// closed.
func Serve(registry *tools.Registry, version string) error {
	return server.ServeStdio(NewServer(registry, version))
}
