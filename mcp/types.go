// Package mcp bridges the tool registry and the Model Context Protocol: it
// converts tool definitions to provider formats, serves the registry as an MCP
// server, and pulls tools in from external MCP servers.
package mcp

import (
	"github.com/mark3labs/mcp-go/client"
	mcptypes "github.com/mark3labs/mcp-go/mcp"
)

const (
	clientName    = "toolcall"
	clientVersion = "1.0.0"

	// protocolVersion is sent in the initialize handshake.
	protocolVersion = "2025-06-18"
)

// serverConn is one initialized external server.
type serverConn struct {
	Name   string
	Client *client.Client
	Tools  []mcptypes.Tool
}
