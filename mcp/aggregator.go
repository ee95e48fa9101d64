package mcp

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"toolcall/tools"
)

// RemoteTool exposes one tool of an external server through the tools.Tool
// interface. Its name is namespaced as "<server>__<tool>".
type RemoteTool struct {
	client     *Client
	server     string
	definition mcptypes.Tool
	remoteName string
}

func (t *RemoteTool) Name() string {
	return t.definition.Name
}

func (t *RemoteTool) Definition() mcptypes.Tool {
	return t.definition
}

// Call forwards the call to the server. A result flagged as an error becomes
// a Go error carrying the server's text.
func (t *RemoteTool) Call(ctx context.Context, args map[string]any) (string, error) {
	result, err := t.client.CallTool(ctx, t.server, t.remoteName, args)
	if err != nil {
		return "", fmt.Errorf("failed to call %s: %w", t.definition.Name, err)
	}

	text := resultText(result)
	if result.IsError {
		if text == "" {
			text = "tool returned an error"
		}
		return "", errors.New(text)
	}
	return text, nil
}

// Tools returns every tool of every connected server, in server start order.
func (c *Client) Tools() []tools.Tool {
	c.mu.RLock()
	defer c.mu.RUnlock()

	var all []tools.Tool
	for _, name := range c.order {
		conn := c.conns[name]
		for _, tool := range conn.Tools {
			namespaced := tool
			namespaced.Name = namespacedName(name, tool.Name)
			all = append(all, &RemoteTool{
				client:     c,
				server:     name,
				definition: namespaced,
				remoteName: tool.Name,
			})
		}
	}
	return all
}

// Tool names must match ^[a-zA-Z0-9_-]{1,64}$ for OpenAI and Anthropic.
var invalidToolNameChars = regexp.MustCompile(`[^a-zA-Z0-9_-]`)

const maxToolNameLength = 64

// namespacedName joins server and tool as "<server>__<tool>", replacing
// characters the provider APIs reject and cutting the result to 64 bytes.
func namespacedName(server, tool string) string {
	name := invalidToolNameChars.ReplaceAllString(server+"__"+tool, "_")
	if len(name) > maxToolNameLength {
		name = name[:maxToolNameLength]
	}
	return name
}

// resultText joins the text parts of a tool result. Non-text content (images,
// resources) is skipped.
func resultText(result *mcptypes.CallToolResult) string {
	if result == nil {
		return ""
	}
	var parts []string
	for _, content := range result.Content {
		switch c := content.(type) {
		case mcptypes.TextContent:
			parts = append(parts, c.Text)
		case *mcptypes.TextContent:
			parts = append(parts, c.Text)
		}
	}
	return strings.Join(parts, "\n")
}
