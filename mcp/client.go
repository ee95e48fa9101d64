package mcp

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"sort"
	"sync"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcptypes "github.com/mark3labs/mcp-go/mcp"

	"toolcall/config"
)

// Client owns the connections to external MCP servers.
type Client struct {
	conns map[string]*serverConn
	order []string
	mu    sync.RWMutex
}

func NewClient() *Client {
	return &Client{
		conns: make(map[string]*serverConn),
	}
}

// Start launches the server as a subprocess speaking MCP over stdio, runs the
// initialize handshake and caches its tool list.
func (c *Client) Start(ctx context.Context, cfg config.MCPServerConfig) error {
	c.mu.RLock()
	_, running := c.conns[cfg.Name]
	c.mu.RUnlock()
	if running {
		return fmt.Errorf("mcp server %s already running", cfg.Name)
	}

	var started *exec.Cmd
	cmdFunc := func(ctx context.Context, command string, env []string, args []string) (*exec.Cmd, error) {
		cmd := exec.CommandContext(ctx, command, args...)
		cmd.Env = env
		started = cmd
		return cmd, nil
	}

	mcpClient, err := client.NewStdioMCPClientWithOptions(
		cfg.Command,
		serverEnv(cfg.Env),
		cfg.Args,
		transport.WithCommandFunc(cmdFunc),
	)
	if err != nil {
		return fmt.Errorf("failed to start mcp server %s: %w", cfg.Name, err)
	}

	if config.DebugLog != nil && started != nil && started.Process != nil {
		config.DebugLog.Printf("[MCP] Started server '%s' (%s %v) with PID %d", cfg.Name, cfg.Command, cfg.Args, started.Process.Pid)
	}

	if err := c.attach(ctx, cfg.Name, mcpClient); err != nil {
		_ = mcpClient.Close()
		return err
	}
	return nil
}

// attach initializes an already started client and registers it under name.
func (c *Client) attach(ctx context.Context, name string, mcpClient *client.Client) error {
	initReq := mcptypes.InitializeRequest{
		Params: mcptypes.InitializeParams{
			ProtocolVersion: protocolVersion,
			Capabilities:    mcptypes.ClientCapabilities{},
			ClientInfo: mcptypes.Implementation{
				Name:    clientName,
				Version: clientVersion,
			},
		},
	}
	if _, err := mcpClient.Initialize(ctx, initReq); err != nil {
		return fmt.Errorf("failed to initialize mcp server %s: %w", name, err)
	}

	toolsResult, err := mcpClient.ListTools(ctx, mcptypes.ListToolsRequest{})
	if err != nil {
		return fmt.Errorf("failed to list tools for %s: %w", name, err)
	}

	// Keep a stable order regardless of how the server lists its tools.
	serverTools := toolsResult.Tools
	sort.SliceStable(serverTools, func(i, j int) bool { return serverTools[i].Name < serverTools[j].Name })

	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.conns[name]; !exists {
		c.order = append(c.order, name)
	}
	c.conns[name] = &serverConn{Name: name, Client: mcpClient, Tools: serverTools}

	if config.DebugLog != nil {
		config.DebugLog.Printf("[MCP] Server '%s' offers %d tools", name, len(serverTools))
	}
	return nil
}

// CallTool invokes a tool on the named server.
func (c *Client) CallTool(ctx context.Context, serverName, toolName string, args map[string]any) (*mcptypes.CallToolResult, error) {
	c.mu.RLock()
	conn, ok := c.conns[serverName]
	c.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("mcp server %s not running", serverName)
	}

	return conn.Client.CallTool(ctx, mcptypes.CallToolRequest{
		Params: mcptypes.CallToolParams{
			Name:      toolName,
			Arguments: args,
		},
	})
}

// Servers returns the names of the connected servers in start order.
func (c *Client) Servers() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]string, len(c.order))
	copy(out, c.order)
	return out
}

// Shutdown closes every connection, which also stops stdio subprocesses.
func (c *Client) Shutdown() error {
	c.mu.Lock()
	conns := c.conns
	order := c.order
	c.conns = make(map[string]*serverConn)
	c.order = nil
	c.mu.Unlock()

	var errs []error
	for _, name := range order {
		if err := conns[name].Client.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close mcp server %s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// serverEnv layers the configured variables over the current environment so
// PATH and friends stay available to the subprocess.
func serverEnv(extra map[string]string) []string {
	env := os.Environ()
	keys := make([]string, 0, len(extra))
	for k := range extra {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		env = append(env, fmt.Sprintf("%s=%s", k, extra[k]))
	}
	return env
}
