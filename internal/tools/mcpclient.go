package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"
)

// Connection is an initialized MCP client session, used by the CLI to talk
// to a server the same way an MCP host would.
type Connection struct {
	client *client.Client
	tools  []mcp.Tool
}

// Dial launches binary with args as a stdio MCP server and initializes it.
func Dial(ctx context.Context, binary string, env []string, args ...string) (*Connection, error) {
	c, err := client.NewStdioMCPClient(binary, env, args...)
	if err != nil {
		return nil, fmt.Errorf("starting MCP server %s: %w", binary, err)
	}
	return initialize(ctx, c)
}

// Connect attaches to an already constructed client (e.g. in-process) and
// initializes it.
func Connect(ctx context.Context, c *client.Client) (*Connection, error) {
	if err := c.Start(ctx); err != nil {
		return nil, fmt.Errorf("starting MCP client: %w", err)
	}
	return initialize(ctx, c)
}

func initialize(ctx context.Context, c *client.Client) (*Connection, error) {
	_, err := c.Initialize(ctx, mcp.InitializeRequest{
		Params: mcp.InitializeParams{
			ProtocolVersion: mcp.LATEST_PROTOCOL_VERSION,
			ClientInfo: mcp.Implementation{
				Name:    "sshmcp-cli",
				Version: "1.0.0",
			},
		},
	})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("initializing MCP session: %w", err)
	}

	result, err := c.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		c.Close()
		return nil, fmt.Errorf("listing tools: %w", err)
	}

	return &Connection{client: c, tools: result.Tools}, nil
}

// Tools returns the tools discovered at initialization.
func (mc *Connection) Tools() []mcp.Tool {
	return mc.tools
}

// CallTool invokes a tool and returns its text and error flag. A non-nil
// error means the protocol exchange itself failed.
func (mc *Connection) CallTool(ctx context.Context, name string, args map[string]any) (string, bool, error) {
	result, err := mc.client.CallTool(ctx, mcp.CallToolRequest{
		Params: mcp.CallToolParams{
			Name:      name,
			Arguments: args,
		},
	})
	if err != nil {
		return "", false, fmt.Errorf("calling tool %s: %w", name, err)
	}

	var parts []string
	for _, c := range result.Content {
		if tc, ok := mcp.AsTextContent(c); ok {
			parts = append(parts, tc.Text)
		}
	}
	return strings.Join(parts, "\n"), result.IsError, nil
}

// Close shuts down the session (and the server subprocess, if any).
func (mc *Connection) Close() error {
	return mc.client.Close()
}
