package mcpbridge

import (
	"context"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/relaykit/chainforge/pkg/registry"
)

// RemoteClient is the subset of mark3labs/mcp-go's client surface the
// bridge needs; satisfied by client.StdioMCPClient and the SSE/HTTP
// client variants alike.
type RemoteClient interface {
	Initialize(ctx context.Context, req mcp.InitializeRequest) (*mcp.InitializeResult, error)
	ListTools(ctx context.Context, req mcp.ListToolsRequest) (*mcp.ListToolsResult, error)
	CallTool(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error)
}

// RegisterRemoteTools queries cli for its tool list and registers each
// one in reg as an async entry that round-trips a tools/call request.
// MCP tools are always registered async: a round trip over stdio or SSE
// is never instantaneous and the registry's async flag exists precisely
// to mark tools whose Invoke may block on I/O.
func RegisterRemoteTools(ctx context.Context, cli RemoteClient, reg *registry.Registry) ([]string, error) {
	if _, err := cli.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		return nil, fmt.Errorf("initialize mcp client: %w", err)
	}

	listed, err := cli.ListTools(ctx, mcp.ListToolsRequest{})
	if err != nil {
		return nil, fmt.Errorf("list remote tools: %w", err)
	}

	var names []string
	for _, t := range listed.Tools {
		toolName := t.Name
		names = append(names, toolName)
		reg.RegisterFunc(toolName, t.Description, true, func(ctx context.Context, args map[string]any) (any, error) {
			result, err := cli.CallTool(ctx, mcp.CallToolRequest{
				Params: mcp.CallToolParams{Name: toolName, Arguments: args},
			})
			if err != nil {
				return nil, fmt.Errorf("call remote tool %q: %w", toolName, err)
			}
			if result.IsError {
				return nil, fmt.Errorf("remote tool %q returned an error: %s", toolName, contentText(result))
			}
			return contentText(result), nil
		})
	}
	return names, nil
}

func contentText(result *mcp.CallToolResult) string {
	var out string
	for _, c := range result.Content {
		if tc, ok := c.(mcp.TextContent); ok {
			out += tc.Text
		}
	}
	return out
}
