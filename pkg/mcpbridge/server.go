// Package mcpbridge exposes a tool registry as an MCP server, and wraps a
// remote MCP server's tools as async entries in a local registry.
package mcpbridge

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"github.com/relaykit/chainforge/pkg/registry"
)

// NewServer builds an MCP server exposing every tool in reg as an MCP
// tool. Each tool's input schema is open-ended (any JSON object), since
// the registry's Invoker interface carries no argument schema of its own.
func NewServer(name, version string, reg *registry.Registry) *server.MCPServer {
	s := server.NewMCPServer(name, version, server.WithToolCapabilities(true))

	for _, toolName := range reg.Names() {
		entry, _ := reg.Get(toolName)
		s.AddTool(
			mcp.NewTool(toolName, mcp.WithDescription(entry.Description)),
			makeHandler(reg, toolName),
		)
	}

	return s
}

func makeHandler(reg *registry.Registry, toolName string) server.ToolHandlerFunc {
	return func(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		output, err := reg.Invoke(ctx, toolName, req.GetArguments())
		if err != nil {
			return errorResult(err.Error()), nil
		}
		data, err := json.Marshal(output)
		if err != nil {
			return errorResult(fmt.Sprintf("marshal output: %s", err)), nil
		}
		return textResult(string(data)), nil
	}
}

func textResult(text string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(text)}}
}

func errorResult(msg string) *mcp.CallToolResult {
	return &mcp.CallToolResult{Content: []mcp.Content{mcp.NewTextContent(msg)}, IsError: true}
}
