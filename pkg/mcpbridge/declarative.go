package mcpbridge

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/mcp"

	"github.com/relaykit/chainforge/pkg/registry"
	"github.com/relaykit/chainforge/pkg/toolspec"
)

// RegisterDeclarativeMCPTool dials the stdio MCP server named by
// spec.Meta.MCPServer and registers spec.Meta.MCPTool's remote tool under
// every one of spec's action names, using the same qualified/bare naming
// convention as registry.RegisterSubprocessTool. All of a ToolSpec's
// actions forward to the same remote tool: the action-level distinction
// stdio-transport tools use for argv templates and extraction does not
// apply here, since the remote server owns its own argument and output
// shape.
//
// The returned io.Closer shuts down the dialed MCP server subprocess; the
// caller is responsible for closing it once the registry is no longer in
// use.
func RegisterDeclarativeMCPTool(ctx context.Context, reg *registry.Registry, spec *toolspec.ToolSpec) (io.Closer, error) {
	if spec.Meta.Transport != toolspec.TransportMCP {
		return nil, fmt.Errorf("tool %q: not an mcp-transport tool", spec.Meta.Name)
	}

	fields := strings.Fields(spec.Meta.MCPServer)
	if len(fields) == 0 {
		return nil, fmt.Errorf("tool %q: empty mcp_server command", spec.Meta.Name)
	}

	cli, err := client.NewStdioMCPClient(fields[0], nil, fields[1:]...)
	if err != nil {
		return nil, fmt.Errorf("tool %q: dialing mcp server %q: %w", spec.Meta.Name, spec.Meta.MCPServer, err)
	}
	if _, err := cli.Initialize(ctx, mcp.InitializeRequest{}); err != nil {
		cli.Close()
		return nil, fmt.Errorf("tool %q: initialize mcp server: %w", spec.Meta.Name, err)
	}

	remoteName := spec.Meta.MCPTool
	invoke := registry.InvokeFunc(func(ctx context.Context, args map[string]any) (any, error) {
		result, err := cli.CallTool(ctx, mcp.CallToolRequest{
			Params: mcp.CallToolParams{Name: remoteName, Arguments: args},
		})
		if err != nil {
			return nil, fmt.Errorf("call remote tool %q: %w", remoteName, err)
		}
		if result.IsError {
			return nil, fmt.Errorf("remote tool %q returned an error: %s", remoteName, contentText(result))
		}
		return contentText(result), nil
	})

	for actionName, action := range spec.Actions {
		qualified := spec.Meta.Name + "." + actionName
		reg.Register(&registry.Entry{Name: qualified, Description: action.Description, Async: true, Invoker: invoke})
		if actionName == spec.Meta.Name || len(spec.Actions) == 1 {
			reg.Register(&registry.Entry{Name: spec.Meta.Name, Description: action.Description, Async: true, Invoker: invoke})
		}
	}

	return cli, nil
}
