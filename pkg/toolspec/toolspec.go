// Package toolspec defines the declarative shape of a tool that is backed
// by a subprocess or a remote MCP server, as opposed to an in-process Go
// function registered directly against pkg/registry.
package toolspec

import "fmt"

// APIVersion identifies the tool document shape this package decodes.
const APIVersion = "tool/v1"

// Transport names how a declarative tool is actually invoked.
type Transport string

const (
	TransportStdio Transport = "stdio"
	TransportMCP   Transport = "mcp"
)

// ToolSpec is the top-level tool/v1 document. It describes one tool and
// its named actions; a plan step's `tool` field selects one action by its
// qualified name "tool.action", or by the bare tool name when the action
// is named after the tool or is the only one.
type ToolSpec struct {
	APIVersion string                `yaml:"apiVersion" json:"apiVersion"`
	Meta       ToolMeta              `yaml:"meta"       json:"meta"`
	Actions    map[string]ToolAction `yaml:"actions"    json:"actions"`
}

// ToolMeta describes a tool's identity and transport.
type ToolMeta struct {
	Name        string    `yaml:"name"                  json:"name"`
	Description string    `yaml:"description,omitempty" json:"description,omitempty"`
	Transport   Transport `yaml:"transport"             json:"transport"`
	Binary      string    `yaml:"binary,omitempty"       json:"binary,omitempty"` // stdio only
	MCPServer   string    `yaml:"mcp_server,omitempty"   json:"mcp_server,omitempty"` // mcp only: command line of the stdio MCP server to dial
	MCPTool     string    `yaml:"mcp_tool,omitempty"     json:"mcp_tool,omitempty"`   // mcp only: remote tool name every action forwards to
}

// validateTransport checks that meta declares the fields its transport
// requires.
func (m ToolMeta) validateTransport() error {
	switch m.Transport {
	case TransportStdio:
		if m.Binary == "" {
			return fmt.Errorf("tool %q: transport stdio requires meta.binary", m.Name)
		}
	case TransportMCP:
		if m.MCPServer == "" {
			return fmt.Errorf("tool %q: transport mcp requires meta.mcp_server", m.Name)
		}
		if m.MCPTool == "" {
			return fmt.Errorf("tool %q: transport mcp requires meta.mcp_tool", m.Name)
		}
	default:
		return fmt.Errorf("tool %q: invalid transport %q: must be %q or %q", m.Name, m.Transport, TransportStdio, TransportMCP)
	}
	return nil
}

// ToolAction is one invocable action within a tool definition.
type ToolAction struct {
	Description string             `yaml:"description,omitempty" json:"description,omitempty"`
	Argv        []string           `yaml:"argv,omitempty"        json:"argv,omitempty"` // expr-lang templates, stdio only
	Extract     map[string]Extract `yaml:"extract,omitempty"     json:"extract,omitempty"`
}

// Extract maps a piece of raw tool output (stdout, stderr, a JSON path) to
// a named field of the tool's structured output value.
type Extract struct {
	From    string `yaml:"from"              json:"from"` // stdout, stderr, json
	Pattern string `yaml:"pattern,omitempty" json:"pattern,omitempty"`
	Path    string `yaml:"path,omitempty"    json:"path,omitempty"`
}

// LoadFile reads and strictly decodes a tool/v1 document from disk.
func LoadFile(path string) (*ToolSpec, error) {
	return loadFile(path)
}

// Load strictly decodes a tool/v1 document from raw bytes.
func Load(data []byte) (*ToolSpec, error) {
	return loadReader(bytesReader(data))
}
