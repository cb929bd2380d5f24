package toolspec

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema reflects ToolSpec into a JSON Schema document.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	s := r.Reflect(&ToolSpec{})
	s.ID = "https://chainforge/schema/tool-v1.json"
	s.Title = "ToolSpec"
	s.Description = "A subprocess- or MCP-backed tool's actions and argument extraction rules."
	return json.MarshalIndent(s, "", "  ")
}
