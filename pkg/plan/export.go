package plan

import (
	"encoding/json"

	"github.com/invopop/jsonschema"
)

// GenerateJSONSchema reflects the Plan struct into a JSON Schema document,
// used by the validator's semantic phase instead of hand-duplicating the
// shape rules already expressed by the Go struct tags.
func GenerateJSONSchema() ([]byte, error) {
	r := new(jsonschema.Reflector)
	r.ExpandedStruct = true
	s := r.Reflect(&Plan{})
	s.ID = "https://chainforge/schema/plan-v1.json"
	s.Title = "Plan"
	s.Description = "An ordered sequence of tool invocations with optional guards and skill metadata."
	return json.MarshalIndent(s, "", "  ")
}
