// Package validate implements the plan validator's three-phase pipeline:
// structural (strict decode, done by pkg/plan's loader before this
// package ever sees a document), semantic (JSON Schema shape checks), and
// domain (the hand-coded reference and registry rules from §4.1 that no
// schema language expresses).
package validate

import (
	"encoding/json"
	"fmt"
	"strings"

	sjsonschema "github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/relaykit/chainforge/pkg/exprlang"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
)

// ValidationError is one problem found by the pipeline. A plan may have
// several; the CLI and TUI do not start a run against a plan with any.
type ValidationError struct {
	Phase   string // structural, semantic, domain
	Path    string // e.g. "steps[2].args.o2_level"
	Message string
}

func (e *ValidationError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("[%s] %s at %s", e.Phase, e.Message, e.Path)
	}
	return fmt.Sprintf("[%s] %s", e.Phase, e.Message)
}

func errorf(phase, path, format string, args ...any) *ValidationError {
	return &ValidationError{Phase: phase, Path: path, Message: fmt.Sprintf(format, args...)}
}

// Plan runs the semantic and domain phases against an already
// structurally-decoded plan and the registry it will run against. An
// empty return means the plan is safe to execute: per §4.1, it is
// guaranteed not to produce reference-shape or unknown-tool errors at
// runtime (tool-runtime errors from inside a tool body remain possible).
func Plan(p *plan.Plan, reg *registry.Registry) []*ValidationError {
	var errs []*ValidationError
	errs = append(errs, validateSemantic(p)...)
	if len(errs) > 0 {
		return errs
	}
	errs = append(errs, validateDomain(p, reg)...)
	return errs
}

// validateSemantic compiles the reflected JSON Schema for Plan once and
// validates the decoded document against it, catching shape mistakes a
// schema can express (wrong types, missing required fields) without
// hand-duplicating those rules as Go code.
func validateSemantic(p *plan.Plan) []*ValidationError {
	schemaBytes, err := plan.GenerateJSONSchema()
	if err != nil {
		return []*ValidationError{errorf("semantic", "", "generating schema: %s", err)}
	}
	var schemaDoc any
	if err := json.Unmarshal(schemaBytes, &schemaDoc); err != nil {
		return []*ValidationError{errorf("semantic", "", "decoding generated schema: %s", err)}
	}

	c := sjsonschema.NewCompiler()
	if err := c.AddResource("plan-v1.json", schemaDoc); err != nil {
		return []*ValidationError{errorf("semantic", "", "adding schema resource: %s", err)}
	}
	sch, err := c.Compile("plan-v1.json")
	if err != nil {
		return []*ValidationError{errorf("semantic", "", "compiling schema: %s", err)}
	}

	docBytes, err := json.Marshal(p)
	if err != nil {
		return []*ValidationError{errorf("semantic", "", "marshaling plan: %s", err)}
	}
	var doc any
	if err := json.Unmarshal(docBytes, &doc); err != nil {
		return []*ValidationError{errorf("semantic", "", "decoding plan for validation: %s", err)}
	}

	if err := sch.Validate(doc); err != nil {
		if ve, ok := err.(*sjsonschema.ValidationError); ok {
			return flattenSchemaErrors(ve)
		}
		return []*ValidationError{errorf("semantic", "", "%s", err)}
	}
	return nil
}

func flattenSchemaErrors(ve *sjsonschema.ValidationError) []*ValidationError {
	if len(ve.Causes) == 0 {
		var loc string
		if len(ve.InstanceLocation) > 0 {
			loc = "/" + strings.Join(ve.InstanceLocation, "/")
		}
		return []*ValidationError{errorf("semantic", loc, "%s", ve.Error())}
	}
	var out []*ValidationError
	for _, cause := range ve.Causes {
		out = append(out, flattenSchemaErrors(cause)...)
	}
	return out
}

// validateDomain implements the exact rule list from §4.1: empty step
// list; duplicate step id; unknown tool name; a reference naming an id not
// declared earlier in the document; an expression that fails to parse.
func validateDomain(p *plan.Plan, reg *registry.Registry) []*ValidationError {
	var errs []*ValidationError

	if len(p.Steps) == 0 {
		errs = append(errs, errorf("domain", "steps", "plan has no steps"))
		return errs
	}

	seen := make(map[string]bool, len(p.Steps))
	declaredEarlier := make(map[string]bool, len(p.Steps))

	for i, step := range p.Steps {
		path := fmt.Sprintf("steps[%d]", i)

		if step.ID == "" {
			errs = append(errs, errorf("domain", path+".id", "step id must not be empty"))
		} else if seen[step.ID] {
			errs = append(errs, errorf("domain", path+".id", "duplicate step id %q", step.ID))
		}
		seen[step.ID] = true

		if step.Tool == "" {
			errs = append(errs, errorf("domain", path+".tool", "step %q has no tool", step.ID))
		} else if reg != nil && !reg.Has(step.Tool) {
			errs = append(errs, errorf("domain", path+".tool", "step %q references unknown tool %q", step.ID, step.Tool))
		}

		if step.RunIf != "" {
			errs = append(errs, validateExpr(path+".run_if", step.RunIf, declaredEarlier)...)
		}
		if step.InterventionIf != "" {
			errs = append(errs, validateExpr(path+".intervention_if", step.InterventionIf, declaredEarlier)...)
		}
		errs = append(errs, validateArgRefs(path+".args", step.Args, declaredEarlier)...)

		declaredEarlier[step.ID] = true
	}

	return errs
}

// validateExpr parses a guard/escalation expression and checks every
// reference it contains against the set of ids declared earlier in the
// document.
func validateExpr(path, exprText string, declaredEarlier map[string]bool) []*ValidationError {
	node, err := exprlang.Parse(exprText)
	if err != nil {
		return []*ValidationError{errorf("domain", path, "failed to parse expression %q: %s", exprText, err)}
	}
	var errs []*ValidationError
	for _, ref := range collectRefs(node) {
		id, _, _ := strings.Cut(ref, ".")
		if !declaredEarlier[id] {
			errs = append(errs, errorf("domain", path, "expression %q references undeclared or not-yet-completed step %q", exprText, id))
		}
	}
	return errs
}

func collectRefs(n exprlang.Node) []string {
	switch t := n.(type) {
	case exprlang.RefNode:
		return []string{t.Path}
	case exprlang.NotNode:
		return collectRefs(t.Operand)
	case exprlang.BinaryNode:
		return append(collectRefs(t.Left), collectRefs(t.Right)...)
	default:
		return nil
	}
}

// validateArgRefs walks an args mapping recursively (matching the
// resolution shape in pkg/exprlang) and checks every full-string '$'
// reference it finds.
func validateArgRefs(path string, args map[string]any, declaredEarlier map[string]bool) []*ValidationError {
	var errs []*ValidationError
	for k, v := range args {
		errs = append(errs, validateArgValue(path+"."+k, v, declaredEarlier)...)
	}
	return errs
}

func validateArgValue(path string, v any, declaredEarlier map[string]bool) []*ValidationError {
	switch t := v.(type) {
	case string:
		if !exprlang.IsReferenceLiteral(t) {
			return nil
		}
		id, _, _ := strings.Cut(t[1:], ".")
		if !declaredEarlier[id] {
			return []*ValidationError{errorf("domain", path, "reference %q names undeclared or not-yet-completed step %q", t, id)}
		}
		return nil
	case map[string]any:
		var errs []*ValidationError
		for k, vv := range t {
			errs = append(errs, validateArgValue(path+"."+k, vv, declaredEarlier)...)
		}
		return errs
	case []any:
		var errs []*ValidationError
		for i, vv := range t {
			errs = append(errs, validateArgValue(fmt.Sprintf("%s[%d]", path, i), vv, declaredEarlier)...)
		}
		return errs
	default:
		return nil
	}
}
