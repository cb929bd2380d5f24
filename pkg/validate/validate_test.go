package validate

import (
	"context"
	"testing"

	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
)

func testRegistry(names ...string) *registry.Registry {
	r := registry.New()
	for _, n := range names {
		r.RegisterFunc(n, "", false, func(ctx context.Context, args map[string]any) (any, error) { return nil, nil })
	}
	return r
}

func TestValidateEmptyPlan(t *testing.T) {
	p := &plan.Plan{}
	errs := Plan(p, testRegistry())
	if len(errs) == 0 {
		t.Fatal("expected an error for an empty plan")
	}
}

func TestValidateDuplicateStepID(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "t"},
		{ID: "s1", Tool: "t"},
	}}
	errs := Plan(p, testRegistry("t"))
	found := false
	for _, e := range errs {
		if e.Phase == "domain" {
			found = true
		}
	}
	if !found {
		t.Fatalf("expected a domain error for duplicate step id, got %v", errs)
	}
}

func TestValidateUnknownTool(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{{ID: "s1", Tool: "missing"}}}
	errs := Plan(p, testRegistry())
	if len(errs) == 0 {
		t.Fatal("expected an error for an unknown tool")
	}
}

func TestValidateForwardReference(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "t", RunIf: "$s2.ready"},
		{ID: "s2", Tool: "t"},
	}}
	errs := Plan(p, testRegistry("t"))
	if len(errs) == 0 {
		t.Fatal("expected an error for a forward reference")
	}
}

func TestValidateBadExpressionSyntax(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{{ID: "s1", Tool: "t", RunIf: "$s1 =="}}}
	errs := Plan(p, testRegistry("t"))
	if len(errs) == 0 {
		t.Fatal("expected a parse error")
	}
}

func TestValidateValidPlanPasses(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "scan_hull"},
		{ID: "s2", Tool: "check_engine", RunIf: "$s1.breach", Args: map[string]any{"ref": "$s1.integrity"}},
	}}
	errs := Plan(p, testRegistry("scan_hull", "check_engine"))
	if len(errs) != 0 {
		t.Fatalf("expected no errors, got %v", errs)
	}
}

func TestValidateArgReferenceToLaterStep(t *testing.T) {
	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "t", Args: map[string]any{"x": "$s2.y"}},
		{ID: "s2", Tool: "t"},
	}}
	errs := Plan(p, testRegistry("t"))
	if len(errs) == 0 {
		t.Fatal("expected an error for an args reference to a later step")
	}
}
