package diagram

import (
	"strings"
	"testing"

	"github.com/relaykit/chainforge/pkg/plan"
)

func samplePlan() *plan.Plan {
	return &plan.Plan{
		ID:   "triage",
		Name: "Triage",
		Steps: []plan.Step{
			{ID: "s1", Tool: "scan_hull", Description: "scan the hull"},
			{ID: "s2", Tool: "check_engine", Description: "check engine", RunIf: "$s1.breach"},
			{ID: "s3", Tool: "check_oxygen", Description: "check oxygen", InterventionIf: "$s3.level < 10"},
		},
	}
}

func TestGenerateMermaid(t *testing.T) {
	out, err := Generate(samplePlan(), FormatMermaid)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.HasPrefix(out, "flowchart TD\n") {
		t.Errorf("missing flowchart header: %q", out)
	}
	if !strings.Contains(out, "s1") || !strings.Contains(out, "s2") || !strings.Contains(out, "s3") {
		t.Errorf("missing step ids: %q", out)
	}
	if !strings.Contains(out, "Request Assistance") {
		t.Errorf("missing intervention node: %q", out)
	}
}

func TestGenerateASCII(t *testing.T) {
	out, err := Generate(samplePlan(), FormatASCII)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out, "Triage") {
		t.Errorf("missing plan name: %q", out)
	}
	if !strings.Contains(out, "Finish") {
		t.Errorf("missing finish marker: %q", out)
	}
}

func TestGenerateEmptyPlan(t *testing.T) {
	out, err := Generate(&plan.Plan{ID: "empty"}, FormatASCII)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if !strings.Contains(out, "empty") {
		t.Errorf("expected empty marker: %q", out)
	}
}

func TestGenerateUnsupportedFormat(t *testing.T) {
	_, err := Generate(samplePlan(), Format("svg"))
	if err == nil {
		t.Fatal("expected an error for an unsupported format")
	}
}

func TestGenerateNilPlan(t *testing.T) {
	_, err := Generate(nil, FormatMermaid)
	if err == nil {
		t.Fatal("expected an error for a nil plan")
	}
}
