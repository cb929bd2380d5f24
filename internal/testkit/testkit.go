// Package testkit is a small scenario-assertion harness used by the CLI's
// `test` subcommand and by its own tests: given a run's Result, it asserts
// on the verdict, visited steps, and outputs.
package testkit

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/relaykit/chainforge/pkg/event"
)

// Spec declares what to assert about a run. All fields are optional;
// omitted fields produce no assertions.
type Spec struct {
	ExpectedVerdict event.Verdict     `yaml:"verdict,omitempty"`
	MustReach       []string          `yaml:"must_reach,omitempty"`
	MustNotReach    []string          `yaml:"must_not_reach,omitempty"`
	ExpectedOutputs map[string]string `yaml:"outputs,omitempty"` // "stepID.field" -> expected value (fmt.Sprint comparison, or /regex/)
}

// AssertionResult is the outcome of one assertion in a Spec.
type AssertionResult struct {
	Type     string
	Key      string
	Expected string
	Actual   string
	Passed   bool
	Message  string
}

// Evaluate checks result against spec, deriving the visited-step set from
// the non-terminal events (every StepStart marks a step as visited,
// whether or not it went on to complete).
func Evaluate(spec *Spec, result *event.Result) []AssertionResult {
	var results []AssertionResult

	if spec.ExpectedVerdict != "" {
		results = append(results, AssertionResult{
			Type:     "expected_verdict",
			Expected: string(spec.ExpectedVerdict),
			Actual:   string(result.Verdict),
			Passed:   result.Verdict == spec.ExpectedVerdict,
			Message:  fmt.Sprintf("verdict: expected %q, got %q", spec.ExpectedVerdict, result.Verdict),
		})
	}

	visited := make(map[string]bool)
	for _, ev := range result.Events {
		if ev.Kind == event.KindStepStart {
			visited[ev.StepID] = true
		}
	}

	for _, id := range spec.MustReach {
		results = append(results, AssertionResult{
			Type: "must_reach", Key: id, Expected: "visited",
			Actual: visitedLabel(visited[id]), Passed: visited[id],
			Message: fmt.Sprintf("must_reach %q: %s", id, visitedLabel(visited[id])),
		})
	}
	for _, id := range spec.MustNotReach {
		results = append(results, AssertionResult{
			Type: "must_not_reach", Key: id, Expected: "not visited",
			Actual: visitedLabel(visited[id]), Passed: !visited[id],
			Message: fmt.Sprintf("must_not_reach %q: %s", id, visitedLabel(visited[id])),
		})
	}

	for path, expected := range spec.ExpectedOutputs {
		actual := lookupOutput(result.ContextSnapshot, path)
		passed := compareValue(expected, actual)
		results = append(results, AssertionResult{
			Type: "expected_output", Key: path, Expected: expected, Actual: actual, Passed: passed,
			Message: fmt.Sprintf("output %q: expected %q, got %q", path, expected, actual),
		})
	}

	return results
}

// HasFailures reports whether any assertion in results failed.
func HasFailures(results []AssertionResult) bool {
	for _, r := range results {
		if !r.Passed {
			return true
		}
	}
	return false
}

func visitedLabel(b bool) string {
	if b {
		return "visited"
	}
	return "not visited"
}

func lookupOutput(snapshot map[string]any, dottedPath string) string {
	segments := strings.Split(dottedPath, ".")
	var cur any = snapshot
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return ""
		}
		v, present := m[seg]
		if !present {
			return ""
		}
		cur = v
	}
	return fmt.Sprint(cur)
}

func compareValue(expected, actual string) bool {
	if strings.HasPrefix(expected, "/") && strings.HasSuffix(expected, "/") && len(expected) > 2 {
		re, err := regexp.Compile(expected[1 : len(expected)-1])
		if err != nil {
			return false
		}
		return re.MatchString(actual)
	}
	return expected == actual
}
