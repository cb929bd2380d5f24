package registry

import (
	"context"
	"testing"

	"github.com/relaykit/chainforge/pkg/toolspec"
)

func TestRenderArgv(t *testing.T) {
	args := map[string]any{"name": "world", "count": 3.0}

	cases := []struct {
		name      string
		templates []string
		want      []string
		wantErr   bool
	}{
		{"literal passthrough", []string{"greet", "--flag"}, []string{"greet", "--flag"}, false},
		{"single substitution", []string{"hello", "{{ args.name }}"}, []string{"hello", "world"}, false},
		{"substitution mixed with literal text", []string{"count={{ args.count }}x"}, []string{"count=3x"}, false},
		{"bad expression", []string{"{{ args. }}"}, nil, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := renderArgv(c.templates, args)
			if c.wantErr {
				if err == nil {
					t.Fatalf("renderArgv(%v): expected error, got none", c.templates)
				}
				return
			}
			if err != nil {
				t.Fatalf("renderArgv(%v): unexpected error: %v", c.templates, err)
			}
			if len(got) != len(c.want) {
				t.Fatalf("renderArgv(%v) = %v, want %v", c.templates, got, c.want)
			}
			for i := range c.want {
				if got[i] != c.want[i] {
					t.Errorf("renderArgv(%v)[%d] = %q, want %q", c.templates, i, got[i], c.want[i])
				}
			}
		})
	}
}

func TestApplyExtractDefaultsToStdoutStderr(t *testing.T) {
	out, err := applyExtract(nil, "out-text", "err-text")
	if err != nil {
		t.Fatalf("applyExtract: unexpected error: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["stdout"] != "out-text" || m["stderr"] != "err-text" {
		t.Errorf("applyExtract(nil) = %#v, want stdout/stderr passthrough", out)
	}
}

func TestExtractOneStdoutText(t *testing.T) {
	v, err := extractOne(toolspec.Extract{From: "stdout"}, "  trimmed  \n", "")
	if err != nil {
		t.Fatalf("extractOne: unexpected error: %v", err)
	}
	if v != "trimmed" {
		t.Errorf("extractOne(stdout, no pattern) = %q, want %q", v, "trimmed")
	}
}

func TestExtractOneStdoutPattern(t *testing.T) {
	v, err := extractOne(toolspec.Extract{From: "stdout", Pattern: `rows=(\d+)`}, "rows=42 total", "")
	if err != nil {
		t.Fatalf("extractOne: unexpected error: %v", err)
	}
	if v != "42" {
		t.Errorf("extractOne(stdout, pattern) = %q, want %q", v, "42")
	}
}

func TestExtractOneStderrNoMatch(t *testing.T) {
	if _, err := extractOne(toolspec.Extract{From: "stderr", Pattern: `CRITICAL`}, "", "warning: low fuel"); err == nil {
		t.Error("extractOne(stderr, non-matching pattern): expected error, got none")
	}
}

func TestExtractOneJSONPath(t *testing.T) {
	stdout := `{"status": {"level": "critical", "value": 14.5}}`

	v, err := extractOne(toolspec.Extract{From: "json", Path: "status.level"}, stdout, "")
	if err != nil {
		t.Fatalf("extractOne: unexpected error: %v", err)
	}
	if v != "critical" {
		t.Errorf("extractOne(json, path) = %v, want %q", v, "critical")
	}

	full, err := extractOne(toolspec.Extract{From: "json"}, stdout, "")
	if err != nil {
		t.Fatalf("extractOne: unexpected error: %v", err)
	}
	if _, ok := full.(map[string]any); !ok {
		t.Errorf("extractOne(json, no path) = %#v, want the whole decoded document", full)
	}
}

func TestExtractOneJSONPathMissingSegment(t *testing.T) {
	if _, err := extractOne(toolspec.Extract{From: "json", Path: "status.missing"}, `{"status": {}}`, ""); err == nil {
		t.Error("extractOne(json, missing segment): expected error, got none")
	}
}

func TestExtractOneJSONInvalidDocument(t *testing.T) {
	if _, err := extractOne(toolspec.Extract{From: "json"}, "not json", ""); err == nil {
		t.Error("extractOne(json, invalid document): expected error, got none")
	}
}

func TestExtractOneUnknownSource(t *testing.T) {
	if _, err := extractOne(toolspec.Extract{From: "carrier-pigeon"}, "", ""); err == nil {
		t.Error("extractOne(unknown source): expected error, got none")
	}
}

func TestJSONPathThroughNonObject(t *testing.T) {
	if _, err := jsonPath("just a string", []string{"a"}); err == nil {
		t.Error("jsonPath through a non-object: expected error, got none")
	}
}

func shTool(argv []string, extract map[string]toolspec.Extract) *toolspec.ToolSpec {
	return &toolspec.ToolSpec{
		APIVersion: toolspec.APIVersion,
		Meta:       toolspec.ToolMeta{Name: "probe", Transport: toolspec.TransportStdio, Binary: "sh"},
		Actions: map[string]toolspec.ToolAction{
			"probe": {Argv: argv, Extract: extract},
		},
	}
}

// TestSubprocessInvokeSuccess runs a real subprocess end to end: argv
// templating resolves the shell script to run, and the extraction rules
// pull a field out of its stdout.
func TestSubprocessInvokeSuccess(t *testing.T) {
	spec := shTool(
		[]string{"-c", `echo "level={{ args.level }}"`},
		map[string]toolspec.Extract{"level": {From: "stdout", Pattern: `level=(\w+)`}},
	)
	inv := &SubprocessInvoker{Spec: spec, Action: "probe"}

	out, err := inv.Invoke(context.Background(), map[string]any{"level": "critical"})
	if err != nil {
		t.Fatalf("Invoke: unexpected error: %v", err)
	}
	m, ok := out.(map[string]any)
	if !ok || m["level"] != "critical" {
		t.Errorf("Invoke output = %#v, want {level: critical}", out)
	}
}

// TestSubprocessInvokeNonZeroExit confirms a non-zero exit surfaces as an
// error carrying the process's stderr.
func TestSubprocessInvokeNonZeroExit(t *testing.T) {
	spec := shTool([]string{"-c", `echo "boom" 1>&2; exit 3`}, nil)
	inv := &SubprocessInvoker{Spec: spec, Action: "probe"}

	_, err := inv.Invoke(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("Invoke: expected an error for a non-zero exit, got none")
	}
}

func TestSubprocessInvokeMissingBinary(t *testing.T) {
	spec := &toolspec.ToolSpec{
		Meta: toolspec.ToolMeta{Name: "no-binary", Transport: toolspec.TransportStdio},
		Actions: map[string]toolspec.ToolAction{
			"probe": {},
		},
	}
	inv := &SubprocessInvoker{Spec: spec, Action: "probe"}

	_, err := inv.Invoke(context.Background(), map[string]any{})
	if err == nil {
		t.Fatal("Invoke: expected an error when meta.binary is unset, got none")
	}
}

func TestSubprocessInvokeUnknownAction(t *testing.T) {
	spec := shTool([]string{"-c", "echo hi"}, nil)
	inv := &SubprocessInvoker{Spec: spec, Action: "missing"}

	if _, err := inv.Invoke(context.Background(), map[string]any{}); err == nil {
		t.Fatal("Invoke: expected an error for an undeclared action, got none")
	}
}

func TestRegisterSubprocessToolBareNameForSingleAction(t *testing.T) {
	reg := New()
	spec := shTool([]string{"-c", "echo hi"}, nil)
	RegisterSubprocessTool(reg, spec)

	if !reg.Has("probe") {
		t.Error(`expected bare tool name "probe" to be registered for a single-action spec`)
	}
	if !reg.Has("probe.probe") {
		t.Error(`expected qualified name "probe.probe" to also be registered`)
	}
}

func TestRegisterSubprocessToolMultiActionQualifiedOnly(t *testing.T) {
	reg := New()
	spec := &toolspec.ToolSpec{
		Meta: toolspec.ToolMeta{Name: "multi", Transport: toolspec.TransportStdio, Binary: "sh"},
		Actions: map[string]toolspec.ToolAction{
			"a": {Argv: []string{"-c", "echo a"}},
			"b": {Argv: []string{"-c", "echo b"}},
		},
	}
	RegisterSubprocessTool(reg, spec)

	if reg.Has("multi") {
		t.Error(`expected bare name "multi" not to be registered: two actions, neither named after the tool`)
	}
	if !reg.Has("multi.a") || !reg.Has("multi.b") {
		t.Error("expected both qualified action names to be registered")
	}
}
