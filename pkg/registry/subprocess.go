package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"regexp"
	"strings"

	"github.com/expr-lang/expr"

	"github.com/relaykit/chainforge/pkg/toolspec"
)

// SubprocessInvoker runs one action of a stdio-transport ToolSpec as a
// subprocess. Each "{{ expr }}" span in an argv element is evaluated as an
// expr-lang expression against the resolved arguments, giving tool authors
// a small amount of templating power ("{{ len(args.targets) }}",
// "{{ args.path + \".bak\" }}") without reusing the hand-rolled guard
// grammar for an unrelated purpose; elements without "{{" pass through as
// literals.
type SubprocessInvoker struct {
	Spec   *toolspec.ToolSpec
	Action string
}

var _ Invoker = (*SubprocessInvoker)(nil)

// RegisterSubprocessTool registers every action of a stdio-transport spec
// into reg. An action named the same as the tool itself (or the sole
// action, when there is only one) is additionally registered under the
// bare tool name, so a single-action tool's plan steps can just say
// `tool: name`. Callers load a directory of tool/v1 documents and must
// branch on spec.Meta.Transport themselves: an mcp-transport spec needs a
// live connection to dial (pkg/mcpbridge.RegisterDeclarativeMCPTool)
// rather than a subprocess, and this package cannot import pkg/mcpbridge
// without an import cycle (mcpbridge already depends on registry).
func RegisterSubprocessTool(reg *Registry, spec *toolspec.ToolSpec) {
	for actionName, action := range spec.Actions {
		qualified := spec.Meta.Name + "." + actionName
		inv := &SubprocessInvoker{Spec: spec, Action: actionName}
		reg.Register(&Entry{Name: qualified, Description: action.Description, Async: true, Invoker: inv})
		if actionName == spec.Meta.Name || len(spec.Actions) == 1 {
			reg.Register(&Entry{Name: spec.Meta.Name, Description: action.Description, Async: true, Invoker: inv})
		}
	}
}

func (s *SubprocessInvoker) Invoke(ctx context.Context, args map[string]any) (any, error) {
	action, ok := s.Spec.Actions[s.Action]
	if !ok {
		return nil, fmt.Errorf("tool %q has no action %q", s.Spec.Meta.Name, s.Action)
	}

	argv, err := renderArgv(action.Argv, args)
	if err != nil {
		return nil, fmt.Errorf("tool %q: rendering argv: %w", s.Spec.Meta.Name, err)
	}

	binary := s.Spec.Meta.Binary
	if binary == "" {
		return nil, fmt.Errorf("tool %q: no binary configured for stdio transport", s.Spec.Meta.Name)
	}

	cmd := exec.CommandContext(ctx, binary, argv...) // #nosec G204 -- binary and argv are operator-declared tool config, not end-user input
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	runErr := cmd.Run()
	exitCode := 0
	if runErr != nil {
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			exitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("tool %q: %w", s.Spec.Meta.Name, runErr)
		}
	}
	if exitCode != 0 {
		return nil, fmt.Errorf("tool %q: exited with code %d: %s", s.Spec.Meta.Name, exitCode, strings.TrimSpace(stderr.String()))
	}

	return applyExtract(action.Extract, stdout.String(), stderr.String())
}

func renderArgv(templates []string, args map[string]any) ([]string, error) {
	out := make([]string, 0, len(templates))
	env := map[string]any{"args": args}
	for _, tmpl := range templates {
		if !strings.Contains(tmpl, "{{") {
			out = append(out, tmpl)
			continue
		}
		rendered, err := renderTemplateExpr(tmpl, env)
		if err != nil {
			return nil, err
		}
		out = append(out, rendered)
	}
	return out, nil
}

var exprTemplatePattern = regexp.MustCompile(`\{\{\s*(.*?)\s*\}\}`)

// renderTemplateExpr substitutes every "{{ expr }}" span in tmpl with the
// string form of evaluating expr (an expr-lang expression) against env.
func renderTemplateExpr(tmpl string, env map[string]any) (string, error) {
	var evalErr error
	result := exprTemplatePattern.ReplaceAllStringFunc(tmpl, func(match string) string {
		if evalErr != nil {
			return ""
		}
		inner := exprTemplatePattern.FindStringSubmatch(match)[1]
		program, err := expr.Compile(inner, expr.Env(env))
		if err != nil {
			evalErr = fmt.Errorf("compiling %q: %w", inner, err)
			return ""
		}
		out, err := expr.Run(program, env)
		if err != nil {
			evalErr = fmt.Errorf("evaluating %q: %w", inner, err)
			return ""
		}
		return fmt.Sprintf("%v", out)
	})
	if evalErr != nil {
		return "", evalErr
	}
	return result, nil
}

func applyExtract(rules map[string]toolspec.Extract, stdout, stderr string) (any, error) {
	if len(rules) == 0 {
		return map[string]any{"stdout": stdout, "stderr": stderr}, nil
	}
	out := make(map[string]any, len(rules))
	for field, rule := range rules {
		v, err := extractOne(rule, stdout, stderr)
		if err != nil {
			return nil, fmt.Errorf("extracting %q: %w", field, err)
		}
		out[field] = v
	}
	return out, nil
}

func extractOne(rule toolspec.Extract, stdout, stderr string) (any, error) {
	switch rule.From {
	case "stdout":
		return extractText(rule, stdout)
	case "stderr":
		return extractText(rule, stderr)
	case "json":
		var doc any
		if err := json.Unmarshal([]byte(stdout), &doc); err != nil {
			return nil, fmt.Errorf("parsing stdout as json: %w", err)
		}
		if rule.Path == "" {
			return doc, nil
		}
		return jsonPath(doc, strings.Split(rule.Path, "."))
	default:
		return nil, fmt.Errorf("unknown extract source %q", rule.From)
	}
}

func extractText(rule toolspec.Extract, text string) (any, error) {
	if rule.Pattern == "" {
		return strings.TrimSpace(text), nil
	}
	re, err := regexp.Compile(rule.Pattern)
	if err != nil {
		return nil, fmt.Errorf("compiling pattern %q: %w", rule.Pattern, err)
	}
	m := re.FindStringSubmatch(text)
	if m == nil {
		return nil, fmt.Errorf("pattern %q did not match output", rule.Pattern)
	}
	if len(m) > 1 {
		return m[1], nil
	}
	return m[0], nil
}

func jsonPath(doc any, segments []string) (any, error) {
	cur := doc
	for _, seg := range segments {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("path segment %q: not a JSON object", seg)
		}
		next, present := m[seg]
		if !present {
			return nil, fmt.Errorf("path segment %q: not found", seg)
		}
		cur = next
	}
	return cur, nil
}
