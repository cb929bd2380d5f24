package engine

import (
	"context"
	"errors"
	"testing"

	"github.com/relaykit/chainforge/pkg/event"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
)

func syncTool(fn func(args map[string]any) (any, error)) registry.InvokeFunc {
	return func(ctx context.Context, args map[string]any) (any, error) {
		return fn(args)
	}
}

func collectEvents(ch <-chan event.Event) []event.Event {
	var out []event.Event
	for ev := range ch {
		out = append(out, ev)
	}
	return out
}

func kinds(evts []event.Event) []event.Kind {
	out := make([]event.Kind, len(evts))
	for i, e := range evts {
		out[i] = e.Kind
	}
	return out
}

// Scenario A — linear success.
func TestScenarioA_LinearSuccess(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("scan_hull", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"integrity": 98.0, "breach": false}, nil
	}))
	reg.RegisterFunc("check_oxygen", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"level": 21.0, "status": "NORMAL"}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "scan_hull"},
		{ID: "s2", Tool: "check_oxygen"},
	}}

	events := collectEvents(New(p, reg).Run(context.Background()))
	got := kinds(events)
	want := []event.Kind{
		event.KindStart, event.KindStepStart, event.KindStepComplete,
		event.KindStepStart, event.KindStepComplete, event.KindFinish,
	}
	if len(got) != len(want) {
		t.Fatalf("event kinds = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("event[%d] = %v, want %v", i, got[i], want[i])
		}
	}
	finish := events[len(events)-1]
	if finish.Verdict != event.VerdictSuccess {
		t.Fatalf("verdict = %v, want Success", finish.Verdict)
	}
	snap := finish.ContextSnapshot
	s1 := snap["s1"].(map[string]any)
	if s1["integrity"] != 98.0 || s1["breach"] != false {
		t.Errorf("s1 snapshot wrong: %v", s1)
	}
}

// Scenario B — reference passing.
func TestScenarioB_ReferencePassing(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("check_oxygen", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"level": 14.5}, nil
	}))
	var capturedArgs map[string]any
	reg.RegisterFunc("analyze", "", false, syncTool(func(args map[string]any) (any, error) {
		capturedArgs = args
		level := args["o2_level"].(float64)
		if level >= 18 {
			return map[string]any{"severity": "LOW"}, nil
		}
		return map[string]any{"severity": "HIGH"}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "check_oxygen"},
		{ID: "s2", Tool: "analyze", Args: map[string]any{"o2_level": "$s1.level"}},
	}}

	result := New(p, reg).RunSync(context.Background(), false)
	if result.Verdict != event.VerdictSuccess {
		t.Fatalf("verdict = %v, want Success", result.Verdict)
	}
	if capturedArgs["o2_level"] != 14.5 {
		t.Fatalf("s2 invoked with %v, want o2_level=14.5", capturedArgs)
	}
	s2 := result.ContextSnapshot["s2"].(map[string]any)
	if s2["severity"] != "HIGH" {
		t.Errorf("s2 output = %v, want severity=HIGH", s2)
	}
}

// Scenario C — guard skips.
func TestScenarioC_GuardSkips(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("scan_hull", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"breach": false}, nil
	}))
	checkEngineCalled := false
	reg.RegisterFunc("check_engine", "", false, syncTool(func(args map[string]any) (any, error) {
		checkEngineCalled = true
		return map[string]any{}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "scan_hull"},
		{ID: "s2", Tool: "check_engine", RunIf: "$s1.breach"},
	}}

	events := collectEvents(New(p, reg).Run(context.Background()))
	var skip *event.Event
	for i := range events {
		if events[i].Kind == event.KindStepSkipped {
			skip = &events[i]
		}
	}
	if skip == nil {
		t.Fatal("expected a StepSkipped event")
	}
	if skip.StepID != "s2" || skip.Reason != "run_if" || skip.Expression != "$s1.breach" {
		t.Errorf("unexpected skip event: %+v", skip)
	}
	if checkEngineCalled {
		t.Error("check_engine should not have been invoked")
	}
	finish := events[len(events)-1]
	if finish.Verdict != event.VerdictSuccess {
		t.Fatalf("verdict = %v, want Success", finish.Verdict)
	}
	if _, ok := finish.ContextSnapshot["s2"]; ok {
		t.Error("context should not contain skipped step s2")
	}
}

// Scenario D — intervention.
func TestScenarioD_Intervention(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("check_oxygen", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"level": 12.0}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "check_oxygen", InterventionIf: "$s1.level < 15"},
	}}

	events := collectEvents(New(p, reg).Run(context.Background()))
	got := kinds(events)
	want := []event.Kind{event.KindStart, event.KindStepStart, event.KindInterventionNeeded, event.KindFinish}
	if len(got) != len(want) {
		t.Fatalf("event kinds = %v, want %v", got, want)
	}
	finish := events[len(events)-1]
	if finish.Verdict != event.VerdictInterventionNeeded || finish.InterventionTrigger != "s1" {
		t.Fatalf("finish = %+v", finish)
	}
	if _, ok := finish.ContextSnapshot["s1"]; !ok {
		t.Error("context should still contain s1 despite intervention")
	}
}

// Scenario E — tool failure.
func TestScenarioE_ToolFailure(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("scan_hull", "", false, syncTool(func(args map[string]any) (any, error) {
		return nil, errors.New("sensor offline")
	}))
	s2Called := false
	reg.RegisterFunc("check_oxygen", "", false, syncTool(func(args map[string]any) (any, error) {
		s2Called = true
		return map[string]any{}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "scan_hull"},
		{ID: "s2", Tool: "check_oxygen"},
	}}

	events := collectEvents(New(p, reg).Run(context.Background()))
	got := kinds(events)
	want := []event.Kind{event.KindStart, event.KindStepStart, event.KindError, event.KindFinish}
	if len(got) != len(want) {
		t.Fatalf("event kinds = %v, want %v", got, want)
	}
	errEvt := events[2]
	if errEvt.StepID != "s1" || errEvt.ErrorKind != event.ErrorKindTool {
		t.Errorf("unexpected error event: %+v", errEvt)
	}
	finish := events[len(events)-1]
	if finish.Verdict != event.VerdictFailure || finish.FirstError != "s1" {
		t.Fatalf("finish = %+v", finish)
	}
	if s2Called {
		t.Error("s2 should never have started")
	}
}

// Scenario F — bad reference.
func TestScenarioF_BadReference(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("scan_hull", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"breach": false}, nil
	}))
	reg.RegisterFunc("analyze", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "scan_hull"},
		{ID: "s2", Tool: "analyze", Args: map[string]any{"o2_level": "$s1.oxygen"}},
	}}

	events := collectEvents(New(p, reg).Run(context.Background()))
	finish := events[len(events)-1]
	if finish.Kind != event.KindFinish || finish.Verdict != event.VerdictFailure {
		t.Fatalf("finish = %+v", finish)
	}
	var errEvt *event.Event
	for i := range events {
		if events[i].Kind == event.KindError {
			errEvt = &events[i]
		}
	}
	if errEvt == nil || errEvt.StepID != "s2" || errEvt.ErrorKind != event.ErrorKindExpression {
		t.Fatalf("expected an Expression error on s2, got %+v", errEvt)
	}
}

// Reference to a skipped step is a ReferenceError, not silent-falsy.
func TestReferenceToSkippedStepIsError(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("a", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{"go": false}, nil
	}))
	reg.RegisterFunc("b", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{}, nil
	}))
	reg.RegisterFunc("c", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{}, nil
	}))

	p := &plan.Plan{Steps: []plan.Step{
		{ID: "s1", Tool: "a"},
		{ID: "s2", Tool: "b", RunIf: "$s1.go"},
		{ID: "s3", Tool: "c", RunIf: "$s2.something"},
	}}

	result := New(p, reg).RunSync(context.Background(), false)
	if result.Verdict != event.VerdictFailure {
		t.Fatalf("verdict = %v, want Failure", result.Verdict)
	}
	if result.FirstError != "s3" {
		t.Fatalf("first_error = %q, want s3", result.FirstError)
	}
}

func TestCancellation(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("noop", "", false, syncTool(func(args map[string]any) (any, error) {
		return map[string]any{}, nil
	}))
	p := &plan.Plan{Steps: []plan.Step{{ID: "s1", Tool: "noop"}, {ID: "s2", Tool: "noop"}}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result := New(p, reg).RunSync(ctx, false)
	if result.Verdict != event.VerdictCancelled {
		t.Fatalf("verdict = %v, want Cancelled", result.Verdict)
	}
}

func TestToolLogEvent(t *testing.T) {
	reg := registry.New()
	reg.RegisterFunc("chatty", "", false, func(ctx context.Context, args map[string]any) (any, error) {
		LogFromContext(ctx)("working...")
		return map[string]any{"done": true}, nil
	})
	p := &plan.Plan{Steps: []plan.Step{{ID: "s1", Tool: "chatty"}}}

	events := collectEvents(New(p, reg).Run(context.Background()))
	found := false
	for _, ev := range events {
		if ev.Kind == event.KindToolLog && ev.StepID == "s1" && ev.Message == "working..." {
			found = true
		}
	}
	if !found {
		t.Error("expected a ToolLog event from the tool body")
	}
}
