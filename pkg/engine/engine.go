// Package engine implements the executor: the streaming interpreter that
// walks a validated plan in document order, resolves references, enforces
// guards and escalations, dispatches tools, and emits the event stream
// defined by pkg/event.
package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/relaykit/chainforge/pkg/event"
	"github.com/relaykit/chainforge/pkg/exprlang"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
	"github.com/relaykit/chainforge/pkg/value"
)

// Executor runs one plan against one registry. Both are treated as
// read-only for the lifetime of a run; the Executor itself holds no
// mutable state between calls to Run, so one Executor value may be reused
// for repeated runs of the same plan.
type Executor struct {
	Plan     *plan.Plan
	Registry *registry.Registry
}

// New builds an Executor. Callers are expected to have already validated
// Plan against Registry with pkg/validate.
func New(p *plan.Plan, reg *registry.Registry) *Executor {
	return &Executor{Plan: p, Registry: reg}
}

// Run drives one execution of the plan and returns the event channel. The
// channel is unbuffered: the producing goroutine blocks on send until the
// caller receives, which is how back-pressure works end to end. Exactly
// one Finish event is sent before the channel is closed. ctx cancellation
// is checked at each step boundary, per §5.
func (e *Executor) Run(ctx context.Context) <-chan event.Event {
	ch := make(chan event.Event)
	go e.run(ctx, ch)
	return ch
}

type logSinkKeyType struct{}

var logSinkKey = logSinkKeyType{}

// LogFunc lets a tool body emit a free-text progress message that becomes
// a ToolLog event, without that text becoming part of its structured
// output value.
type LogFunc func(message string)

// LogFromContext retrieves the active step's log sink, or a no-op if none
// is present (e.g. the tool is being called outside of a run, such as in
// a unit test).
func LogFromContext(ctx context.Context) LogFunc {
	if fn, ok := ctx.Value(logSinkKey).(LogFunc); ok {
		return fn
	}
	return func(string) {}
}

func (e *Executor) run(ctx context.Context, ch chan event.Event) {
	defer close(ch)

	runStart := time.Now()
	stepCtx := make(map[string]any)
	var keyFindings []string

	send := func(ev event.Event) bool {
		ev.Timestamp = time.Now().UTC()
		select {
		case ch <- ev:
			return true
		case <-ctx.Done():
			return false
		}
	}

	// sendTerminal delivers a run-ending event even after ctx is
	// cancelled, so the stream always ends with its Finish event.
	sendTerminal := func(ev event.Event) {
		ev.Timestamp = time.Now().UTC()
		ch <- ev
	}

	finish := func(verdict event.Verdict, firstError, trigger string) {
		snapshot, _ := value.DeepCopy(stepCtx).(map[string]any)
		sendTerminal(event.Event{
			Kind:                 event.KindFinish,
			Verdict:              verdict,
			ContextSnapshot:      snapshot,
			KeyFindings:          append([]string{}, keyFindings...),
			TotalDurationMs:      time.Since(runStart).Milliseconds(),
			FirstError:           firstError,
			InterventionTrigger:  trigger,
			Message:              fmt.Sprintf("run finished with verdict %s", verdict),
		})
	}

	failExpression := func(stepID string, err error) {
		wrapped := &StepError{StepID: stepID, Kind: event.ErrorKindExpression, Err: err}
		send(event.Event{
			Kind:      event.KindError,
			StepID:    stepID,
			ErrorKind: event.ErrorKindExpression,
			Message:   wrapped.Error(),
		})
		finish(event.VerdictFailure, stepID, "")
	}

	send(event.Event{
		Kind:      event.KindStart,
		PlanID:    e.Plan.ID,
		StepCount: len(e.Plan.Steps),
		Message:   fmt.Sprintf("starting plan %q with %d steps", e.Plan.ID, len(e.Plan.Steps)),
	})

	for _, step := range e.Plan.Steps {
		select {
		case <-ctx.Done():
			sendTerminal(event.Event{Kind: event.KindError, ErrorKind: event.ErrorKindCancelled, Message: "run cancelled"})
			finish(event.VerdictCancelled, "", "")
			return
		default:
		}

		if step.RunIf != "" {
			truthy, err := evalGuard(step.RunIf, stepCtx)
			if err != nil {
				failExpression(step.ID, err)
				return
			}
			if !truthy {
				send(event.Event{
					Kind:       event.KindStepSkipped,
					StepID:     step.ID,
					Reason:     "run_if",
					Expression: step.RunIf,
					Message:    fmt.Sprintf("step %s skipped: run_if evaluated false", step.ID),
				})
				continue
			}
		}

		resolvedArgs, err := exprlang.ResolveArgs(step.Args, stepCtx)
		if err != nil {
			failExpression(step.ID, err)
			return
		}

		send(event.Event{
			Kind:         event.KindStepStart,
			StepID:       step.ID,
			Tool:         step.Tool,
			ResolvedArgs: resolvedArgs,
			Description:  step.Description,
			KeyFinding:   step.KeyFinding,
			Message:      fmt.Sprintf("step %s: invoking tool %q", step.ID, step.Tool),
		})

		stepStart := time.Now()
		logSink := LogFunc(func(msg string) {
			send(event.Event{Kind: event.KindToolLog, StepID: step.ID, Message: msg})
		})
		toolCtx := context.WithValue(ctx, logSinkKey, logSink)

		output, err := e.Registry.Invoke(toolCtx, step.Tool, resolvedArgs)
		if err != nil {
			toolErr := &StepError{StepID: step.ID, Kind: event.ErrorKindTool, Err: err}
			send(event.Event{
				Kind:      event.KindError,
				StepID:    step.ID,
				ErrorKind: event.ErrorKindTool,
				Message:   toolErr.Error(),
				Cause:     err.Error(),
			})
			finish(event.VerdictFailure, step.ID, "")
			return
		}

		stepCtx[step.ID] = output
		if step.KeyFinding {
			keyFindings = append(keyFindings, step.ID)
		}

		if step.InterventionIf != "" {
			truthy, err := evalGuard(step.InterventionIf, stepCtx)
			if err != nil {
				failExpression(step.ID, err)
				return
			}
			if truthy {
				send(event.Event{
					Kind:       event.KindInterventionNeeded,
					StepID:     step.ID,
					Expression: step.InterventionIf,
					Output:     output,
					Message:    fmt.Sprintf("step %s triggered intervention", step.ID),
				})
				finish(event.VerdictInterventionNeeded, "", step.ID)
				return
			}
		}

		send(event.Event{
			Kind:       event.KindStepComplete,
			StepID:     step.ID,
			Output:     output,
			DurationMs: time.Since(stepStart).Milliseconds(),
			Message:    fmt.Sprintf("step %s completed in %dms", step.ID, time.Since(stepStart).Milliseconds()),
		})
	}

	finish(event.VerdictSuccess, "", "")
}

// evalGuard parses and evaluates a guard/escalation expression. A parse
// failure and a reference/type-mismatch failure are both reported as the
// single returned error; per §4.4 both collapse to the same Expression
// error-event handling.
func evalGuard(exprText string, ctx map[string]any) (truthy bool, err error) {
	node, err := exprlang.Parse(exprText)
	if err != nil {
		return false, err
	}
	return exprlang.EvalBool(node, ctx)
}

// RunSync drives Run to completion and materializes the terminal Result,
// for callers that do not want to consume the stream directly. If
// includeEvents is true, every non-terminal event is collected into the
// Result's Events field.
func (e *Executor) RunSync(ctx context.Context, includeEvents bool) *event.Result {
	var events []event.Event
	var finishEvt event.Event

	for ev := range e.Run(ctx) {
		if ev.Kind == event.KindFinish {
			finishEvt = ev
			continue
		}
		if includeEvents {
			events = append(events, ev)
		}
	}

	return &event.Result{
		Verdict:         finishEvt.Verdict,
		ContextSnapshot: finishEvt.ContextSnapshot,
		KeyFindings:     finishEvt.KeyFindings,
		TotalDuration:   time.Duration(finishEvt.TotalDurationMs) * time.Millisecond,
		FirstError:      finishEvt.FirstError,
		Intervention:    finishEvt.InterventionTrigger,
		Events:          events,
	}
}
