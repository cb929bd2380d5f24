package debugger

import (
	"encoding/json"
	"fmt"

	"github.com/relaykit/chainforge/pkg/event"
)

// handleNext receives and displays the next event from the run, applying
// its effect to the debugger's local context/history mirror. Multiple
// events (StepStart, then StepComplete) correspond to one plan step, so
// callers typically issue `next` twice per step to see both halves.
func (d *Debugger) handleNext() {
	if d.done {
		fmt.Fprintln(d.output, "Run already finished.")
		return
	}
	ev, ok := <-d.events
	if !ok {
		d.done = true
		fmt.Fprintln(d.output, "Run already finished.")
		return
	}
	d.apply(ev)
}

// handleContinue drains every remaining event without pausing.
func (d *Debugger) handleContinue() {
	for !d.done {
		ev, ok := <-d.events
		if !ok {
			d.done = true
			return
		}
		d.apply(ev)
	}
}

func (d *Debugger) apply(ev event.Event) {
	switch ev.Kind {
	case event.KindStart:
		fmt.Fprintf(d.output, "▸ start: plan %q, %d steps\n", ev.PlanID, ev.StepCount)

	case event.KindStepStart:
		fmt.Fprintf(d.output, "▸ step %s: invoking %q with %v\n", ev.StepID, ev.Tool, ev.ResolvedArgs)

	case event.KindStepComplete:
		d.context[ev.StepID] = ev.Output
		d.history = append(d.history, history{stepID: ev.StepID, status: "success", detail: fmt.Sprintf("%v", ev.Output)})
		fmt.Fprintf(d.output, "  ✓ %s completed in %dms: %v\n", ev.StepID, ev.DurationMs, ev.Output)

	case event.KindStepSkipped:
		d.history = append(d.history, history{stepID: ev.StepID, status: "skipped", detail: ev.Expression})
		fmt.Fprintf(d.output, "  ⊘ %s skipped (%s: %s)\n", ev.StepID, ev.Reason, ev.Expression)

	case event.KindToolLog:
		fmt.Fprintf(d.output, "    [%s] %s\n", ev.StepID, ev.Message)

	case event.KindInterventionNeeded:
		d.context[ev.StepID] = ev.Output
		d.history = append(d.history, history{stepID: ev.StepID, status: "intervention", detail: ev.Expression})
		fmt.Fprintf(d.output, "  ⚠ %s triggered intervention (%s)\n", ev.StepID, ev.Expression)

	case event.KindError:
		d.history = append(d.history, history{stepID: ev.StepID, status: "failed", detail: ev.Message})
		fmt.Fprintf(d.output, "  ✗ %s error (%s): %s\n", ev.StepID, ev.ErrorKind, ev.Message)

	case event.KindFinish:
		d.done = true
		d.verdict = ev.Verdict
		fmt.Fprintf(d.output, "■ finish: verdict=%s\n", ev.Verdict)
	}
}

// handlePrint displays accumulated context or the final verdict.
func (d *Debugger) handlePrint(parts []string) {
	if len(parts) < 2 {
		fmt.Fprintln(d.output, "Usage: print context|verdict")
		return
	}
	switch parts[1] {
	case "context":
		if len(d.context) == 0 {
			fmt.Fprintln(d.output, "No step outputs recorded yet.")
			return
		}
		for k, v := range d.context {
			fmt.Fprintf(d.output, "  %s = %v\n", k, v)
		}
	case "verdict":
		if !d.done {
			fmt.Fprintln(d.output, "Run has not finished yet.")
			return
		}
		fmt.Fprintf(d.output, "  %s\n", d.verdict)
	default:
		fmt.Fprintf(d.output, "Unknown print target: %q. Use 'context' or 'verdict'.\n", parts[1])
	}
}

// handleHistory lists every step event applied so far.
func (d *Debugger) handleHistory() {
	if len(d.history) == 0 {
		fmt.Fprintln(d.output, "No steps completed yet.")
		return
	}
	for _, h := range d.history {
		icon := "✓"
		switch h.status {
		case "skipped":
			icon = "⊘"
		case "intervention":
			icon = "⚠"
		case "failed":
			icon = "✗"
		}
		fmt.Fprintf(d.output, "  %s %s — %s\n", icon, h.stepID, h.status)
		if h.detail != "" {
			fmt.Fprintf(d.output, "       %s\n", h.detail)
		}
	}
}

// handleDump outputs the accumulated context as JSON.
func (d *Debugger) handleDump() {
	data, err := json.MarshalIndent(d.context, "", "  ")
	if err != nil {
		fmt.Fprintf(d.output, "  Error marshaling context: %v\n", err)
		return
	}
	fmt.Fprintln(d.output, string(data))
}

func (d *Debugger) handleHelp() {
	fmt.Fprintln(d.output, "Available commands:")
	fmt.Fprintln(d.output, "  next (n)        Receive and display the next event")
	fmt.Fprintln(d.output, "  continue (c)    Drain all remaining events")
	fmt.Fprintln(d.output, "  print context   Show accumulated step outputs")
	fmt.Fprintln(d.output, "  print verdict   Show the terminal verdict (after finish)")
	fmt.Fprintln(d.output, "  history (h)     Show completed/skipped/failed steps")
	fmt.Fprintln(d.output, "  dump            Output accumulated context as JSON")
	fmt.Fprintln(d.output, "  help (?)        Show this help")
	fmt.Fprintln(d.output, "  quit (q)        Cancel the run and exit")
}
