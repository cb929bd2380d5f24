// Package debugger implements an interactive REPL for stepping through a
// plan run one step at a time.
//
// It drives the engine's own unbuffered event channel rather than a
// separate step-execution API: the executor blocks on send until a
// value is received, so the debugger simply withholds the receive until
// the user issues "next" or "continue". No engine code needs to know it
// is being debugged.
package debugger

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/chzyer/readline"

	"github.com/relaykit/chainforge/pkg/engine"
	"github.com/relaykit/chainforge/pkg/event"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
)

// history holds one completed step's record for the `history` command.
type history struct {
	stepID string
	status string // "success", "skipped", "intervention", "failed"
	detail string
}

// Debugger steps through one run of a plan, printing each event as it
// arrives and letting the user inspect accumulated outputs in between.
type Debugger struct {
	plan    *plan.Plan
	events  <-chan event.Event
	cancel  context.CancelFunc
	output  io.Writer
	rl      *readline.Instance
	context map[string]any // accumulated step outputs, mirrors engine's stepCtx
	history []history
	done    bool
	verdict event.Verdict
}

// New builds a debugger for p. The run does not start until Run is
// called with a registry.
func New(p *plan.Plan) *Debugger {
	return &Debugger{plan: p, output: os.Stdout, context: make(map[string]any)}
}

// Run starts the plan run and the interactive REPL loop.
func (d *Debugger) Run(ctx context.Context, reg *registry.Registry) error {
	runCtx, cancel := context.WithCancel(ctx)
	d.cancel = cancel
	d.events = engine.New(d.plan, reg).Run(runCtx)

	completer := readline.NewPrefixCompleter()
	for _, cmd := range []string{"next", "continue", "print", "history", "dump", "help", "quit"} {
		completer.Children = append(completer.Children, readline.PcItem(cmd))
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          d.buildPrompt(),
		AutoComplete:    completer,
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		return fmt.Errorf("init readline: %w", err)
	}
	d.rl = rl
	defer rl.Close()

	fmt.Fprintf(d.output, "chainforge debugger — %d steps\n", len(d.plan.Steps))
	fmt.Fprintf(d.output, "Type 'help' for available commands, 'next' to receive the next event.\n\n")

	for {
		rl.SetPrompt(d.buildPrompt())
		line, err := rl.Readline()
		if err != nil {
			if err == readline.ErrInterrupt || err == io.EOF {
				d.cancel()
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		parts := strings.Fields(line)

		switch parts[0] {
		case "next", "n":
			d.handleNext()
		case "continue", "c":
			d.handleContinue()
		case "print", "p":
			d.handlePrint(parts)
		case "history", "h":
			d.handleHistory()
		case "dump":
			d.handleDump()
		case "help", "?":
			d.handleHelp()
		case "quit", "q":
			fmt.Fprintln(d.output, "Exiting debugger.")
			d.cancel()
			return nil
		default:
			fmt.Fprintf(d.output, "Unknown command: %q. Type 'help' for available commands.\n", parts[0])
		}
	}
}

func (d *Debugger) buildPrompt() string {
	if d.done {
		return "chainforge[done]> "
	}
	return fmt.Sprintf("chainforge[%d/%d]> ", len(d.history), len(d.plan.Steps))
}
