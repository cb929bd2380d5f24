// Package main provides the chainforge-tui binary: a Bubble Tea dashboard
// that runs a plan and renders its live event stream.
package main

import (
	"context"
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/relaykit/chainforge/internal/examples"
	"github.com/relaykit/chainforge/pkg/plan"
	"github.com/relaykit/chainforge/pkg/registry"
	"github.com/relaykit/chainforge/pkg/tui"
	"github.com/relaykit/chainforge/pkg/validate"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, "Usage: chainforge-tui <plan.yaml>")
		os.Exit(1)
	}

	reg := registry.New()
	examples.Register(reg)

	p, err := plan.LoadFile(os.Args[1])
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if errs := validate.Plan(p, reg); len(errs) > 0 {
		for _, e := range errs {
			fmt.Fprintf(os.Stderr, "  %s\n", e.Error())
		}
		os.Exit(1)
	}

	model := tui.NewModel(p).StartRun(context.Background(), reg)
	program := tea.NewProgram(model, tea.WithAltScreen())

	if _, err := program.Run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
