// Package diagram renders a plan's step sequence as a flowchart.
// Supports Mermaid and ASCII output.
package diagram

import (
	"fmt"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/relaykit/chainforge/pkg/plan"
)

// Format is an output diagram format.
type Format string

const (
	FormatMermaid Format = "mermaid"
	FormatASCII   Format = "ascii"
)

// Generate produces a diagram string for p.
func Generate(p *plan.Plan, format Format) (string, error) {
	if p == nil {
		return "", fmt.Errorf("nil plan")
	}
	switch format {
	case FormatMermaid:
		return generateMermaid(p), nil
	case FormatASCII:
		return generateASCII(p), nil
	default:
		return "", fmt.Errorf("unsupported diagram format: %s", format)
	}
}

// --- Mermaid flowchart ---

func generateMermaid(p *plan.Plan) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	if len(p.Steps) == 0 {
		return b.String()
	}

	b.WriteString("    START([Start]) --> " + safeID(p.Steps[0].ID) + "\n")

	for i, s := range p.Steps {
		b.WriteString("    " + nodeDefinition(s) + "\n")

		if s.RunIf != "" {
			skipID := safeID(s.ID + "_skip")
			b.WriteString(fmt.Sprintf("    %s(([\"skipped\"]))\n", skipID))
			b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", safeID(s.ID), "guard false", skipID))
			if i < len(p.Steps)-1 {
				b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", skipID, "continue", safeID(p.Steps[i+1].ID)))
			}
		}

		if s.InterventionIf != "" {
			escID := safeID(s.ID + "_intervention")
			b.WriteString(fmt.Sprintf("    %s([\"%s\"])\n", escID, "Request Assistance"))
			b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", safeID(s.ID), truncate(s.InterventionIf, 30), escID))
			b.WriteString(fmt.Sprintf("    style %s %s\n", escID, outcomeStyle("escalated")))
		}

		if i < len(p.Steps)-1 {
			label := "continue"
			if s.RunIf != "" {
				label = "guard true"
			}
			b.WriteString(fmt.Sprintf("    %s -->|%q| %s\n", safeID(s.ID), label, safeID(p.Steps[i+1].ID)))
		} else {
			doneID := safeID(s.ID + "_done")
			b.WriteString(fmt.Sprintf("    %s([\"Finish\"])\n", doneID))
			b.WriteString(fmt.Sprintf("    %s --> %s\n", safeID(s.ID), doneID))
			b.WriteString(fmt.Sprintf("    style %s %s\n", doneID, outcomeStyle("resolved")))
		}
	}

	return b.String()
}

func outcomeStyle(state string) string {
	switch state {
	case "resolved":
		return "fill:#0d6,stroke:#0a5,color:#fff"
	case "escalated":
		return "fill:#e60,stroke:#c40,color:#fff"
	default:
		return ""
	}
}

func nodeDefinition(s plan.Step) string {
	id := safeID(s.ID)
	title := s.Description
	if title == "" {
		title = s.ID
	}
	label := fmt.Sprintf("%s %s", s.Tool, title)
	return fmt.Sprintf(`%s["%s"]`, id, escMermaid(label))
}

// --- ASCII ---

func generateASCII(p *plan.Plan) string {
	var b strings.Builder

	name := p.Name
	if name == "" {
		name = p.ID
	}
	if name == "" {
		name = "Plan"
	}

	if len(p.Steps) == 0 {
		b.WriteString(name + " (empty)\n")
		return b.String()
	}

	const indent = 8
	boxWidth := computeUniformBoxWidth(p.Steps, name)
	connCol := indent + 1 + boxWidth/2
	pad := strings.Repeat(" ", indent)
	connPad := strings.Repeat(" ", connCol)

	headerText := centerPad(name, boxWidth)
	mid := boxWidth / 2
	b.WriteString(pad + "╔" + strings.Repeat("═", boxWidth) + "╗\n")
	b.WriteString(pad + "║" + headerText + "║\n")
	b.WriteString(pad + "╚" + strings.Repeat("═", mid) + "╤" + strings.Repeat("═", boxWidth-mid-1) + "╝\n")
	b.WriteString(connPad + "│\n")

	for i, s := range p.Steps {
		writeASCIIStep(&b, s, indent, boxWidth)

		if s.RunIf != "" {
			b.WriteString(connPad + fmt.Sprintf("│ (skip unless %s)\n", truncate(s.RunIf, 40)))
		}
		if s.InterventionIf != "" {
			b.WriteString(connPad + fmt.Sprintf("│ (escalate if %s)\n", truncate(s.InterventionIf, 40)))
		}

		if i < len(p.Steps)-1 {
			b.WriteString(connPad + "│\n")
		}
	}

	b.WriteString(strings.Repeat(" ", connCol-2) + "✅ Finish\n")
	return b.String()
}

func computeUniformBoxWidth(steps []plan.Step, name string) int {
	minWidth := 22
	w := minWidth
	if nw := runewidth.StringWidth(name) + 4; nw > w {
		w = nw
	}
	for _, s := range steps {
		if sw := stepContentWidth(s); sw > w {
			w = sw
		}
	}
	return w
}

func stepContentWidth(s plan.Step) int {
	label := s.Description
	if label == "" {
		label = s.ID
	}
	content := fmt.Sprintf(" ⚙ %s: %s ", s.Tool, label)
	return runewidth.StringWidth(content)
}

func centerPad(s string, width int) string {
	sw := runewidth.StringWidth(s)
	if sw >= width {
		return s
	}
	total := width - sw
	left := total / 2
	right := total - left
	return strings.Repeat(" ", left) + s + strings.Repeat(" ", right)
}

func writeASCIIStep(b *strings.Builder, s plan.Step, indent, boxWidth int) {
	label := s.Description
	if label == "" {
		label = s.ID
	}
	content := fmt.Sprintf(" ⚙ %s: %s ", s.Tool, label)
	contentWidth := runewidth.StringWidth(content)

	pad := strings.Repeat(" ", indent)
	topBot := strings.Repeat("─", boxWidth)
	mid := boxWidth / 2

	b.WriteString(pad + "┌" + topBot + "┐\n")
	b.WriteString(pad + "│" + content + strings.Repeat(" ", boxWidth-contentWidth) + "│\n")
	b.WriteString(pad + "└" + strings.Repeat("─", mid) + "┬" + strings.Repeat("─", boxWidth-mid-1) + "┘\n")
}

// --- string helpers ---

func safeID(id string) string {
	r := strings.NewReplacer("-", "_", " ", "_", ".", "_")
	return r.Replace(id)
}

func escMermaid(s string) string {
	s = strings.ReplaceAll(s, `"`, "#quot;")
	s = strings.ReplaceAll(s, `'`, "#apos;")
	return s
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
