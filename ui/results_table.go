package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/jobfill/pkg/common"
)

// ResultsTable renders one row per processed control
type ResultsTable struct {
	results     []common.FieldResult
	width       int
	headerStyle lipgloss.Style
	cellStyle   lipgloss.Style
	style       lipgloss.Style
}

// NewResultsTable creates a table for results, sized to width columns
func NewResultsTable(results []common.FieldResult, width int) *ResultsTable {
	if width <= 0 {
		width = 100
	}
	return &ResultsTable{
		results: results,
		width:   width,
		headerStyle: lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("205")),
		cellStyle: lipgloss.NewStyle().
			PaddingLeft(1).
			PaddingRight(1),
		style: lipgloss.NewStyle().
			BorderStyle(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("35")),
	}
}

// View renders the table
func (t *ResultsTable) View() string {
	if len(t.results) == 0 {
		return t.style.Render(infoStyle.Render("No fields processed"))
	}

	// Calculate column widths
	purposeWidth := 14
	outcomeWidth := 10
	valueWidth := max(10, min(40, t.width-purposeWidth-outcomeWidth-20))

	header := t.headerStyle.Render(fmt.Sprintf(
		"%5s %-6s %-*s %-*s %-*s",
		"#",
		"Tag",
		purposeWidth, "Purpose",
		outcomeWidth, "Outcome",
		valueWidth, "Value",
	))

	var rows []string
	for _, r := range t.results {
		detail := r.Value
		if r.Reason != "" {
			detail = r.Reason
		}

		row := t.cellStyle.Render(fmt.Sprintf(
			"%5d %-6s %-*s %-*s %-*s",
			r.Index+1,
			truncate(r.Tag, 6),
			purposeWidth, truncate(string(r.Purpose), purposeWidth),
			outcomeWidth, string(r.Outcome),
			valueWidth, truncate(oneLine(detail), valueWidth),
		))

		switch r.Outcome {
		case common.OutcomeFilled, common.OutcomeSelected:
			row = successStyle.Render(row)
		case common.OutcomeFailed:
			row = errorStyle.Render(row)
		case common.OutcomeNoOption, common.OutcomeEmpty:
			row = warningStyle.Render(row)
		}
		rows = append(rows, row)
	}

	content := header + "\n" + strings.Join(rows, "\n")
	return t.style.Render(content)
}

func truncate(s string, w int) string {
	r := []rune(s)
	if w <= 3 || len(r) <= w {
		return s
	}
	return string(r[:w-3]) + "..."
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
