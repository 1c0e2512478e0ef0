package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/go-scripts/jobfill/pkg/common"
)

// RunStats holds the numbers shown after a run
type RunStats struct {
	Company  string
	Position string
	Found    int
	Filled   int
	Skipped  int
	Empty    int
	Failed   int
	Elapsed  time.Duration
}

// StatsFromSummary counts outcomes in s
func StatsFromSummary(s common.Summary, elapsed time.Duration) RunStats {
	stats := RunStats{
		Company:  s.Job.CompanyName,
		Position: s.Job.JobTitle,
		Found:    s.FieldsFound,
		Filled:   s.FieldsFilled,
		Elapsed:  elapsed,
	}
	for _, r := range s.Fields {
		switch r.Outcome {
		case common.OutcomeSkipped:
			stats.Skipped++
		case common.OutcomeEmpty, common.OutcomeNoOption:
			stats.Empty++
		case common.OutcomeFailed:
			stats.Failed++
		}
	}
	return stats
}

// StatsPanel displays run statistics
type StatsPanel struct {
	stats      RunStats
	style      lipgloss.Style
	labelStyle lipgloss.Style
	valueStyle lipgloss.Style
}

func NewStatsPanel(stats RunStats) *StatsPanel {
	return &StatsPanel{
		stats: stats,
		style: borderStyle.
			BorderForeground(lipgloss.Color("99")),
		labelStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("241")).
			Bold(true),
		valueStyle: lipgloss.NewStyle().
			Foreground(lipgloss.Color("86")),
	}
}

func (s *StatsPanel) View() string {
	rate := 0.0
	if s.stats.Found > 0 {
		rate = float64(s.stats.Filled) / float64(s.stats.Found) * 100
	}

	stats := []struct {
		label string
		value string
	}{
		{"Company", orUnknown(s.stats.Company)},
		{"Position", orUnknown(s.stats.Position)},
		{"Fields Found", fmt.Sprintf("%d", s.stats.Found)},
		{"Fields Filled", fmt.Sprintf("%.1f%% (%d/%d)", rate, s.stats.Filled, s.stats.Found)},
		{"Skipped", fmt.Sprintf("%d", s.stats.Skipped)},
		{"Left Empty", fmt.Sprintf("%d", s.stats.Empty)},
		{"Failed", fmt.Sprintf("%d", s.stats.Failed)},
		{"Elapsed Time", formatElapsed(s.stats.Elapsed)},
	}

	var content strings.Builder
	content.WriteString(titleStyle.Render("Fill Summary") + "\n\n")
	for _, stat := range stats {
		content.WriteString(fmt.Sprintf("%-16s %s\n",
			s.labelStyle.Render(stat.label+":"),
			s.valueStyle.Render(stat.value),
		))
	}

	return s.style.Render(strings.TrimRight(content.String(), "\n"))
}

// Summary renders the stats panel above the per-field table
func Summary(s common.Summary, elapsed time.Duration, width int) string {
	return lipgloss.JoinVertical(lipgloss.Left,
		NewStatsPanel(StatsFromSummary(s, elapsed)).View(),
		NewResultsTable(s.Fields, width).View(),
	)
}

func formatElapsed(d time.Duration) string {
	return fmt.Sprintf("%02d:%02d:%02d",
		int(d.Hours()),
		int(d.Minutes())%60,
		int(d.Seconds())%60,
	)
}

func orUnknown(s string) string {
	if s == "" {
		return "Unknown"
	}
	return s
}
