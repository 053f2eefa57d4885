// Package reporter renders a benchmark's user-visible CLI output: the
// aggregated summary lines and the final leaderboard named in §7
// ("the CLI surfaces only aggregated summary lines and a leaderboard;
// detailed traces go to the log directory"). It never touches a file -
// internal/recorder owns persisted output, this package only formats
// what's already in an orchestrator.Summary for a terminal.
package reporter

import (
	"fmt"
	"io"
	"sort"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/pokerbench/pokerbench/internal/orchestrator"
)

// Styles mirrors the palette internal/display/tui.go defines for its own
// panes, reused here for a CLI-appropriate set: a header, a highlighted
// leader row, and a muted row for everyone else.
type Styles struct {
	Header lipgloss.Style
	Leader lipgloss.Style
	Row    lipgloss.Style
	Warn   lipgloss.Style
}

// DefaultStyles matches the color choices in internal/display/tui.go's
// NewTUIStyles (the same purple header, green "good" accent, red "bad"
// accent) rather than inventing a new palette.
func DefaultStyles() Styles {
	return Styles{
		Header: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")).
			Background(lipgloss.Color("#7D56F4")).
			Bold(true).
			Padding(0, 1),
		Leader: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#96CEB4")).
			Bold(true),
		Row: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FAFAFA")),
		Warn: lipgloss.NewStyle().
			Foreground(lipgloss.Color("#FF6B6B")),
	}
}

// leaderboardRow is one agent's ranked entry, sorted by mean placement
// ascending (lower is better - placement 1 is a tournament win).
type leaderboardRow struct {
	name          string
	runsPlayed    int
	wins          int
	meanPlacement float64
	forcedRate    float64
}

func buildRows(stats map[string]orchestrator.AgentStats) []leaderboardRow {
	rows := make([]leaderboardRow, 0, len(stats))
	for _, s := range stats {
		row := leaderboardRow{name: s.Name, runsPlayed: s.RunsPlayed, wins: s.Wins}
		if s.RunsPlayed > 0 {
			row.meanPlacement = float64(s.PlacementTotal) / float64(s.RunsPlayed)
		}
		if s.Decisions > 0 {
			row.forcedRate = float64(s.ForcedDecisions) / float64(s.Decisions) * 100
		}
		rows = append(rows, row)
	}
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].meanPlacement != rows[j].meanPlacement {
			return rows[i].meanPlacement < rows[j].meanPlacement
		}
		return rows[i].name < rows[j].name
	})
	return rows
}

// RenderLeaderboard renders the benchmark's final standings as a
// lipgloss table, one row per agent ordered by mean placement.
func RenderLeaderboard(summary orchestrator.Summary, styles Styles) string {
	rows := buildRows(summary.AgentStats)

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("#626262"))).
		Headers("Rank", "Agent", "Runs", "Wins", "Mean Placement", "Forced %").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return styles.Header
			}
			if row == 0 {
				return styles.Leader
			}
			return styles.Row
		})

	for i, r := range rows {
		t.Row(
			fmt.Sprintf("%d", i+1),
			r.name,
			fmt.Sprintf("%d", r.runsPlayed),
			fmt.Sprintf("%d", r.wins),
			fmt.Sprintf("%.2f", r.meanPlacement),
			fmt.Sprintf("%.1f%%", r.forcedRate),
		)
	}

	return t.Render()
}

// WriteSummaryLines writes the short, non-table summary lines §7 calls
// out separately from the leaderboard: total runs, failures, and total
// hands played across the whole benchmark.
func WriteSummaryLines(w io.Writer, summary orchestrator.Summary, styles Styles) {
	totalHands := 0
	for _, r := range summary.Runs {
		totalHands += r.TotalHands
	}

	fmt.Fprintf(w, "%s\n", styles.Header.Render(" pokerbench "))
	fmt.Fprintf(w, "runs completed: %d\n", len(summary.Runs))
	fmt.Fprintf(w, "total hands:    %d\n", totalHands)

	if len(summary.Failures) > 0 {
		fmt.Fprintln(w, styles.Warn.Render(fmt.Sprintf("runs failed:    %d", len(summary.Failures))))
		for _, f := range summary.Failures {
			fmt.Fprintln(w, styles.Warn.Render(fmt.Sprintf("  run %d (seed %d): %v", f.RunNumber, f.Seed, f.Err)))
		}
	}
	fmt.Fprintln(w)
}
