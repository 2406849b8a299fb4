package cmd

import (
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/fatih/color"

	"github.com/san-kum/flightlab/internal/automation"
	"github.com/san-kum/flightlab/internal/sim"
)

var (
	colorGate     = color.New(color.FgCyan)
	colorBackward = color.New(color.FgYellow)
	colorFinished = color.New(color.FgGreen, color.Bold)
	colorFailed   = color.New(color.FgRed)
	colorRejected = color.New(color.FgRed, color.Bold)
	colorDim      = color.New(color.FgHiBlack)
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle   = lipgloss.NewStyle().Padding(0, 1)
	borderStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("242"))
)

// reporter prints episode events as they happen.
type reporter struct {
	w       io.Writer
	verbose bool
}

func (r *reporter) OnEvent(e sim.Event) {
	c := colorGate
	switch e.Kind {
	case sim.EventGate:
		if !r.verbose {
			return
		}
	case sim.EventBackward:
		c = colorBackward
	case sim.EventFinished:
		c = colorFinished
	case sim.EventFailed:
		c = colorFailed
	case sim.EventRejected:
		c = colorRejected
	}
	fmt.Fprintf(r.w, "%s %s %s\n",
		colorDim.Sprintf("[t=%6.2f]", e.Time),
		e.Agent,
		c.Sprintf("%s %s", e.Kind, e.Detail))
}

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle
			}
			return cellStyle
		})
}

func formatTime(t float64) string {
	if t < 0 {
		return "-"
	}
	return strconv.FormatFloat(t, 'f', 2, 64) + "s"
}

func standingsTable(res *sim.Result) string {
	t := newTable("#", "AGENT", "STATUS", "GATE", "TIME", "FAILURE", "PATH", "EFFORT", "RUN MS")
	for i, a := range res.Standings() {
		failure := ""
		if a.Status == sim.Failed {
			failure = a.Failure.String()
		}
		t.Row(
			strconv.Itoa(i+1),
			a.Name,
			a.Status.String(),
			fmt.Sprintf("%d/%d", a.Gate, res.Gates),
			formatTime(a.FinishTime),
			failure,
			fmt.Sprintf("%.1f", a.Metrics["path_length"]),
			fmt.Sprintf("%.3f", a.Metrics["control_effort"]),
			fmt.Sprintf("%.3f", a.Metrics["run_time_ms"]),
		)
	}
	for _, a := range res.Rejections {
		t.Row("-", a.Name, "rejected", "-", "-", a.Failure.String(), "-", "-", "-")
	}
	return t.String()
}

func leaderboardTable(board []automation.Standing) string {
	t := newTable("#", "PILOT", "EPISODES", "FINISHES", "BEST", "MEAN", "GATES", "FAILURES")
	for i, s := range board {
		kinds := make([]string, 0, len(s.Failures))
		for kind, n := range s.Failures {
			kinds = append(kinds, fmt.Sprintf("%s=%d", kind, n))
		}
		sort.Strings(kinds)
		t.Row(
			strconv.Itoa(i+1),
			s.Name,
			strconv.Itoa(s.Episodes),
			strconv.Itoa(s.Finishes),
			formatTime(s.BestTime),
			formatTime(s.MeanTime),
			strconv.Itoa(s.Gates),
			strings.Join(kinds, " "),
		)
	}
	return t.String()
}
