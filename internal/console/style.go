package console

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/charmbracelet/lipgloss"

	"lasdesk/internal/client"
	"lasdesk/internal/events"
	"lasdesk/internal/processing"
	"lasdesk/internal/views"
)

var (
	successStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981")).Bold(true)
	errorStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444")).Bold(true)
	mutedStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Underline(true)
	barFill      = lipgloss.NewStyle().Foreground(lipgloss.Color("#3B82F6"))
	panelStyle   = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("#6B7280")).
			Padding(0, 1)
)

const barWidth = 24

// Toaster prints notifications as single styled lines.
type Toaster struct {
	mu  sync.Mutex
	out io.Writer
}

// NewToaster constructs a Toaster writing to out.
func NewToaster(out io.Writer) *Toaster {
	return &Toaster{out: out}
}

func (t *Toaster) Success(msg string) {
	t.write(successStyle.Render("✓") + " " + msg)
}

func (t *Toaster) Error(msg string) {
	t.write(errorStyle.Render("✗") + " " + msg)
}

func (t *Toaster) write(line string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, line)
}

// ProgressBar renders progress (0-100) as a fixed-width bar with a percent.
func ProgressBar(progress int) string {
	progress = max(0, min(100, progress))
	filled := progress * barWidth / 100
	bar := barFill.Render(strings.Repeat("█", filled)) + mutedStyle.Render(strings.Repeat("░", barWidth-filled))
	return fmt.Sprintf("%s %3d%%", bar, progress)
}

// EntryLine renders one log entry.
func EntryLine(e processing.LogEntry) string {
	msg := e.Message
	if p, ok := e.InsertPercent(); ok {
		msg = fmt.Sprintf("%s (%d%%)", msg, p)
	}
	switch {
	case e.Step == events.StepError:
		return errorStyle.Render(msg)
	case e.Step == events.StepDone:
		return successStyle.Render(msg)
	case e.Step == "":
		return msg
	default:
		return mutedStyle.Render(string(e.Step)+":") + " " + msg
	}
}

// LogPanel renders entries in a bordered box.
func LogPanel(entries []processing.LogEntry) string {
	if len(entries) == 0 {
		return panelStyle.Render(mutedStyle.Render("no log output"))
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, EntryLine(e))
	}
	return panelStyle.Render(strings.Join(lines, "\n"))
}

// RenderRows renders the list view as a table.
func RenderRows(rows []views.Row) string {
	if len(rows) == 0 {
		return mutedStyle.Render("no files")
	}
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(fmt.Sprintf("%-6s %-32s %-16s %-9s %-3s %s", "ID", "FILE", "WELL", "STATUS", "IMP", "STATE")))
	for _, r := range rows {
		imp := ""
		if r.File.IsImportant {
			imp = "★"
		}
		fmt.Fprintf(&b, "%-6d %-32s %-16s %-9s %-3s %s\n",
			r.File.ID, truncate(r.File.FileName, 32), truncate(r.File.WellName, 16), r.File.Status, imp, rowState(r))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderDetail renders the detail view model.
func RenderDetail(m views.DetailModel) string {
	switch m.State {
	case views.DetailLoading:
		if m.Err != nil {
			return errorStyle.Render("Could not load file: " + client.Detail(m.Err))
		}
		return mutedStyle.Render("Loading…")
	case views.DetailNotFound:
		return errorStyle.Render("File not found")
	}
	f := m.File
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", headerStyle.Render(f.FileName))
	fmt.Fprintf(&b, "ID:        %d\n", f.ID)
	fmt.Fprintf(&b, "Well:      %s\n", f.WellName)
	fmt.Fprintf(&b, "Status:    %s\n", f.Status)
	fmt.Fprintf(&b, "Important: %t\n", f.IsImportant)
	fmt.Fprintf(&b, "Uploaded:  %s\n", f.UploadedAt.Format("2006-01-02 15:04"))
	fmt.Fprintf(&b, "Processed: %t", f.Processed)
	if m.Active {
		fmt.Fprintf(&b, "\n\n%s\n%s", ProgressBar(m.Progress), LogPanel(m.Logs))
	}
	return b.String()
}

func rowState(r views.Row) string {
	switch {
	case r.Active:
		return ProgressBar(r.Progress)
	case r.File.Processed:
		return successStyle.Render("processed")
	default:
		return mutedStyle.Render("unprocessed")
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}

// RenderInterpretation prints the summary, one line per curve and the
// flagged samples.
func RenderInterpretation(in client.Interpretation) string {
	var b strings.Builder
	b.WriteString(in.Summary)
	b.WriteByte('\n')
	if len(in.Insights) > 0 {
		b.WriteString(headerStyle.Render(fmt.Sprintf("%-8s %10s %10s %10s %10s %6s", "CURVE", "MIN", "MAX", "MEAN", "STD", "N")))
		b.WriteByte('\n')
		for _, ins := range in.Insights {
			st := ins.Statistics
			fmt.Fprintf(&b, "%-8s %10.4g %10.4g %10.4g %10.4g %6d  %s\n",
				truncate(ins.Curve, 8), st.Min, st.Max, st.Mean, st.Std, st.Count, mutedStyle.Render(ins.Interpretation))
		}
	}
	if len(in.Anomalies) == 0 {
		b.WriteString(mutedStyle.Render("no anomalies"))
		return b.String()
	}
	fmt.Fprintf(&b, "Anomalies: %d\n", len(in.Anomalies))
	for _, a := range in.Anomalies {
		style := errorStyle
		if a.Deviation == "low" {
			style = barFill
		}
		fmt.Fprintf(&b, "  %10g  %-8s %10.4g  %s\n", a.Depth, truncate(a.CurveName, 8), a.Value, style.Render(a.Deviation))
	}
	return strings.TrimRight(b.String(), "\n")
}

// RenderSeries prints depth-aligned values as a table, "-" for gaps.
func RenderSeries(s client.Series, names []string) string {
	var b strings.Builder
	b.WriteString(headerStyle.Render(fmt.Sprintf("%10s", "DEPTH")))
	for _, n := range names {
		b.WriteString(headerStyle.Render(fmt.Sprintf(" %10s", truncate(n, 10))))
	}
	for i, d := range s.Depth {
		fmt.Fprintf(&b, "\n%10g", d)
		for _, n := range names {
			col := s.Curves[n]
			if i >= len(col) || col[i] == nil {
				fmt.Fprintf(&b, " %10s", "-")
				continue
			}
			fmt.Fprintf(&b, " %10.4g", *col[i])
		}
	}
	return b.String()
}
