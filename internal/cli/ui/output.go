// Package ui renders tabflow command output for terminals.
package ui

import (
	"fmt"
	"io"
	"math"
	"sort"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"

	"github.com/vnykmshr/tabflow/pkg/pipeline"
	"github.com/vnykmshr/tabflow/pkg/quality"
	"github.com/vnykmshr/tabflow/pkg/runlog"
)

var (
	successColor = color.New(color.FgGreen, color.Bold)
	errorColor   = color.New(color.FgRed, color.Bold)
	warningColor = color.New(color.FgYellow, color.Bold)
	infoColor    = color.New(color.FgCyan)
	boldColor    = color.New(color.Bold)
)

// Printer writes styled messages to w. Colors follow fatih/color's
// terminal detection and the NO_COLOR convention.
type Printer struct {
	w io.Writer
}

// New creates a printer writing to w.
func New(w io.Writer) *Printer {
	return &Printer{w: w}
}

// Success prints a success message.
func (p *Printer) Success(format string, args ...interface{}) {
	successColor.Fprintf(p.w, "✓ %s\n", fmt.Sprintf(format, args...))
}

// Error prints an error message.
func (p *Printer) Error(format string, args ...interface{}) {
	errorColor.Fprintf(p.w, "✗ %s\n", fmt.Sprintf(format, args...))
}

// Warning prints a warning message.
func (p *Printer) Warning(format string, args ...interface{}) {
	warningColor.Fprintf(p.w, "⚠ %s\n", fmt.Sprintf(format, args...))
}

// Info prints an informational message.
func (p *Printer) Info(format string, args ...interface{}) {
	infoColor.Fprintf(p.w, "ℹ %s\n", fmt.Sprintf(format, args...))
}

// Bold prints a bold line.
func (p *Printer) Bold(format string, args ...interface{}) {
	boldColor.Fprintln(p.w, fmt.Sprintf(format, args...))
}

// StageLog prints one row per stage result followed by its warnings.
func (p *Printer) StageLog(log []pipeline.StageResult) {
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tSTAGE\tROWS\tCOLUMNS\tDURATION\tMEMORY\tSTATUS")
	for _, r := range log {
		status := successColor.Sprint("ok")
		switch {
		case r.Error != "":
			status = errorColor.Sprint("failed")
		case len(r.Warnings) > 0:
			status = warningColor.Sprintf("%d warning(s)", len(r.Warnings))
		}
		fmt.Fprintf(tw, "%d\t%s\t%d → %d\t%d → %d\t%s\t%s\t%s\n",
			r.Position, r.StageName,
			r.RowsBefore, r.RowsAfter,
			r.ColumnsBefore, r.ColumnsAfter,
			r.Duration.Round(time.Microsecond),
			Bytes(r.MemoryDelta),
			status)
	}
	_ = tw.Flush()

	for _, r := range log {
		for _, w := range r.Warnings {
			p.Warning("%s: %s", r.StageName, w)
		}
	}
}

// Summary prints the outcome of one recorded run.
func (p *Printer) Summary(s runlog.Summary) {
	if s.Status == runlog.StatusSuccess {
		p.Success("%s completed in %s: %d rows, %d columns (run %s)",
			s.Pipeline, s.Duration.Round(time.Millisecond), s.Rows, s.Columns, s.ID)
	} else {
		p.Error("%s failed: %s (run %s)", s.Pipeline, s.Error, s.ID)
	}
	if len(s.Stages) > 0 {
		p.StageLog(s.Stages)
	}
}

// History prints a compact list of recorded runs, newest first.
func (p *Printer) History(summaries []runlog.Summary) {
	if len(summaries) == 0 {
		p.Info("no runs recorded")
		return
	}
	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "STARTED\tPIPELINE\tSTATUS\tROWS\tDURATION\tFAILED STAGE\tRUN")
	for _, s := range summaries {
		status := successColor.Sprint(s.Status)
		if s.Status != runlog.StatusSuccess {
			status = errorColor.Sprint(s.Status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\t%s\n",
			s.StartedAt.Format(time.DateTime), s.Pipeline, status, s.Rows,
			s.Duration.Round(time.Millisecond), dash(s.FailedStage), s.ID)
	}
	_ = tw.Flush()
}

// Report prints a quality report. Columns under lowThreshold are
// highlighted.
func (p *Printer) Report(r quality.Report, lowThreshold float64) {
	p.Bold("%d rows × %d columns, %s", r.RowCount, r.ColumnCount, Bytes(r.MemoryBytes))
	fmt.Fprintf(p.w, "mean completeness: %s\n", Percent(r.MeanCompleteness))
	if r.DuplicateRows > 0 {
		p.Warning("%d duplicate row(s)", r.DuplicateRows)
	} else {
		p.Success("no duplicate rows")
	}

	tw := tabwriter.NewWriter(p.w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "COLUMN\tTYPE\tNULLS\tCOMPLETE\tDISTINCT")
	for _, c := range r.Columns {
		complete := Percent(c.Completeness)
		if c.Completeness < lowThreshold {
			complete = warningColor.Sprint(complete)
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%d\n", c.Name, c.Type, c.Nulls, complete, c.Distinct)
	}
	_ = tw.Flush()

	var types []string
	for typ, n := range r.TypeDistribution {
		types = append(types, fmt.Sprintf("%s=%d", typ, n))
	}
	if len(types) > 0 {
		sort.Strings(types)
		fmt.Fprintf(p.w, "types: %s\n", strings.Join(types, " "))
	}
}

// Percent formats a completeness value; NaN means the table had no rows.
func Percent(v float64) string {
	if math.IsNaN(v) {
		return "n/a"
	}
	return fmt.Sprintf("%.1f%%", v)
}

// Bytes formats a signed byte count with a binary unit.
func Bytes(n int64) string {
	sign := ""
	if n < 0 {
		sign, n = "-", -n
	}
	const unit = 1024
	if n < unit {
		return fmt.Sprintf("%s%d B", sign, n)
	}
	div, exp := int64(unit), 0
	for m := n / unit; m >= unit; m /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%s%.1f %ciB", sign, float64(n)/float64(div), "KMGTPE"[exp])
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
