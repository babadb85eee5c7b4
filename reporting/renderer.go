package reporting

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/sarchlab/pathtrace/tracing"
)

// Renderer turns traces into text reports.
type Renderer struct {
	color bool

	header   lipgloss.Style
	section  lipgloss.Style
	critical lipgloss.Style
	major    lipgloss.Style
	minor    lipgloss.Style
	ok       lipgloss.Style
	failed   lipgloss.Style
	dim      lipgloss.Style
}

// NewRenderer creates a Renderer. Without color, the report is plain text.
func NewRenderer(color bool) *Renderer {
	return &Renderer{
		color:    color,
		header:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("12")),
		section:  lipgloss.NewStyle().Bold(true).Underline(true),
		critical: lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		major:    lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		minor:    lipgloss.NewStyle().Foreground(lipgloss.Color("11")),
		ok:       lipgloss.NewStyle().Foreground(lipgloss.Color("10")),
		failed:   lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("9")),
		dim:      lipgloss.NewStyle().Faint(true),
	}
}

func (r *Renderer) paint(style lipgloss.Style, s string) string {
	if !r.color {
		return s
	}

	return style.Render(s)
}

// SeverityIcon returns the icon shown next to bottlenecks of a severity.
func SeverityIcon(s tracing.Severity) string {
	switch s {
	case tracing.SeverityCritical:
		return "🔴"
	case tracing.SeverityMajor:
		return "🟠"
	default:
		return "🟡"
	}
}

func (r *Renderer) severityStyle(s tracing.Severity) lipgloss.Style {
	switch s {
	case tracing.SeverityCritical:
		return r.critical
	case tracing.SeverityMajor:
		return r.major
	default:
		return r.minor
	}
}

// Render returns the report of a trace.
func (r *Renderer) Render(t tracing.Trace) string {
	var b strings.Builder

	r.renderHeader(&b, t)
	r.renderBottlenecks(&b, t)
	r.renderRecommendations(&b, t)
	r.renderSteps(&b, t)

	return b.String()
}

func (r *Renderer) renderHeader(b *strings.Builder, t tracing.Trace) {
	b.WriteString(r.paint(r.header, "=== Trace: "+t.Name+" ==="))
	b.WriteString("\n")
	fmt.Fprintf(b, "Total duration: %s | Steps: %d | Bottlenecks: %d\n",
		FormatDuration(t.TotalDuration), len(t.Steps), len(t.Bottlenecks))
}

func (r *Renderer) renderBottlenecks(b *strings.Builder, t tracing.Trace) {
	b.WriteString("\n")
	b.WriteString(r.paint(r.section, "Bottlenecks"))
	b.WriteString("\n")

	if len(t.Bottlenecks) == 0 {
		b.WriteString("  none\n")
		return
	}

	for _, bn := range t.Bottlenecks {
		line := fmt.Sprintf("%s [%s] %s: %s (%.1f%%)",
			SeverityIcon(bn.Severity), bn.Severity, bn.StepName,
			FormatDuration(bn.Duration), bn.Percentage)
		if bn.HasError {
			line += " failed"
		}

		b.WriteString("  ")
		b.WriteString(r.paint(r.severityStyle(bn.Severity), line))
		b.WriteString("\n")
	}
}

func (r *Renderer) renderRecommendations(b *strings.Builder, t tracing.Trace) {
	b.WriteString("\n")
	b.WriteString(r.paint(r.section, "Recommendations"))
	b.WriteString("\n")

	if len(t.Recommendations) == 0 {
		b.WriteString("  none\n")
		return
	}

	for i, rec := range t.Recommendations {
		fmt.Fprintf(b, "  %d. %s\n", i+1, rec)
	}
}

func (r *Renderer) renderSteps(b *strings.Builder, t tracing.Trace) {
	b.WriteString("\n")
	b.WriteString(r.paint(r.section, "Steps"))
	b.WriteString("\n")

	width := 0
	for _, s := range t.Steps {
		width = max(width, len(stepLabel(s)))
	}

	for _, s := range t.Steps {
		status := r.paint(r.ok, "✓")
		if s.Failed() {
			status = r.paint(r.failed, "✗")
		}

		fmt.Fprintf(b, "  %s %-*s %12s  mem %s",
			status, width, stepLabel(s),
			FormatDuration(s.Duration), FormatBytes(s.MemoryDelta))

		if s.Failed() {
			b.WriteString("  ")
			b.WriteString(r.paint(r.failed, "failed: "+s.Err.Error()))
		}

		b.WriteString("\n")

		for _, err := range s.SubErrors {
			b.WriteString(r.paint(r.dim, "      ↳ "+err.Error()))
			b.WriteString("\n")
		}
	}
}

func stepLabel(s tracing.StepResult) string {
	if s.IsParallel {
		return fmt.Sprintf("%s [parallel x%d]", s.Name, s.ParallelCount)
	}

	return s.Name
}

// FormatDuration prints a duration in milliseconds with microsecond
// precision.
func FormatDuration(d time.Duration) string {
	return fmt.Sprintf("%.3fms", float64(d.Microseconds())/1000)
}

// FormatBytes prints a signed byte count with a binary unit.
func FormatBytes(n int64) string {
	sign := "+"
	if n < 0 {
		sign = "-"
		n = -n
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
