package doctor

import (
	"fmt"
	"io"
	"strings"

	"github.com/fatih/color"

	"github.com/kjourdan1/azcli-mcp/internal/output"
)

// StatusIcon returns the emoji/icon for a check status.
func StatusIcon(s Status) string {
	if output.NoColor() {
		switch s {
		case StatusPass:
			return "[PASS]"
		case StatusFail:
			return "[FAIL]"
		case StatusWarn:
			return "[WARN]"
		case StatusSkip:
			return "[SKIP]"
		default:
			return "[????]"
		}
	}
	switch s {
	case StatusPass:
		return "✅"
	case StatusFail:
		return "❌"
	case StatusWarn:
		return "⚠️"
	case StatusSkip:
		return "⏭️"
	default:
		return "❓"
	}
}

var statusColors = map[Status]*color.Color{
	StatusPass: color.New(color.FgGreen),
	StatusFail: color.New(color.FgRed, color.Bold),
	StatusWarn: color.New(color.FgYellow),
	StatusSkip: color.New(color.Faint),
}

var categoryLabels = map[string]string{
	"tool":   "Required Tools",
	"config": "Configuration",
	"auth":   "Azure CLI Session",
	"azure":  "Service Principal",
}

// PrintResults writes the report to w. In JSON mode it writes the summary
// envelope instead. The caller checks summary.HasFailure for the exit code.
func PrintResults(w io.Writer, summary Summary) {
	if output.JSONMode {
		if summary.HasFailure {
			output.JSONErrorData("doctor found critical issues", summary)
		} else {
			output.JSON(summary)
		}
		return
	}

	lastCategory := ""
	for _, r := range summary.Results {
		if r.Category != lastCategory {
			printCategoryHeader(w, r.Category)
			lastCategory = r.Category
		}
		printCheckResult(w, r)
	}

	fmt.Fprintln(w)
	printSummaryLine(summary)
}

func printCategoryHeader(w io.Writer, cat string) {
	label, ok := categoryLabels[cat]
	if !ok {
		label = cat
	}
	fmt.Fprintln(w)
	if output.NoColor() {
		fmt.Fprintf(w, "--- %s ---\n", label)
	} else {
		fmt.Fprintln(w, output.Render(output.StyleTitle, "━━ "+label+" ━━"))
	}
}

func printCheckResult(w io.Writer, r CheckResult) {
	msg := r.Message
	if c, ok := statusColors[r.Status]; ok && !output.NoColor() {
		msg = c.Sprint(msg)
	}
	fmt.Fprintf(w, "  %s  %s\n", StatusIcon(r.Status), msg)
	if r.Fix != "" && r.Status != StatusPass {
		if output.NoColor() {
			fmt.Fprintf(w, "       Fix: %s\n", r.Fix)
		} else {
			fmt.Fprintf(w, "       💡 %s\n", r.Fix)
		}
	}
}

func printSummaryLine(s Summary) {
	parts := []string{}
	if s.TotalPass > 0 {
		parts = append(parts, fmt.Sprintf("%d passed", s.TotalPass))
	}
	if s.TotalWarn > 0 {
		parts = append(parts, fmt.Sprintf("%d warnings", s.TotalWarn))
	}
	if s.TotalFail > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.TotalFail))
	}
	if s.TotalSkip > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.TotalSkip))
	}

	line := strings.Join(parts, ", ")

	switch {
	case s.HasFailure:
		output.Fail(fmt.Sprintf("Doctor found issues: %s", line))
	case s.TotalWarn > 0 || s.TotalFail > 0:
		output.Warn(fmt.Sprintf("Doctor completed with warnings: %s", line))
	default:
		output.Success(fmt.Sprintf("All checks passed (%s)", line))
	}
}
