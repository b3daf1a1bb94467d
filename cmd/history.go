package cmd

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kjourdan1/azcli-mcp/internal/audit"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show the audit history of executed commands",
	Long: `Displays audit events written by azcli-mcp in JSONL format: az
commands run for agents, background login outcomes, and runs of the
azcli-mcp CLI itself.

By default, reads ~/.azcli-mcp/audit.log (audit.path) and prints the
latest events. Secrets are redacted before they are written.`,
	Args: cobra.NoArgs,
	RunE: runHistory,
}

var (
	historyOperation string
	historyFailed    bool
	historyLimit     int
)

func init() {
	historyCmd.Flags().StringVar(&historyOperation, "operation", "", "filter by operation (execute, login, bootstrap, cli:<command>)")
	historyCmd.Flags().BoolVar(&historyFailed, "failed", false, "only show failures")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 20, "max number of events to display")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	events, err := audit.New(settings.Audit.Path).Read()
	if err != nil {
		return output.WrapError(err, "cannot read audit log "+settings.Audit.Path)
	}

	filtered := make([]audit.Event, 0, len(events))
	for _, event := range events {
		if historyOperation != "" && event.Operation != historyOperation {
			continue
		}
		if historyFailed && event.Result == audit.ResultSuccess {
			continue
		}
		filtered = append(filtered, event)
	}

	start := 0
	if historyLimit > 0 && len(filtered) > historyLimit {
		start = len(filtered) - historyLimit
	}
	filtered = filtered[start:]

	if output.JSONMode {
		output.JSON(filtered)
		return nil
	}
	if len(events) == 0 {
		output.Info("No audit events found.", "path", settings.Audit.Path)
		return nil
	}
	if len(filtered) == 0 {
		output.Info("No matching audit events.")
		return nil
	}

	w := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	bold.Fprintln(w, "📜 azcli-mcp history")
	for _, event := range filtered {
		status := color.New(color.FgGreen)
		if event.Result != audit.ResultSuccess {
			status = color.New(color.FgRed)
		}
		status.Fprintf(w, "  %s", event.Result)
		fmt.Fprintf(w, "  %s  op=%s", event.Timestamp, event.Operation)
		if event.Command != "" {
			fmt.Fprintf(w, "  cmd=%q", event.Command)
		} else if len(event.Args) > 1 {
			fmt.Fprintf(w, "  args=%q", strings.Join(event.Args[1:], " "))
		}
		if v := event.MetadataValue("version"); v != "" {
			fmt.Fprintf(w, "  version=%s", v)
		}
		fmt.Fprintf(w, "  exit=%d  duration=%dms\n", event.ExitCode, event.DurationMs)
		if event.Error != "" && event.Result != audit.ResultSuccess {
			fmt.Fprintf(w, "      %s\n", output.Render(output.StyleMuted, firstLine(event.Error)))
		}
	}

	return nil
}

func firstLine(s string) string {
	if i := strings.IndexByte(s, '\n'); i >= 0 {
		return s[:i]
	}
	return s
}
