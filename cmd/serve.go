package cmd

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/kjourdan1/azcli-mcp/internal/mcp"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP server on stdin/stdout",
	Long: `Start the Model Context Protocol server. Requests are read from stdin
and responses written to stdout, one JSON-RPC message per line; logs go
to stderr.

Tools:
  execute-azure-cli-command   run an az command and return its output
  azure-login-status          report the current device-code login

When azure.cli.azure-credentials is configured, a service principal
login runs before the first request is served.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := buildService(ctx, settings)
	defer func() {
		if err := svc.Close(); err != nil {
			output.Warn("login process did not shut down cleanly", "err", err)
		}
	}()

	server := mcp.NewServer(svc,
		mcp.WithVersion(Version),
		mcp.WithLogger(output.Logger().WithPrefix("mcp")))

	output.Info("serving MCP on stdio", "version", Version)

	// Run blocks in a stdin read, so a signal is handled here rather than
	// waiting for the next request.
	done := make(chan error, 1)
	go func() {
		done <- server.Run(ctx, cmd.InOrStdin(), cmd.OutOrStdout())
	}()

	select {
	case err = <-done:
	case <-ctx.Done():
		output.Info("shutting down")
		return nil
	}
	if errors.Is(err, context.Canceled) {
		return nil
	}
	return err
}
