package cmd

import (
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/kballard/go-shellquote"
	"github.com/spf13/cobra"

	"github.com/kjourdan1/azcli-mcp/internal/azure"
	"github.com/kjourdan1/azcli-mcp/internal/exitcode"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var execCmd = &cobra.Command{
	Use:   "exec -- az <args>",
	Short: "Run one az command the way the MCP tool would",
	Long: `Run a single Azure CLI command through the same validation, login
handling and audit trail as the execute-azure-cli-command tool.

The command may be given as one quoted string or as separate arguments
after "--":

  azcli-mcp exec "az group list --query '[].name'"
  azcli-mcp exec -- az vm list -g my-rg

For az login, the device-code URL and code are printed as soon as az
emits them; exec then waits for the sign-in to finish unless --no-wait
is given.`,
	Args: cobra.MinimumNArgs(1),
	RunE: runExec,
}

var execNoWait bool

func init() {
	execCmd.Flags().BoolVar(&execNoWait, "no-wait", false, "return as soon as the device-code prompt is printed")
	rootCmd.AddCommand(execCmd)
}

// commandLine rebuilds the command text. A single argument is taken as the
// full command line; several are re-quoted so the shell sees them unchanged.
func commandLine(args []string) string {
	if len(args) == 1 {
		return strings.TrimSpace(args[0])
	}
	return shellquote.Join(args...)
}

type execResult struct {
	Command string `json:"command"`
	Output  string `json:"output"`
	Login   any    `json:"login,omitempty"`
}

func runExec(cmd *cobra.Command, args []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	finished := make(chan azure.LoginStatus, 1)
	notify := func(st azure.LoginStatus) {
		select {
		case finished <- st:
		default:
		}
	}
	svc := buildService(ctx, settings, azure.WithLoginHooks(azure.LoginHooks{
		OnComplete: notify,
		OnFailure:  func(st azure.LoginStatus, _ error) { notify(st) },
	}))
	defer svc.Close()

	command := commandLine(args)
	res := svc.Run(ctx, command)
	result := execResult{Command: azure.Redact(command), Output: res.String()}

	if !res.OK() {
		if output.JSONMode {
			output.JSONErrorData(res.Err.Error(), result)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), res.String())
		}
		return res.Err
	}

	status := svc.LoginStatus()
	if status.State != azure.LoginStatePromptDetected {
		if output.JSONMode {
			output.JSON(result)
		} else {
			fmt.Fprint(cmd.OutOrStdout(), res.Output)
		}
		return nil
	}

	// Device-code login: show the prompt, then follow the background session.
	if !output.JSONMode {
		fmt.Fprintln(cmd.OutOrStdout(), res.Output)
	}
	if !execNoWait {
		sp := output.NewSpinner("Waiting for the sign-in to complete")
		sp.Start()
		select {
		case status = <-finished:
		case <-ctx.Done():
			sp.Stop()
			// The deferred Close kills the pending login.
			return exitcode.Wrap(exitcode.Login, output.NewErrorWithFix("interrupted before the sign-in completed",
				"run 'azcli-mcp exec -- az login' again and finish the sign-in in the browser"))
		}
		sp.Stop()
	}
	result.Login = status
	if output.JSONMode {
		output.JSON(result)
	}
	if status.State == azure.LoginStateFailed {
		return exitcode.Wrap(exitcode.Login, output.NewError("az login failed: "+status.Error))
	}
	if status.State == azure.LoginStateCompleted {
		output.Success("Signed in to Azure")
	}
	return nil
}
