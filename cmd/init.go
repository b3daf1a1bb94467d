package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/config"
	"github.com/kjourdan1/azcli-mcp/internal/exitcode"
	"github.com/kjourdan1/azcli-mcp/internal/output"
	"github.com/kjourdan1/azcli-mcp/internal/wizard"
)

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Write an azcli-mcp.yaml configuration",
	Long: `Creates azcli-mcp.yaml, interactively by default.

Choose device-code login (agents call az login --use-device-code and a
human completes the sign-in) or a service principal, whose credentials
are stored in the file and used to log in when the server starts. The
file is written with mode 0600.

With --ci (or CI=true) no prompts are shown and values come from flags
or AZCLI_MCP_TENANT_ID, AZCLI_MCP_CLIENT_ID and AZCLI_MCP_CLIENT_SECRET.
A service principal is configured when --client-id is given.

This command will not overwrite an existing file unless --force is given.`,
	Args: cobra.NoArgs,
	RunE: runInit,
}

var (
	initPath         string
	initTenantID     string
	initClientID     string
	initClientSecret string
	initShell        string
	initNoAudit      bool
	initForce        bool
	initCI           bool

	// initPrompter is replaced by tests.
	initPrompter wizard.Prompter
)

func init() {
	initCmd.Flags().StringVarP(&initPath, "output", "o", config.FileName+".yaml", "where to write the configuration")
	initCmd.Flags().StringVar(&initTenantID, "tenant-id", "", "Microsoft Entra tenant ID (auto-detected from Azure CLI if omitted)")
	initCmd.Flags().StringVar(&initClientID, "client-id", "", "service principal application (client) ID")
	initCmd.Flags().StringVar(&initClientSecret, "client-secret", "", "service principal secret (prefer AZCLI_MCP_CLIENT_SECRET)")
	initCmd.Flags().StringVar(&initShell, "shell", config.DefaultShell, "shell used to run az commands")
	initCmd.Flags().BoolVar(&initNoAudit, "no-audit", false, "do not record executed commands")
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing file")
	initCmd.Flags().BoolVar(&initCI, "ci", false, "strict non-interactive mode (fails when required inputs are missing)")
	rootCmd.AddCommand(initCmd)
}

func effectiveCIMode() bool {
	if initCI {
		return true
	}
	return strings.EqualFold(strings.TrimSpace(os.Getenv("CI")), "true")
}

func resolveInitValue(cmd *cobra.Command, flagName, flagValue, envName string) string {
	if cmd != nil && cmd.Flags().Changed(flagName) {
		return strings.TrimSpace(flagValue)
	}
	if envValue := strings.TrimSpace(os.Getenv(envName)); envValue != "" {
		return envValue
	}
	return strings.TrimSpace(flagValue)
}

func runInit(cmd *cobra.Command, _ []string) error {
	var base *config.Settings
	if _, err := os.Stat(initPath); err == nil {
		if !initForce {
			return output.NewErrorWithFix(initPath+" already exists", "use --force to overwrite it")
		}
		// Keep settings the wizard does not ask about, such as the program.
		if existing, loadErr := config.LoadFile(initPath); loadErr == nil {
			base = existing
		} else {
			output.Warn("ignoring unreadable existing config", "path", initPath, "err", loadErr)
		}
	}

	var (
		answers *wizard.InitAnswers
		err     error
	)
	if effectiveCIMode() {
		answers, err = nonInteractiveAnswers(cmd)
	} else {
		w := wizard.NewInitWizard(initPrompter)
		if acct, acctErr := azauth.ActiveAccount(); acctErr == nil {
			w.DefaultTenant = acct.TenantID
		}
		answers, err = w.Run()
	}
	if err != nil {
		return err
	}

	settings, err := answers.ToSettings(base)
	if err != nil {
		return err
	}
	if _, err := settings.ServicePrincipal(); err != nil {
		return exitcode.Wrap(exitcode.Config, output.WrapErrorWithFix(err, "credentials rejected",
			"tenant and client IDs must be UUIDs and the secret must not be empty"))
	}
	output.Step("Writing " + initPath)
	if err := config.Save(settings, initPath); err != nil {
		return err
	}

	if output.JSONMode {
		output.JSON(map[string]interface{}{"path": initPath, "config": settings.Redacted()})
		return nil
	}
	rendered, err := config.Render(settings)
	if err != nil {
		return err
	}
	output.Success("Wrote " + initPath)
	fmt.Fprint(cmd.OutOrStdout(), rendered)
	return nil
}

func nonInteractiveAnswers(cmd *cobra.Command) (*wizard.InitAnswers, error) {
	a := &wizard.InitAnswers{
		AuthMode:     wizard.AuthDeviceCode,
		Shell:        initShell,
		AuditEnabled: !initNoAudit,
	}

	clientID := resolveInitValue(cmd, "client-id", initClientID, "AZCLI_MCP_CLIENT_ID")
	if clientID == "" {
		return a, nil
	}

	a.AuthMode = wizard.AuthServicePrincipal
	a.ClientID = clientID
	a.TenantID = resolveInitValue(cmd, "tenant-id", initTenantID, "AZCLI_MCP_TENANT_ID")
	a.ClientSecret = resolveInitValue(cmd, "client-secret", initClientSecret, "AZCLI_MCP_CLIENT_SECRET")

	if a.TenantID == "" {
		acct, err := azauth.ActiveAccount()
		if err != nil {
			return nil, exitcode.Wrap(exitcode.Validation, fmt.Errorf("--ci mode requires --tenant-id (or AZCLI_MCP_TENANT_ID) with --client-id"))
		}
		a.TenantID = acct.TenantID
	}
	if a.ClientSecret == "" {
		return nil, exitcode.Wrap(exitcode.Validation, fmt.Errorf("--ci mode requires --client-secret (or AZCLI_MCP_CLIENT_SECRET) with --client-id"))
	}
	return a, nil
}
