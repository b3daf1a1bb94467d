package cmd

import (
	"context"
	"errors"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/doctor"
	"github.com/kjourdan1/azcli-mcp/internal/exitcode"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var doctorCmd = &cobra.Command{
	Use:   "doctor",
	Short: "Check prerequisites and environment readiness",
	Long: `Verify that the Azure CLI and the configured shell are installed, that
the config file and credentials are valid, and that Azure can be reached.

When a service principal is configured, doctor requests a token for it
from Microsoft Entra ID and lists the subscriptions it can see.

Each check reports ✅ (pass), ❌ (fail), ⚠️ (warning) or ⏭️ (skipped) with
an actionable fix suggestion.

Exit code 0 if all critical checks pass, 5 otherwise.`,
	Args: cobra.NoArgs,
	RunE: runDoctor,
}

var errDoctorFailed = errors.New("doctor found critical issues")

// doctorExecutor is swapped by tests.
var doctorExecutor = doctor.NewRealExecutor

func init() {
	rootCmd.AddCommand(doctorCmd)
}

func runDoctor(cmd *cobra.Command, _ []string) error {
	env := &doctor.Env{
		Exec:              doctorExecutor(),
		ConfigFile:        viper.ConfigFileUsed(),
		ReadFile:          os.ReadFile,
		Verify:            azauth.VerifyServicePrincipal,
		ListSubscriptions: azauth.ListSubscriptions,
	}
	if configErr == nil {
		settings, err := loadSettings()
		if err != nil {
			return err
		}
		env.Settings = settings
	}

	var summary doctor.Summary
	_ = output.WithSpinner("Running checks", func() error {
		summary = doctor.RunAll(context.Background(), env)
		if summary.HasFailure {
			return errDoctorFailed
		}
		return nil
	})

	doctor.PrintResults(cmd.OutOrStdout(), summary)

	if summary.HasFailure {
		return exitcode.Wrap(exitcode.Config, errDoctorFailed)
	}
	return nil
}
