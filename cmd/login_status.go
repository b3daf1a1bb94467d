package cmd

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/exitcode"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var loginStatusCmd = &cobra.Command{
	Use:   "login-status",
	Short: "Show the identity the Azure CLI is signed in as",
	Long: `Reports the active az session: the signed-in user or service
principal, its tenant, the default subscription, and the other
subscriptions it can see.

Run it after completing a device-code sign-in to confirm that the login
started by an agent went through. The progress of a login still pending
inside a running server is reported by its azure-login-status tool.

Exits with code 4 when no session is active.`,
	Args: cobra.NoArgs,
	RunE: runLoginStatus,
}

type loginStatusResult struct {
	Account       *azauth.AccountSummary       `json:"account"`
	Subscriptions []azauth.SubscriptionSummary `json:"subscriptions"`
}

func init() {
	rootCmd.AddCommand(loginStatusCmd)
}

func runLoginStatus(cmd *cobra.Command, _ []string) error {
	acct, err := azauth.ActiveAccount()
	if err != nil {
		return exitcode.Wrap(exitcode.Login, output.WrapErrorWithFix(err, "not signed in to Azure",
			"run 'azcli-mcp exec -- az login' or ask your agent to log in"))
	}

	subs, err := azauth.DetectSubscriptions()
	if err != nil {
		output.Warn("could not list subscriptions", "err", err)
	}

	if output.JSONMode {
		output.JSON(loginStatusResult{Account: acct, Subscriptions: subs})
		return nil
	}

	w := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	bold.Fprintln(w, "🔑 Azure CLI session")
	fmt.Fprintf(w, "  Identity:     %s (%s)\n", acct.User.Name, acct.User.Type)
	fmt.Fprintf(w, "  Tenant:       %s\n", acct.TenantID)
	fmt.Fprintf(w, "  Subscription: %s (%s)\n", acct.Subscription, acct.SubscriptionID)

	if len(subs) == 0 {
		return nil
	}
	fmt.Fprintln(w)
	bold.Fprintf(w, "📋 Subscriptions (%d)\n", len(subs))
	for _, s := range subs {
		if s.IsDefault {
			color.New(color.FgGreen).Fprintf(w, "  * %s  %s\n", s.Name, s.ID)
			continue
		}
		fmt.Fprintf(w, "    %s  %s\n", s.Name, s.ID)
	}
	return nil
}
