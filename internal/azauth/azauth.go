// Package azauth handles the service principal credentials azcli-mcp can be
// configured with.
//
// The credentials arrive as a JSON blob with tenantId, clientId and
// clientSecret. They are turned into an `az login --service-principal`
// command for the Azure CLI session, and doctor can verify them directly
// against Microsoft Entra ID through the Azure SDK.
package azauth

import (
	"context"
	"encoding/json"
	"fmt"
	"os/exec"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/resources/armsubscriptions"
	"github.com/kballard/go-shellquote"
)

// ManagementScope is the token scope used to prove a credential works.
const ManagementScope = "https://management.azure.com/.default"

// ServicePrincipal is the credential blob accepted in configuration.
type ServicePrincipal struct {
	TenantID     string `json:"tenantId"`
	ClientID     string `json:"clientId"`
	ClientSecret string `json:"clientSecret"`
}

// ParseServicePrincipal decodes the credential blob. All three fields are required.
func ParseServicePrincipal(blob string) (*ServicePrincipal, error) {
	var sp ServicePrincipal
	if err := json.Unmarshal([]byte(blob), &sp); err != nil {
		return nil, fmt.Errorf("parsing Azure credentials: %w", err)
	}
	var missing []string
	if strings.TrimSpace(sp.TenantID) == "" {
		missing = append(missing, "tenantId")
	}
	if strings.TrimSpace(sp.ClientID) == "" {
		missing = append(missing, "clientId")
	}
	if sp.ClientSecret == "" {
		missing = append(missing, "clientSecret")
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("Azure credentials missing %s", strings.Join(missing, ", "))
	}
	return &sp, nil
}

// LoginCommand builds the non-interactive az login for this principal.
// Values are shell-quoted because the command runs through a shell.
func (sp *ServicePrincipal) LoginCommand() string {
	return shellquote.Join(
		"az", "login", "--service-principal",
		"--tenant", sp.TenantID,
		"--username", sp.ClientID,
		"--password", sp.ClientSecret,
	)
}

// Credential returns an Azure SDK credential for the principal.
func (sp *ServicePrincipal) Credential() (azcore.TokenCredential, error) {
	return azidentity.NewClientSecretCredential(sp.TenantID, sp.ClientID, sp.ClientSecret, nil)
}

// VerifyServicePrincipal obtains a management token for sp and checks the
// token was issued to the expected tenant and application.
func VerifyServicePrincipal(ctx context.Context, sp *ServicePrincipal) (azcore.TokenCredential, error) {
	cred, err := sp.Credential()
	if err != nil {
		return nil, fmt.Errorf("creating client secret credential: %w", err)
	}
	tok, err := cred.GetToken(ctx, policy.TokenRequestOptions{Scopes: []string{ManagementScope}})
	if err != nil {
		return nil, &AuthError{TenantID: sp.TenantID, Cause: err}
	}
	if err := ValidateTokenBinding(tok.Token, sp); err != nil {
		return nil, err
	}
	return cred, nil
}

// ListSubscriptions returns the display names of subscriptions visible to cred.
func ListSubscriptions(ctx context.Context, cred azcore.TokenCredential) ([]SubscriptionSummary, error) {
	client, err := armsubscriptions.NewClient(cred, nil)
	if err != nil {
		return nil, fmt.Errorf("creating subscriptions client: %w", err)
	}
	var subs []SubscriptionSummary
	pager := client.NewListPager(nil)
	for pager.More() {
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("listing subscriptions: %w", err)
		}
		for _, s := range page.Value {
			if s == nil {
				continue
			}
			summary := SubscriptionSummary{}
			if s.SubscriptionID != nil {
				summary.ID = *s.SubscriptionID
			}
			if s.DisplayName != nil {
				summary.Name = *s.DisplayName
			}
			if s.TenantID != nil {
				summary.TenantID = *s.TenantID
			}
			subs = append(subs, summary)
		}
	}
	return subs, nil
}

// AuthError explains how to fix credentials that Entra ID rejected.
type AuthError struct {
	TenantID string
	Cause    error
}

func (e *AuthError) Error() string {
	var sb strings.Builder
	sb.WriteString("Azure authentication failed for the configured service principal")
	if e.Cause != nil {
		sb.WriteString(": ")
		sb.WriteString(e.Cause.Error())
	}
	sb.WriteString("\n\nCheck the credentials blob (azure.cli.azure-credentials):\n")
	sb.WriteString(fmt.Sprintf("  tenantId     must be the directory ID of %s\n", e.TenantID))
	sb.WriteString("  clientId     must be the application (client) ID of the app registration\n")
	sb.WriteString("  clientSecret must be a current, unexpired client secret value\n\n")
	sb.WriteString("To create a fresh principal:\n")
	sb.WriteString("  az ad sp create-for-rbac --name azcli-mcp --role Reader \\\n")
	sb.WriteString("    --scopes /subscriptions/<subscription-id>\n")
	return sb.String()
}

func (e *AuthError) Unwrap() error { return e.Cause }

// SubscriptionSummary holds basic info about an Azure subscription.
type SubscriptionSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	TenantID  string `json:"tenantId"`
	IsDefault bool   `json:"isDefault"`
}

// AccountSummary is the signed-in identity of the active az session.
type AccountSummary struct {
	TenantID       string `json:"tenantId"`
	SubscriptionID string `json:"id"`
	Subscription   string `json:"name"`
	User           struct {
		Name string `json:"name"`
		Type string `json:"type"`
	} `json:"user"`
}

// commandRunner abstracts exec.Command for testing.
var commandRunner = func(name string, args ...string) ([]byte, error) {
	return exec.CommandContext(context.Background(), name, args...).Output()
}

// SetCommandRunner replaces the command runner (for testing).
func SetCommandRunner(fn func(string, ...string) ([]byte, error)) {
	commandRunner = fn
}

// GetCommandRunner returns the current command runner (for test save/restore).
func GetCommandRunner() func(string, ...string) ([]byte, error) {
	return commandRunner
}

// ActiveAccount reads the identity of the current az session, which is how
// a completed device-code login becomes visible.
func ActiveAccount() (*AccountSummary, error) {
	out, err := commandRunner("az", "account", "show", "-o", "json")
	if err != nil {
		return nil, fmt.Errorf("no active Azure CLI session; run 'az login --use-device-code' first")
	}
	var acct AccountSummary
	if err := json.Unmarshal(out, &acct); err != nil {
		return nil, fmt.Errorf("parsing Azure CLI account: %w", err)
	}
	return &acct, nil
}

// DetectSubscriptions returns all subscriptions visible to the current Azure CLI session.
func DetectSubscriptions() ([]SubscriptionSummary, error) {
	out, err := commandRunner("az", "account", "list", "--query", "[].{id:id, name:name, tenantId:tenantId, isDefault:isDefault}", "-o", "json")
	if err != nil {
		return nil, fmt.Errorf("could not list subscriptions from Azure CLI; run 'az login' first")
	}
	var subs []SubscriptionSummary
	if err := json.Unmarshal(out, &subs); err != nil {
		return nil, fmt.Errorf("parsing Azure CLI subscription list: %w", err)
	}
	return subs, nil
}
