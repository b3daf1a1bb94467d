// Package doctor implements prerequisite checks for azcli-mcp.
//
// It validates that the Azure CLI is installed at a supported version, that
// the configured shell can run it, that an Azure session exists, and, when
// service principal credentials are configured, that they can obtain a
// token and see subscriptions.
package doctor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os/exec"
	"regexp"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/config"
)

// Status represents the outcome of a single check.
type Status string

const (
	StatusPass Status = "pass"
	StatusFail Status = "fail"
	StatusWarn Status = "warn"
	StatusSkip Status = "skip"
)

// MinAzVersion is the oldest Azure CLI known to support --use-device-code
// with the current sign-in prompt wording.
const MinAzVersion = "2.50.0"

// CheckResult is the outcome of running a single prerequisite check.
type CheckResult struct {
	Name     string `json:"name"`
	Category string `json:"category"`
	Status   Status `json:"status"`
	Message  string `json:"message"`
	Fix      string `json:"fix,omitempty"`
}

// Check defines a single prerequisite check.
type Check struct {
	Name     string
	Category string // "tool", "config", "auth", "azure"
	Critical bool   // if true, failure => non-zero exit
	Run      func(ctx context.Context, env *Env) CheckResult
}

// CmdExecutor abstracts command execution for testability.
type CmdExecutor interface {
	// Run executes a command and returns combined stdout+stderr output.
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// realExecutor runs commands via os/exec.
type realExecutor struct{}

func (r *realExecutor) Run(ctx context.Context, name string, args ...string) (string, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	out, err := cmd.CombinedOutput()
	return strings.TrimSpace(string(out)), err
}

// NewRealExecutor returns a CmdExecutor backed by os/exec.
func NewRealExecutor() CmdExecutor {
	return &realExecutor{}
}

// Env is what the checks inspect. Verify and ListSubscriptions default to
// the Azure SDK calls in azauth.
type Env struct {
	Exec     CmdExecutor
	Settings *config.Settings
	// ConfigFile is the file viper loaded, empty when none was found.
	ConfigFile string
	// ReadFile reads ConfigFile.
	ReadFile func(path string) ([]byte, error)

	Verify            func(ctx context.Context, sp *azauth.ServicePrincipal) (azcore.TokenCredential, error)
	ListSubscriptions func(ctx context.Context, cred azcore.TokenCredential) ([]azauth.SubscriptionSummary, error)

	principal    *azauth.ServicePrincipal
	principalErr error
	credential   azcore.TokenCredential
}

func (e *Env) program() string {
	if e.Settings != nil && e.Settings.Azure.CLI.Program != "" {
		return e.Settings.Azure.CLI.Program
	}
	return config.DefaultProgram
}

func (e *Env) shell() string {
	if e.Settings != nil && e.Settings.Azure.CLI.Shell != "" {
		return e.Settings.Azure.CLI.Shell
	}
	return config.DefaultShell
}

func (e *Env) prepare() {
	if e.Exec == nil {
		e.Exec = NewRealExecutor()
	}
	if e.Verify == nil {
		e.Verify = azauth.VerifyServicePrincipal
	}
	if e.ListSubscriptions == nil {
		e.ListSubscriptions = azauth.ListSubscriptions
	}
	if e.Settings != nil {
		e.principal, e.principalErr = e.Settings.ServicePrincipal()
	}
}

// Summary holds the aggregated results of all checks.
type Summary struct {
	Results    []CheckResult `json:"results"`
	TotalPass  int           `json:"totalPass"`
	TotalFail  int           `json:"totalFail"`
	TotalWarn  int           `json:"totalWarn"`
	TotalSkip  int           `json:"totalSkip"`
	HasFailure bool          `json:"hasFailure"`
}

// RunAll executes all checks in order and returns a summary. Later checks
// may rely on what earlier ones established, such as a verified credential.
func RunAll(ctx context.Context, env *Env) Summary {
	if env == nil {
		env = &Env{}
	}
	env.prepare()
	checks := AllChecks()
	results := make([]CheckResult, 0, len(checks))
	for _, c := range checks {
		r := c.Run(ctx, env)
		r.Name = c.Name
		r.Category = c.Category
		results = append(results, r)
	}
	return buildSummary(results, checks)
}

func buildSummary(results []CheckResult, checks []Check) Summary {
	s := Summary{Results: results}
	for i, r := range results {
		switch r.Status {
		case StatusPass:
			s.TotalPass++
		case StatusFail:
			s.TotalFail++
			if checks[i].Critical {
				s.HasFailure = true
			}
		case StatusWarn:
			s.TotalWarn++
		case StatusSkip:
			s.TotalSkip++
		}
	}
	return s
}

// AllChecks returns the ordered list of prerequisite checks.
func AllChecks() []Check {
	return []Check{
		checkAzCLI(),
		checkShell(),
		checkConfigFile(),
		checkCredentials(),
		checkAzSession(),
		checkSPToken(),
		checkSPSubscriptions(),
	}
}

// --- Tool checks ---

func checkAzCLI() Check {
	return Check{
		Name:     "az-cli",
		Category: "tool",
		Critical: true,
		Run: func(ctx context.Context, env *Env) CheckResult {
			return checkToolVersion(ctx, env.Exec, env.program(), []string{"version", "--output", "tsv"}, `(\d+\.\d+\.\d+)`, MinAzVersion,
				"Install Azure CLI >= "+MinAzVersion+": https://learn.microsoft.com/cli/azure/install-azure-cli")
		},
	}
}

func checkShell() Check {
	return Check{
		Name:     "shell",
		Category: "tool",
		Critical: true,
		Run: func(ctx context.Context, env *Env) CheckResult {
			shell := env.shell()
			if _, err := env.Exec.Run(ctx, shell, "-c", "exit 0"); err != nil {
				return CheckResult{
					Status:  StatusFail,
					Message: fmt.Sprintf("Shell %q cannot run commands", shell),
					Fix:     "Set azure.cli.shell to a POSIX shell such as sh or bash",
				}
			}
			return CheckResult{Status: StatusPass, Message: fmt.Sprintf("Commands run through %s -c", shell)}
		},
	}
}

// --- Configuration checks ---

func checkConfigFile() Check {
	return Check{
		Name:     "config-file",
		Category: "config",
		Critical: true,
		Run: func(_ context.Context, env *Env) CheckResult {
			if env.ConfigFile == "" || env.ReadFile == nil {
				return CheckResult{Status: StatusSkip, Message: "No azcli-mcp.yaml found, using defaults and environment"}
			}
			data, err := env.ReadFile(env.ConfigFile)
			if err != nil {
				return CheckResult{
					Status:  StatusFail,
					Message: fmt.Sprintf("Cannot read %s", env.ConfigFile),
					Fix:     "Check the file permissions",
				}
			}
			result, err := config.ValidateYAML(data)
			if err != nil {
				return CheckResult{
					Status:  StatusFail,
					Message: fmt.Sprintf("%s is not valid YAML: %v", env.ConfigFile, err),
				}
			}
			if !result.Valid {
				return CheckResult{
					Status:  StatusFail,
					Message: fmt.Sprintf("%s: %s", env.ConfigFile, describeValidation(result)),
					Fix:     "Run: azcli-mcp init to regenerate the file",
				}
			}
			return CheckResult{Status: StatusPass, Message: fmt.Sprintf("%s is valid", env.ConfigFile)}
		},
	}
}

func checkCredentials() Check {
	return Check{
		Name:     "credentials",
		Category: "config",
		Critical: true,
		Run: func(_ context.Context, env *Env) CheckResult {
			if env.principal == nil && env.principalErr == nil {
				return CheckResult{
					Status:  StatusWarn,
					Message: "No service principal credentials configured; az login will use device code",
					Fix:     "Run: azcli-mcp init, or set AZCLI_MCP_AZURE_CREDENTIALS",
				}
			}
			if env.principalErr != nil {
				return CheckResult{
					Status:  StatusFail,
					Message: env.principalErr.Error(),
					Fix:     `Credentials must be JSON: {"tenantId": "...", "clientId": "...", "clientSecret": "..."}`,
				}
			}
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("Service principal %s in tenant %s", env.principal.ClientID, env.principal.TenantID),
			}
		},
	}
}

// --- Azure session checks ---

func checkAzSession() Check {
	return Check{
		Name:     "az-session",
		Category: "auth",
		Critical: false, // the MCP client can log in through the tool
		Run: func(ctx context.Context, env *Env) CheckResult {
			out, err := env.Exec.Run(ctx, env.program(), "account", "show", "--output", "json")
			if err != nil {
				return CheckResult{
					Status:  StatusWarn,
					Message: "No active Azure session",
					Fix:     "Run: az login --use-device-code, or call the tool with \"az login\"",
				}
			}

			tenantID := extractJSONField(out, "tenantId")
			subID := extractJSONField(out, "id")
			userName := extractJSONField(out, "user.name")

			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("Logged in as %s, tenant: %s, subscription: %s", userName, tenantID, subID),
			}
		},
	}
}

func checkSPToken() Check {
	return Check{
		Name:     "sp-token",
		Category: "azure",
		Critical: true,
		Run: func(ctx context.Context, env *Env) CheckResult {
			if env.principal == nil {
				return CheckResult{Status: StatusSkip, Message: "No service principal to verify"}
			}
			cred, err := env.Verify(ctx, env.principal)
			if err != nil {
				res := CheckResult{Status: StatusFail, Message: "Service principal cannot obtain a management token"}
				var authErr *azauth.AuthError
				var binding *azauth.SPNBindingError
				var tenant *azauth.SPNTenantMismatchError
				switch {
				case errors.As(err, &authErr):
					res.Fix = "Check tenantId, clientId and that the client secret has not expired"
				case errors.As(err, &binding), errors.As(err, &tenant):
					res.Message = err.Error()
					res.Fix = "The token was issued for a different identity; check the credential values"
				default:
					res.Message = fmt.Sprintf("%s: %v", res.Message, err)
				}
				return res
			}
			env.credential = cred
			return CheckResult{Status: StatusPass, Message: "Service principal obtained a management token"}
		},
	}
}

func checkSPSubscriptions() Check {
	return Check{
		Name:     "sp-subscriptions",
		Category: "azure",
		Critical: false,
		Run: func(ctx context.Context, env *Env) CheckResult {
			if env.credential == nil {
				return CheckResult{Status: StatusSkip, Message: "Skipped: no verified service principal"}
			}
			subs, err := env.ListSubscriptions(ctx, env.credential)
			if err != nil {
				return CheckResult{
					Status:  StatusWarn,
					Message: fmt.Sprintf("Cannot list subscriptions: %v", err),
					Fix:     "Grant the service principal Reader on at least one subscription",
				}
			}
			if len(subs) == 0 {
				return CheckResult{
					Status:  StatusWarn,
					Message: "Service principal sees no subscriptions",
					Fix:     "Grant the service principal Reader on at least one subscription",
				}
			}
			names := make([]string, 0, len(subs))
			for _, s := range subs {
				names = append(names, s.Name)
			}
			return CheckResult{
				Status:  StatusPass,
				Message: fmt.Sprintf("%d subscription(s) visible: %s", len(subs), strings.Join(names, ", ")),
			}
		},
	}
}

// --- Helpers ---

// checkToolVersion runs a command, extracts version via regex, and compares to min version.
func checkToolVersion(ctx context.Context, ex CmdExecutor, tool string, args []string, pattern, minVersion, fix string) CheckResult {
	out, err := ex.Run(ctx, tool, args...)
	if err != nil {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s not found or not in PATH", tool),
			Fix:     fix,
		}
	}

	re := regexp.MustCompile(pattern)
	matches := re.FindStringSubmatch(out)
	if len(matches) < 2 {
		return CheckResult{
			Status:  StatusWarn,
			Message: fmt.Sprintf("%s found but could not parse version from output", tool),
		}
	}

	version := matches[1]
	if !semverGTE(version, minVersion) {
		return CheckResult{
			Status:  StatusFail,
			Message: fmt.Sprintf("%s %s found, but >= %s required", tool, version, minVersion),
			Fix:     fix,
		}
	}

	return CheckResult{
		Status:  StatusPass,
		Message: fmt.Sprintf("%s %s", tool, version),
	}
}

// semverGTE returns true if version >= min (simple major.minor.patch comparison).
func semverGTE(version, min string) bool {
	v := parseSemver(version)
	m := parseSemver(min)
	if v[0] != m[0] {
		return v[0] > m[0]
	}
	if v[1] != m[1] {
		return v[1] > m[1]
	}
	return v[2] >= m[2]
}

func parseSemver(s string) [3]int {
	parts := strings.SplitN(s, ".", 3)
	var result [3]int
	for i := 0; i < 3 && i < len(parts); i++ {
		numStr := strings.SplitN(parts[i], "-", 2)[0]
		numStr = strings.SplitN(numStr, "+", 2)[0]
		n, _ := strconv.Atoi(numStr)
		result[i] = n
	}
	return result
}

// extractJSONField reads a string field from az JSON output. Dotted paths
// descend into objects.
func extractJSONField(jsonStr, path string) string {
	var node interface{}
	if err := json.Unmarshal([]byte(jsonStr), &node); err != nil {
		return "unknown"
	}
	for _, key := range strings.Split(path, ".") {
		obj, ok := node.(map[string]interface{})
		if !ok {
			return "unknown"
		}
		node = obj[key]
	}
	if s, ok := node.(string); ok {
		return s
	}
	return "unknown"
}

func describeValidation(result *config.ValidationResult) string {
	msgs := make([]string, 0, len(result.Errors))
	for _, e := range result.Errors {
		msgs = append(msgs, e.Field+": "+e.Description)
	}
	return strings.Join(msgs, "; ")
}
