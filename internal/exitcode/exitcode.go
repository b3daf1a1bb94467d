// Package exitcode maps errors to the process exit status of azcli-mcp.
package exitcode

import (
	"errors"
	"strings"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/azure"
)

const (
	OK            = 0
	Generic       = 1
	Validation    = 2 // command rejected before anything ran
	Azure         = 3 // az ran and failed, or could not be started
	Login         = 4 // device-code login failed or produced no prompt
	Config        = 5 // configuration or credentials unusable
	SecurityBlock = 6 // token issued for a different tenant or client
)

type Error struct {
	Code  int
	Cause error
}

func (e *Error) Error() string {
	return e.Cause.Error()
}

func (e *Error) Unwrap() error {
	return e.Cause
}

func Wrap(code int, err error) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Cause: err}
}

func Of(err error) int {
	if err == nil {
		return OK
	}

	var coded *Error
	if errors.As(err, &coded) {
		return coded.Code
	}

	var spnErr *azauth.SPNBindingError
	if errors.As(err, &spnErr) {
		return SecurityBlock
	}

	var tenantErr *azauth.SPNTenantMismatchError
	if errors.As(err, &tenantErr) {
		return SecurityBlock
	}

	var authErr *azauth.AuthError
	if errors.As(err, &authErr) {
		return Config
	}

	var validationErr *azure.ValidationError
	if errors.As(err, &validationErr) {
		return Validation
	}

	var noPrompt *azure.NoPromptError
	if errors.As(err, &noPrompt) {
		return Login
	}

	var exitErr *azure.ExitError
	var spawnErr *azure.SpawnError
	var streamErr *azure.StreamError
	if errors.As(err, &exitErr) || errors.As(err, &spawnErr) || errors.As(err, &streamErr) {
		return Azure
	}

	// Fallback for errors from cobra and viper, which carry no type.
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "unknown flag"),
		strings.Contains(msg, "unknown command"),
		strings.Contains(msg, "accepts"),
		strings.Contains(msg, "invalid"):
		return Validation
	case strings.Contains(msg, "config"):
		return Config
	default:
		return Generic
	}
}
