package wizard

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/config"
)

// Authentication modes offered by the init wizard.
const (
	AuthDeviceCode       = "device-code"
	AuthServicePrincipal = "service-principal"
)

// InitAnswers captures all inputs collected by the init wizard.
type InitAnswers struct {
	AuthMode     string
	TenantID     string
	ClientID     string
	ClientSecret string
	Shell        string
	AuditEnabled bool
	AuditPath    string
}

// ToSettings merges the answers into base, which may be nil. Choosing
// device-code removes any stored credentials.
func (a InitAnswers) ToSettings(base *config.Settings) (*config.Settings, error) {
	s := &config.Settings{}
	if base != nil {
		*s = *base
	}

	s.Azure.CLI.AzureCredentials = ""
	if a.AuthMode == AuthServicePrincipal {
		blob, err := json.Marshal(azauth.ServicePrincipal{
			TenantID:     a.TenantID,
			ClientID:     a.ClientID,
			ClientSecret: a.ClientSecret,
		})
		if err != nil {
			return nil, fmt.Errorf("encoding credentials: %w", err)
		}
		s.Azure.CLI.AzureCredentials = string(blob)
	}
	if a.Shell != "" {
		s.Azure.CLI.Shell = a.Shell
	}
	s.Audit.Enabled = a.AuditEnabled
	if a.AuditPath != "" {
		s.Audit.Path = a.AuditPath
	}
	config.ApplyDefaults(s)
	return s, nil
}

// InitWizard drives the interactive init flow.
type InitWizard struct {
	prompter Prompter
	// DefaultTenant pre-fills the tenant prompt, typically from the active
	// az session.
	DefaultTenant string
}

// NewInitWizard returns an init wizard; if p is nil, survey is used.
func NewInitWizard(p Prompter) *InitWizard {
	if p == nil {
		p = NewSurveyPrompter()
	}
	return &InitWizard{prompter: p}
}

// Run collects wizard input in the required order.
func (w *InitWizard) Run() (*InitAnswers, error) {
	a := &InitAnswers{}
	var err error

	a.AuthMode, err = w.prompter.Select("How should azcli-mcp authenticate to Azure?",
		[]string{AuthDeviceCode, AuthServicePrincipal}, AuthDeviceCode)
	if err != nil {
		return nil, handlePromptErr(err)
	}

	if a.AuthMode == AuthServicePrincipal {
		a.TenantID, err = w.prompter.Input("Tenant ID (UUID)", w.DefaultTenant, survey.ComposeValidators(ValidateTenantID))
		if err != nil {
			return nil, handlePromptErr(err)
		}
		a.ClientID, err = w.prompter.Input("Client ID (UUID)", "", survey.ComposeValidators(ValidateClientID))
		if err != nil {
			return nil, handlePromptErr(err)
		}
		a.ClientSecret, err = w.prompter.Password("Client secret", survey.ComposeValidators(ValidateNonEmpty))
		if err != nil {
			return nil, handlePromptErr(err)
		}
	}

	a.Shell, err = w.prompter.Select("Shell used to run az commands", []string{"sh", "bash", "zsh"}, config.DefaultShell)
	if err != nil {
		return nil, handlePromptErr(err)
	}

	a.AuditEnabled, err = w.prompter.Confirm("Record executed commands in an audit log?", config.DefaultAuditEnabled)
	if err != nil {
		return nil, handlePromptErr(err)
	}
	if a.AuditEnabled {
		a.AuditPath, err = w.prompter.Input("Audit log path", config.DefaultAuditPath(), survey.ComposeValidators(ValidateNonEmpty))
		if err != nil {
			return nil, handlePromptErr(err)
		}
	}

	return a, nil
}

func handlePromptErr(err error) error {
	if errors.Is(err, ErrCancelled) {
		return fmt.Errorf("wizard cancelled: %w", ErrCancelled)
	}
	return err
}

func stdio() survey.AskOpt {
	return survey.WithStdio(os.Stdin, os.Stderr, os.Stderr)
}
