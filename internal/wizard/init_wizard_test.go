package wizard

import (
	"errors"
	"fmt"
	"testing"

	"github.com/AlecAivazis/survey/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
	"github.com/kjourdan1/azcli-mcp/internal/config"
)

type mockPrompter struct {
	answers  map[string]interface{}
	defaults map[string]string
	calls    []string
	errAt    string
}

func (m *mockPrompter) answer(label string) (interface{}, error) {
	m.calls = append(m.calls, label)
	if m.errAt == label {
		return nil, ErrCancelled
	}
	return m.answers[label], nil
}

func (m *mockPrompter) Input(label, def string, _ survey.Validator) (string, error) {
	if m.defaults == nil {
		m.defaults = map[string]string{}
	}
	m.defaults[label] = def
	v, err := m.answer(label)
	if err != nil || v == nil {
		return "", err
	}
	return fmt.Sprintf("%v", v), nil
}

func (m *mockPrompter) Password(label string, _ survey.Validator) (string, error) {
	v, err := m.answer(label)
	if err != nil || v == nil {
		return "", err
	}
	return fmt.Sprintf("%v", v), nil
}

func (m *mockPrompter) Select(label string, _ []string, def string) (string, error) {
	v, err := m.answer(label)
	if err != nil {
		return "", err
	}
	if v == nil {
		return def, nil
	}
	return fmt.Sprintf("%v", v), nil
}

func (m *mockPrompter) Confirm(label string, def bool) (bool, error) {
	v, err := m.answer(label)
	if err != nil {
		return false, err
	}
	if b, ok := v.(bool); ok {
		return b, nil
	}
	return def, nil
}

const (
	labelAuth   = "How should azcli-mcp authenticate to Azure?"
	labelTenant = "Tenant ID (UUID)"
	labelClient = "Client ID (UUID)"
	labelSecret = "Client secret"
	labelShell  = "Shell used to run az commands"
	labelAudit  = "Record executed commands in an audit log?"
	labelPath   = "Audit log path"
)

func TestInitWizard_ServicePrincipal(t *testing.T) {
	p := &mockPrompter{answers: map[string]interface{}{
		labelAuth:   AuthServicePrincipal,
		labelTenant: "aaaaaaaa-0000-0000-0000-000000000000",
		labelClient: "11111111-1111-1111-1111-111111111111",
		labelSecret: "s3cret",
		labelShell:  "bash",
		labelAudit:  true,
		labelPath:   "/var/log/azcli-mcp.log",
	}}
	w := NewInitWizard(p)
	w.DefaultTenant = "bbbbbbbb-0000-0000-0000-000000000000"

	a, err := w.Run()
	require.NoError(t, err)

	assert.Equal(t, []string{labelAuth, labelTenant, labelClient, labelSecret, labelShell, labelAudit, labelPath}, p.calls)
	assert.Equal(t, "bbbbbbbb-0000-0000-0000-000000000000", p.defaults[labelTenant])

	s, err := a.ToSettings(nil)
	require.NoError(t, err)
	sp, err := azauth.ParseServicePrincipal(s.Azure.CLI.AzureCredentials)
	require.NoError(t, err)
	assert.Equal(t, "s3cret", sp.ClientSecret)
	assert.Equal(t, "bash", s.Azure.CLI.Shell)
	assert.Equal(t, config.DefaultProgram, s.Azure.CLI.Program)
	assert.True(t, s.Audit.Enabled)
	assert.Equal(t, "/var/log/azcli-mcp.log", s.Audit.Path)
}

func TestInitWizard_DeviceCodeSkipsCredentialPrompts(t *testing.T) {
	p := &mockPrompter{answers: map[string]interface{}{
		labelAuth:  AuthDeviceCode,
		labelAudit: false,
	}}

	a, err := NewInitWizard(p).Run()
	require.NoError(t, err)

	assert.Equal(t, []string{labelAuth, labelShell, labelAudit}, p.calls)
	assert.Equal(t, config.DefaultShell, a.Shell)
	assert.False(t, a.AuditEnabled)
}

func TestInitWizard_Cancelled(t *testing.T) {
	p := &mockPrompter{answers: map[string]interface{}{labelAuth: AuthServicePrincipal}, errAt: labelClient}

	_, err := NewInitWizard(p).Run()

	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrCancelled))
	assert.Contains(t, err.Error(), "wizard cancelled")
}

func TestToSettings_DeviceCodeClearsCredentials(t *testing.T) {
	base := &config.Settings{Azure: config.AzureSettings{CLI: config.CLISettings{
		AzureCredentials: `{"tenantId":"t","clientId":"c","clientSecret":"old"}`,
		Program:          "/opt/az/bin/az",
	}}}

	s, err := InitAnswers{AuthMode: AuthDeviceCode, AuditEnabled: true}.ToSettings(base)
	require.NoError(t, err)

	assert.False(t, s.HasCredentials())
	assert.Equal(t, "/opt/az/bin/az", s.Azure.CLI.Program, "unrelated settings are kept")
	assert.Equal(t, config.DefaultAuditPath(), s.Audit.Path)
	assert.True(t, base.HasCredentials(), "base is not modified")
}

func TestValidators(t *testing.T) {
	assert.NoError(t, ValidateTenantID("aaaaaaaa-0000-0000-0000-000000000000"))
	assert.Error(t, ValidateTenantID("contoso"))
	assert.NoError(t, ValidateClientID(" 11111111-1111-1111-1111-111111111111 "))
	assert.Error(t, ValidateClientID(""))
	assert.NoError(t, ValidateNonEmpty("x"))
	assert.Error(t, ValidateNonEmpty("   "))
}
