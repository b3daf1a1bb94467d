// Package config holds azcli-mcp settings: where they come from (file, env,
// flags through viper), their defaults, and how they are validated and saved.
package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/kjourdan1/azcli-mcp/internal/azauth"
)

// Viper keys.
const (
	KeyCredentials  = "azure.cli.azure-credentials"
	KeyProgram      = "azure.cli.program"
	KeyShell        = "azure.cli.shell"
	KeyAuditEnabled = "audit.enabled"
	KeyAuditPath    = "audit.path"
)

// EnvPrefix namespaces environment overrides, e.g. AZCLI_MCP_AZURE_CLI_SHELL.
const EnvPrefix = "AZCLI_MCP"

// FileName is the config file base name searched for in . and $HOME.
const FileName = "azcli-mcp"

// Settings is the typed view of the configuration.
type Settings struct {
	Azure AzureSettings `yaml:"azure"`
	Audit AuditSettings `yaml:"audit"`
}

type AzureSettings struct {
	CLI CLISettings `yaml:"cli"`
}

type CLISettings struct {
	// AzureCredentials is a JSON blob with tenantId, clientId and clientSecret.
	AzureCredentials string `yaml:"azure-credentials,omitempty"`
	Program          string `yaml:"program,omitempty"`
	Shell            string `yaml:"shell,omitempty"`
}

type AuditSettings struct {
	Enabled bool   `yaml:"enabled"`
	Path    string `yaml:"path,omitempty"`
}

// Bind registers defaults and environment lookups on v. The credentials key
// also answers to the shorter AZCLI_MCP_AZURE_CREDENTIALS.
func Bind(v *viper.Viper) {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv(KeyCredentials, EnvPrefix+"_AZURE_CREDENTIALS", EnvPrefix+"_AZURE_CLI_AZURE_CREDENTIALS")
}

// Load builds Settings from v. Credentials may be written in YAML either as
// a JSON string or as a nested mapping.
func Load(v *viper.Viper) (*Settings, error) {
	creds, err := credentialsBlob(v.Get(KeyCredentials))
	if err != nil {
		return nil, err
	}
	s := &Settings{
		Azure: AzureSettings{CLI: CLISettings{
			AzureCredentials: creds,
			Program:          strings.TrimSpace(v.GetString(KeyProgram)),
			Shell:            strings.TrimSpace(v.GetString(KeyShell)),
		}},
		Audit: AuditSettings{
			Enabled: v.GetBool(KeyAuditEnabled),
			Path:    v.GetString(KeyAuditPath),
		},
	}
	ApplyDefaults(s)
	return s, nil
}

// LoadFile reads a config file directly, without environment overrides.
func LoadFile(path string) (*Settings, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}
	v := viper.New()
	SetDefaults(v)
	v.SetConfigType("yaml")
	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}
	return Load(v)
}

func credentialsBlob(raw interface{}) (string, error) {
	switch val := raw.(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(val), nil
	case map[string]interface{}:
		data, err := json.Marshal(canonicalKeys(val))
		if err != nil {
			return "", fmt.Errorf("encoding %s: %w", KeyCredentials, err)
		}
		return string(data), nil
	default:
		return "", fmt.Errorf("config key %s must be a JSON string or a mapping, got %T", KeyCredentials, raw)
	}
}

// viper lowercases mapping keys; the credential schema is case-sensitive.
var credentialFields = map[string]string{
	"tenantid":     "tenantId",
	"clientid":     "clientId",
	"clientsecret": "clientSecret",
}

func canonicalKeys(m map[string]interface{}) map[string]interface{} {
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		if canonical, ok := credentialFields[strings.ToLower(k)]; ok {
			k = canonical
		}
		out[k] = v
	}
	return out
}

// HasCredentials reports whether a credential blob is configured.
func (s *Settings) HasCredentials() bool {
	return s.Azure.CLI.AzureCredentials != ""
}

// ServicePrincipal validates and parses the configured credential blob.
// It returns nil, nil when none is configured.
func (s *Settings) ServicePrincipal() (*azauth.ServicePrincipal, error) {
	if !s.HasCredentials() {
		return nil, nil
	}
	result, err := ValidateCredentials(s.Azure.CLI.AzureCredentials)
	if err != nil {
		return nil, err
	}
	if !result.Valid {
		return nil, &SchemaError{Key: KeyCredentials, Result: result}
	}
	return azauth.ParseServicePrincipal(s.Azure.CLI.AzureCredentials)
}

// Redacted returns a copy safe to print: the client secret is masked.
func (s *Settings) Redacted() Settings {
	out := *s
	if !s.HasCredentials() {
		return out
	}
	var blob map[string]interface{}
	if err := json.Unmarshal([]byte(s.Azure.CLI.AzureCredentials), &blob); err != nil {
		out.Azure.CLI.AzureCredentials = "***"
		return out
	}
	if _, ok := blob["clientSecret"]; ok {
		blob["clientSecret"] = "***"
	}
	data, _ := json.Marshal(blob)
	out.Azure.CLI.AzureCredentials = string(data)
	return out
}

func (s Settings) yamlBytes() ([]byte, error) {
	return yaml.Marshal(s)
}
