package config

import (
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

const (
	DefaultProgram      = "az"
	DefaultShell        = "sh"
	DefaultAuditEnabled = true
	auditDir            = ".azcli-mcp"
	auditFile           = "audit.log"
)

// DefaultAuditPath is ~/.azcli-mcp/audit.log, or a relative path when the
// home directory is unknown.
func DefaultAuditPath() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return filepath.Join(auditDir, auditFile)
	}
	return filepath.Join(home, auditDir, auditFile)
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyProgram, DefaultProgram)
	v.SetDefault(KeyShell, DefaultShell)
	v.SetDefault(KeyAuditEnabled, DefaultAuditEnabled)
	v.SetDefault(KeyAuditPath, DefaultAuditPath())
}

// ApplyDefaults fills in optional fields left empty.
func ApplyDefaults(s *Settings) {
	if s.Azure.CLI.Program == "" {
		s.Azure.CLI.Program = DefaultProgram
	}
	if s.Azure.CLI.Shell == "" {
		s.Azure.CLI.Shell = DefaultShell
	}
	if s.Audit.Path == "" {
		s.Audit.Path = DefaultAuditPath()
	}
}
