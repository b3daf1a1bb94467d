// azcli-mcp – Azure CLI tool server for AI agents.
// Serves one MCP tool that runs az commands, returns the device-code prompt
// of az login without waiting for the sign-in, and supervises the login in
// the background.
package main

import (
	"os"
	"time"

	"github.com/spf13/viper"

	"github.com/kjourdan1/azcli-mcp/cmd"
	"github.com/kjourdan1/azcli-mcp/internal/audit"
	"github.com/kjourdan1/azcli-mcp/internal/config"
	"github.com/kjourdan1/azcli-mcp/internal/exitcode"
	"github.com/kjourdan1/azcli-mcp/internal/output"
	_ "github.com/kjourdan1/azcli-mcp/schemas"
)

func main() {
	start := time.Now()
	err := cmd.Execute()

	result, code := audit.ResultSuccess, exitcode.OK
	if err != nil {
		result, code = audit.ResultFailure, exitcode.Of(err)
		output.PrintError(err)
	}
	record(audit.BuildEvent(os.Args, result, code, time.Since(start)))

	os.Exit(code)
}

// record appends the run to the audit log unless auditing is switched off.
func record(event audit.Event) {
	v := viper.GetViper()
	if !v.IsSet(config.KeyAuditEnabled) {
		// Flag parsing failed before the config was loaded.
		config.Bind(v)
	}
	if !v.GetBool(config.KeyAuditEnabled) {
		return
	}
	path := v.GetString(config.KeyAuditPath)
	if path == "" {
		path = config.DefaultAuditPath()
	}
	event.Metadata = map[string]string{"version": cmd.Version}
	_ = audit.New(path).Write(event)
}
