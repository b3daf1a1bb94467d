package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kjourdan1/azcli-mcp/internal/mcp"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

// Stamped at release time with -ldflags "-X github.com/kjourdan1/azcli-mcp/cmd.Version=...".
var (
	Version   = "dev"
	Commit    = "none"
	BuildDate = "unknown"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show the azcli-mcp build and the MCP protocol revision it speaks",
	Long: `Prints the release, commit and build date of this binary, plus the MCP
protocol revision the serve command negotiates. The same version is sent
to agents as serverInfo.version during initialize.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if output.JSONMode {
			output.JSON(map[string]string{
				"version":         Version,
				"commit":          Commit,
				"buildDate":       BuildDate,
				"protocolVersion": mcp.ProtocolVersion,
			})
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "azcli-mcp version %s (commit: %s, built: %s)\n", Version, Commit, BuildDate)
		fmt.Fprintf(cmd.OutOrStdout(), "MCP protocol %s\n", mcp.ProtocolVersion)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
