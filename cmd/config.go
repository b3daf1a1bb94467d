package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kjourdan1/azcli-mcp/internal/config"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show the effective configuration",
	Long: `Prints the settings azcli-mcp will use after merging defaults, the
config file and AZCLI_MCP_* environment variables. The client secret is
masked.`,
	Args: cobra.NoArgs,
	RunE: runConfig,
}

func init() {
	rootCmd.AddCommand(configCmd)
}

func runConfig(cmd *cobra.Command, _ []string) error {
	settings, err := loadSettings()
	if err != nil {
		return err
	}

	source := viper.ConfigFileUsed()
	if source == "" {
		source = "(none, defaults and environment only)"
	}

	if output.JSONMode {
		output.JSON(map[string]interface{}{
			"configFile":     viper.ConfigFileUsed(),
			"hasCredentials": settings.HasCredentials(),
			"settings":       settings.Redacted(),
		})
		return nil
	}

	rendered, err := config.Render(settings)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n%s", output.Render(output.StyleMuted, "# config file: "+source), rendered)
	return nil
}
