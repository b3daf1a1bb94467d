// Package cmd implements the Cobra-based CLI for azcli-mcp.
package cmd

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kjourdan1/azcli-mcp/internal/config"
	"github.com/kjourdan1/azcli-mcp/internal/exitcode"
	"github.com/kjourdan1/azcli-mcp/internal/output"
)

var (
	cfgFile    string
	verbosity  int
	jsonOutput bool // --json flag for machine-readable output

	// configErr holds a config file that exists but could not be read.
	configErr error
)

// rootCmd is the top-level command for azcli-mcp.
var rootCmd = &cobra.Command{
	Use:   "azcli-mcp",
	Short: "MCP server that runs Azure CLI commands for AI agents",
	Long: `azcli-mcp exposes the Azure CLI (az) to AI agents as a Model Context
Protocol tool. Agents send az commands; azcli-mcp runs them and returns
their output.

az login is handled specially: the device-code URL and code are returned
as soon as az prints them, while the login keeps running in the
background until the user completes it.

Configuration is read from azcli-mcp.yaml (current directory or $HOME)
and AZCLI_MCP_* environment variables.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		output.Init(verbosity > 0, jsonOutput)
	},
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default: azcli-mcp.yaml)")
	rootCmd.PersistentFlags().CountVarP(&verbosity, "verbose", "v", "increase verbosity (-v for debug logs, including az output)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output results and logs as JSON (machine-readable)")
}

func initConfig() {
	viper.Reset()
	configErr = nil

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName(config.FileName)
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")
		viper.AddConfigPath("$HOME")
	}
	config.Bind(viper.GetViper())

	err := viper.ReadInConfig()
	var notFound viper.ConfigFileNotFoundError
	switch {
	case err == nil:
		if verbosity > 0 {
			fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
		}
	case errors.As(err, &notFound):
		// No file is fine: everything has a default or an environment variable.
	default:
		configErr = err
	}
}

// loadSettings returns the effective settings, failing when a config file
// was found but is unusable.
func loadSettings() (*config.Settings, error) {
	if configErr != nil {
		return nil, exitcode.Wrap(exitcode.Config, output.WrapErrorWithFix(configErr, "cannot read config file",
			"check the YAML syntax, or run 'azcli-mcp init' to write a fresh one"))
	}
	return config.Load(viper.GetViper())
}
