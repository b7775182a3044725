package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/seanbrar/pollux/pkg/cli"
	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/providers"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Load and validate the configuration file without executing anything.

Checks yaml structure, field values, and that the configured provider has
a registered adapter.

Examples:
  pollux validate
  pollux validate --config /etc/pollux/pollux.yaml`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}
	frozen, err := config.Freeze(cfg)
	if err != nil {
		return cli.NewConfigError("", err.Error())
	}

	fmt.Printf("%s: ok\n", cfgFile)
	fmt.Printf("  provider: %s\n", frozen.Provider())
	fmt.Printf("  model:    %s\n", frozen.Model())
	fmt.Printf("  tier:     %s\n", frozen.Tier())
	if frozen.APIKey() == "" {
		fmt.Printf("  warning:  no API key (set api_key or %s)\n", config.EnvAPIKey)
	}
	if !registered(frozen.Provider()) {
		fmt.Printf("  warning:  no adapter registered for %q in this build\n", frozen.Provider())
	}
	return nil
}

func registered(provider string) bool {
	for _, name := range providers.Registered() {
		if name == provider {
			return true
		}
	}
	return false
}
