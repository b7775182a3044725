package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "pollux",
	Short: "Pollux - multimodal LLM request orchestration",
	Long: `Pollux turns prompts and multimodal sources into provider API calls
through an explicit command pipeline:

  plan -> rate limit -> execute (upload, cache, generate) -> build results

Every request gets a conservative token estimate, a per-provider rate
constraint, capability-aware upload and cache handling, and a stable
result envelope extracted from whatever shape the provider returns.`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "pollux.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
