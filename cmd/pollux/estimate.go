package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/seanbrar/pollux/pkg/cli"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/pipeline/planner"
	"github.com/seanbrar/pollux/pkg/sources"
)

var estimateFlags struct {
	prompts []string
	sources []string
	output  string
}

var estimateCmd = &cobra.Command{
	Use:   "estimate [prompt]",
	Short: "Show the execution plan and token estimate without calling a provider",
	Long: `Plan the given prompts and sources and print the resulting execution
plan: token estimate range, rate constraint, cache strategy, and fallback.

Nothing is sent to a provider; no API key is required.

Examples:
  pollux estimate "Summarize this" --source report.pdf
  pollux estimate -p "Q1" -p "Q2" --source data.txt -o json`,
	Args: cobra.MaximumNArgs(1),
	RunE: runEstimate,
}

func init() {
	rootCmd.AddCommand(estimateCmd)

	estimateCmd.Flags().StringArrayVarP(&estimateFlags.prompts, "prompt", "p", nil, "prompt (repeatable)")
	estimateCmd.Flags().StringArrayVarP(&estimateFlags.sources, "source", "s", nil, "source file or YouTube URL (repeatable)")
	estimateCmd.Flags().StringVarP(&estimateFlags.output, "output", "o", "text", "output format (text, json)")
}

func runEstimate(cmd *cobra.Command, args []string) error {
	prompts := append([]string{}, estimateFlags.prompts...)
	if len(args) == 1 {
		prompts = append(prompts, args[0])
	}
	if len(prompts) == 0 {
		return cli.NewConfigError("prompt", "at least one prompt is required")
	}

	format, err := cli.ParseFormat(estimateFlags.output)
	if err != nil {
		return err
	}

	frozen, err := loadFrozenConfig()
	if err != nil {
		return err
	}

	resolved, err := sources.Resolve(estimateFlags.sources)
	if err != nil {
		return cli.NewCommandError("estimate", err)
	}

	plan, err := planner.New(frozen).Plan(pipeline.ResolvedCommand{
		Initial: pipeline.NewInitialCommand(prompts),
		Sources: resolved,
	})
	if err != nil {
		return cli.NewCommandError("estimate", err)
	}

	if format == cli.FormatJSON {
		return cli.WriteJSON(os.Stdout, plan)
	}
	printPlan(plan)
	return nil
}

func printPlan(plan pipeline.ExecutionPlan) {
	fmt.Printf("provider: %s  model: %s  tier: %s\n", plan.Provider, plan.Model, plan.Tier)
	fmt.Printf("parts: %d (%d prompt)\n", len(plan.Parts), plan.PromptPartCount)

	est := plan.TokenEstimate
	fmt.Printf("tokens: ~%d expected (range %d-%d, confidence %.2f)\n",
		est.Expected, est.Min, est.Max, est.Confidence)

	if rc := plan.RateConstraint; rc != nil {
		fmt.Printf("rate: %d req/min, %d tokens/min, min interval %s\n",
			rc.RequestsPerMinute, rc.TokensPerMinute, rc.MinInterval)
	} else {
		fmt.Println("rate: unconstrained")
	}

	if cs := plan.CacheStrategy; cs != nil {
		fmt.Printf("cache: key %s, ttl %s\n", cs.Key, cs.TTL)
	} else {
		fmt.Println("cache: none")
	}

	if plan.Fallback != nil {
		fmt.Printf("fallback: %d parts, simplified\n", len(plan.Fallback.Parts))
	} else {
		fmt.Println("fallback: none")
	}
}
