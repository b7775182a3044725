package main

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/seanbrar/pollux/pkg/cachestore"
	"github.com/seanbrar/pollux/pkg/cli"
	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
	"github.com/seanbrar/pollux/pkg/pipeline/apihandler"
	"github.com/seanbrar/pollux/pkg/pipeline/planner"
	"github.com/seanbrar/pollux/pkg/pipeline/ratelimit"
	"github.com/seanbrar/pollux/pkg/providers"
	"github.com/seanbrar/pollux/pkg/results"
	"github.com/seanbrar/pollux/pkg/sources"
	"github.com/seanbrar/pollux/pkg/telemetry"
	"github.com/seanbrar/pollux/pkg/telemetry/logging"
	"github.com/seanbrar/pollux/pkg/telemetry/metrics"

	// Provider adapters register themselves on import.
	_ "github.com/seanbrar/pollux/pkg/providers/anthropic"
	_ "github.com/seanbrar/pollux/pkg/providers/gemini"
	_ "github.com/seanbrar/pollux/pkg/providers/openai"
)

var runFlags struct {
	prompts     []string
	sources     []string
	output      string
	diagnostics bool
}

var runCmd = &cobra.Command{
	Use:   "run [prompt]",
	Short: "Execute prompts through the pipeline",
	Long: `Execute one or more prompts, with optional multimodal sources, through
the full pipeline against the configured provider.

All prompts share the resolved sources. Each prompt becomes one expected
answer in the result envelope.

Examples:
  # Single prompt, no sources
  pollux run "What is the capital of France?"

  # Prompt over a PDF
  pollux run "Summarize this paper" --source paper.pdf

  # Several prompts over shared sources
  pollux run -p "Who is the author?" -p "What year?" --source paper.pdf

  # JSON output with extraction diagnostics
  pollux run "List the key points" --source notes.txt -o json --diagnostics`,
	Args: cobra.MaximumNArgs(1),
	RunE: runPipeline,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringArrayVarP(&runFlags.prompts, "prompt", "p", nil, "prompt (repeatable)")
	runCmd.Flags().StringArrayVarP(&runFlags.sources, "source", "s", nil, "source file or YouTube URL (repeatable)")
	runCmd.Flags().StringVarP(&runFlags.output, "output", "o", "text", "output format (text, json)")
	runCmd.Flags().BoolVar(&runFlags.diagnostics, "diagnostics", false, "include the extraction audit trail in envelopes")
}

func runPipeline(cmd *cobra.Command, args []string) error {
	prompts := append([]string{}, runFlags.prompts...)
	if len(args) == 1 {
		prompts = append(prompts, args[0])
	}
	if len(prompts) == 0 {
		return cli.NewConfigError("prompt", "at least one prompt is required")
	}

	format, err := cli.ParseFormat(runFlags.output)
	if err != nil {
		return err
	}

	frozen, err := loadFrozenConfig()
	if err != nil {
		return err
	}

	logger, err := buildLogger(frozen)
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	reporter := buildReporter(frozen)

	resolved, err := sources.Resolve(runFlags.sources)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	adapter, err := providers.New(frozen)
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	registry, err := buildRegistry(frozen)
	if err != nil {
		return cli.NewCommandError("run", err)
	}
	defer registry.Close()

	ctx := cli.SetupSignalHandler()

	sweeper := cachestore.NewSweeper(registry, frozen.RegistryPruneSchedule())
	if err := sweeper.Start(ctx); err != nil {
		logger.Warn("cache sweeper not started", "error", err)
	}
	defer sweeper.Stop()

	builderOpts, err := resultOptions(frozen, reporter)
	if err != nil {
		return err
	}

	executor := pipeline.NewExecutor([]pipeline.Handler{
		planner.New(frozen),
		ratelimit.NewHandler(ratelimit.NewRegistry(reporter)),
		apihandler.New(adapter,
			apihandler.WithRegistry(registry),
			apihandler.WithReporter(reporter),
			apihandler.WithUploadConcurrency(frozen.UploadConcurrency()),
		),
		results.New(builderOpts...),
	}, pipeline.WithReporter(reporter), pipeline.WithLogger(logger))

	initial := pipeline.NewInitialCommand(prompts)
	envelope, err := executor.Execute(ctx, pipeline.ResolvedCommand{
		Initial: initial,
		Sources: resolved,
	})
	if err != nil {
		return cli.NewCommandError("run", err)
	}

	return cli.WriteEnvelopes(os.Stdout, format, []pipeline.ResultEnvelope{envelope})
}

func loadFrozenConfig() (*config.Frozen, error) {
	cfg, err := config.Load(cfgFile)
	if errors.Is(err, fs.ErrNotExist) {
		// No config file: environment and defaults still apply.
		cfg, err = config.Parse(nil)
	}
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	frozen, err := config.Freeze(cfg)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	return frozen, nil
}

func buildLogger(frozen *config.Frozen) (*slog.Logger, error) {
	level := frozen.LogLevel()
	if verbose {
		level = "debug"
	}
	logger, err := logging.New(logging.Config{
		Level:  level,
		Format: frozen.LogFormat(),
	})
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	return logger, nil
}

func buildReporter(frozen *config.Frozen) telemetry.Reporter {
	if !frozen.MetricsEnabled() {
		return telemetry.Noop()
	}
	return metrics.NewReporter(config.MetricsConfig{
		Enabled:   true,
		Namespace: frozen.MetricsNamespace(),
		Subsystem: frozen.MetricsSubsystem(),
	}, nil)
}

func buildRegistry(frozen *config.Frozen) (cachestore.Registry, error) {
	if frozen.RegistryBackend() == "sqlite" {
		return cachestore.NewSQLite(frozen.RegistryDBPath())
	}
	return cachestore.NewMemory(), nil
}

func resultOptions(frozen *config.Frozen, reporter telemetry.Reporter) ([]results.Option, error) {
	minLen, maxLen := frozen.AnswerLengthBounds()
	opts := []results.Option{
		results.WithReporter(reporter),
		results.WithDiagnostics(runFlags.diagnostics || frozen.DiagnosticsEnabled()),
		results.WithMaxRawBytes(frozen.MaxRawBytes()),
		results.WithContract(results.Contract{
			MinAnswerBytes: minLen,
			MaxAnswerBytes: maxLen,
			RequiredFields: frozen.RequiredFields(),
		}),
	}
	if path := frozen.SchemaPath(); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, cli.NewConfigError("results.schema_path", err.Error())
		}
		validator, err := results.CompileSchema(raw)
		if err != nil {
			return nil, cli.NewConfigError("results.schema_path", fmt.Sprintf("invalid schema: %v", err))
		}
		opts = append(opts, results.WithSchema(validator))
	}
	return opts, nil
}
