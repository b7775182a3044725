/*
Package cli provides command-line interface utilities for the pollux
command.

Output Formatting:

Result envelopes render as human-readable text or JSON:

	format, _ := cli.ParseFormat("json")
	if err := cli.WriteEnvelopes(os.Stdout, format, envelopes); err != nil {
		return err
	}

Progress Reporting:

For batch runs, use the progress reporter:

	progress := cli.NewProgressReporter(os.Stderr)
	progress.Start(int64(len(commands)))
	// ... Update after each completed command ...
	progress.Finish()

Signal Handling:

For graceful shutdown on SIGINT/SIGTERM:

	ctx := cli.SetupSignalHandler()
*/
package cli
