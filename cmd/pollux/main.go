// Pollux orchestrates multimodal generation requests against LLM providers.
//
// It plans each request into an explicit execution plan, enforces
// per-provider rate constraints, executes uploads, caching, and generation
// through capability-aware adapters, and converts raw responses into
// stable result envelopes.
//
// Usage:
//
//	# Run a single prompt
//	pollux run "Summarize the attached report" --source report.pdf
//
//	# Multiple prompts over shared sources
//	pollux run -p "Who wrote it?" -p "When?" --source paper.pdf
//
//	# Show the execution plan and token estimate without calling a provider
//	pollux estimate "Describe this image" --source photo.png
//
//	# Validate a configuration file
//	pollux validate --config pollux.yaml
//
//	# Show version information
//	pollux version
package main

func main() {
	Execute()
}
