// Package providers defines the capability-based adapter contract between
// the pipeline and generative-AI provider APIs.
//
// # Capability model
//
// Generation is the one required capability; uploads and caching are
// optional. Rather than a class hierarchy, capabilities are separate
// interfaces (Generator, Uploader, Cacher) discovered by type assertion on
// the adapter value:
//
//	client, _ := providers.New(cfg)
//	if up, ok := client.(providers.Uploader); ok {
//	    ref, err := up.UploadFile(ctx, src)
//	    ...
//	}
//
// A missing optional capability degrades gracefully (uploads fall back to
// inline handling, caching is skipped); a missing capability behind a
// required plan step is a CapabilityError raised before any generation
// call.
//
// # Boundary rules
//
// This is the only package tree that touches provider HTTP APIs. Every
// failure crossing the boundary is one of the typed errors in errors.go;
// raw transport and decode errors never escape. Concrete adapters live in
// subpackages (gemini, openai, anthropic) and register factories at init.
package providers
