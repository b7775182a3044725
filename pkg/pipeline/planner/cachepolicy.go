package planner

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
)

// hardCacheFloor is the last-resort minimum cacheable size when neither an
// explicit nor an implicit model capability figure exists.
const hardCacheFloor = 4096

// resolveCachePolicy is a pure data transform: configuration, history, and
// the token estimate in, an optional cache strategy out. It never talks to a
// provider.
//
// Rules, in order:
//
//  1. Caching disabled: no strategy.
//  2. Shared-cache creation is first-turn-only unless history caching was
//     explicitly allowed.
//  3. Skip creation when the estimated Max is below the floor AND the
//     estimate is confident enough to trust the floor AND floor-respecting
//     was not disabled. Gating reads Max only: under-estimation risks
//     provider rejection, over-estimation just forgoes an optimization.
func resolveCachePolicy(cfg *config.Frozen, cmd pipeline.ResolvedCommand, estimate pipeline.TokenEstimate) *pipeline.CacheStrategy {
	if !cfg.CachingEnabled() {
		return nil
	}
	if len(cmd.Initial.History) > 0 && !cfg.AllowHistoryCaching() {
		return nil
	}

	floor := resolveCacheFloor(cfg, cfg.Model())
	if estimate.Max < floor &&
		estimate.Confidence >= cfg.CacheSkipFloorConfidence() &&
		!cfg.CacheIgnoreFloor() {
		return nil
	}

	return &pipeline.CacheStrategy{
		Key: contentDigest(cfg.Model(), cmd),
		TTL: cfg.CacheTTL(),
	}
}

// resolveCacheFloor resolves the minimum cacheable token count.
// Order: explicit hint override beats everything; then the explicit
// per-model capability minimum; then the implicit one; then the hard
// default.
func resolveCacheFloor(cfg *config.Frozen, model string) int {
	if floor := cfg.CacheFloorTokens(); floor > 0 {
		return floor
	}
	caps := capsForModel(model)
	if caps.explicitCacheFloor > 0 {
		return caps.explicitCacheFloor
	}
	if caps.implicitCacheFloor > 0 {
		return caps.implicitCacheFloor
	}
	return hardCacheFloor
}

// contentDigest produces the deterministic registry key for a command's
// cacheable content: the model plus each source's identity and size. Two
// commands over the same content share a digest and therefore a cache.
func contentDigest(model string, cmd pipeline.ResolvedCommand) string {
	h := sha256.New()
	io.WriteString(h, model)
	for _, src := range cmd.Sources {
		fmt.Fprintf(h, "|%s:%s:%d", src.Type, src.Identifier, src.SizeBytes)
	}
	return hex.EncodeToString(h.Sum(nil))
}
