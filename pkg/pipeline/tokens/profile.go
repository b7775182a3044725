package tokens

import (
	"strconv"
	"strings"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// Confidence levels by content class. Text estimation from character ratios
// is well understood; binary formats less so; unknown formats barely at all.
const (
	confText    = 0.90
	confImage   = 0.80
	confPDF     = 0.60
	confVideo   = 0.40
	confYouTube = 0.30
	confUnknown = 0.10

	// mixedContentPenalty is applied once when a request mixes source
	// types. Heterogeneous content never estimates with higher confidence
	// than homogeneous content of the same size.
	mixedContentPenalty = 0.9
)

// Range spread factors per content class: min = expected*low,
// max = expected*high. Wider classes reflect weaker priors.
type spread struct {
	low, high float64
}

var (
	textSpread    = spread{0.75, 1.25}
	imageSpread   = spread{0.90, 1.10}
	pdfSpread     = spread{0.25, 2.00}
	videoSpread   = spread{0.25, 3.00}
	youtubeSpread = spread{0.10, 4.00}
	unknownSpread = spread{0.00, 4.00}
)

type profileEstimator struct {
	profile Profile
}

// Estimate implements Estimator. The result is the sum of per-item ranges
// with the pessimistic minimum of the per-item confidences, further reduced
// when source types are mixed.
func (e *profileEstimator) Estimate(sources []pipeline.Source, prompts []string, model string) pipeline.TokenEstimate {
	ratio := e.charsPerToken(model)

	total := pipeline.NewTokenEstimate(0, 0, 0, 1.0)
	total.Breakdown = make(map[string]pipeline.TokenRange)

	for i, prompt := range prompts {
		est := scaled(charTokens(len(prompt), ratio), textSpread, confText)
		total = total.Add(est)
		total.Breakdown[promptKey(i)] = asRange(est)
	}

	types := make(map[pipeline.SourceType]struct{})
	for _, src := range sources {
		types[src.Type] = struct{}{}
		est := e.estimateSource(src, ratio)
		total = total.Add(est)
		total.Breakdown[src.Identifier] = asRange(est)
	}

	if len(types) > 1 {
		total.Confidence *= mixedContentPenalty
	}

	// Empty requests keep full confidence on a zero range.
	if len(sources) == 0 && len(prompts) == 0 {
		total.Confidence = 1.0
	}

	return total
}

func (e *profileEstimator) estimateSource(src pipeline.Source, ratio float64) pipeline.TokenEstimate {
	switch src.Type {
	case pipeline.SourceText:
		return scaled(charTokens(int(src.SizeBytes), ratio), textSpread, confText)
	case pipeline.SourceImage:
		return scaled(e.profile.ImageTokens, imageSpread, confImage)
	case pipeline.SourcePDF:
		return scaled(perKiB(src.SizeBytes, e.profile.PDFTokensPerKiB), pdfSpread, confPDF)
	case pipeline.SourceVideo:
		return scaled(perKiB(src.SizeBytes, e.profile.VideoTokensPerKiB), videoSpread, confVideo)
	case pipeline.SourceYouTube:
		return scaled(e.profile.YouTubeTokens, youtubeSpread, confYouTube)
	case pipeline.SourceFile:
		if isTextMIME(src.MIMEType) {
			return scaled(charTokens(int(src.SizeBytes), ratio), textSpread, confText)
		}
		return e.unknownContent(src)
	default:
		return e.unknownContent(src)
	}
}

// unknownContent is the conservative byte-based fallback for content the
// profile has no model for: expected one token per four bytes, a floor of
// zero, a ceiling of one token per byte, and minimum confidence.
func (e *profileEstimator) unknownContent(src pipeline.Source) pipeline.TokenEstimate {
	expected := int(src.SizeBytes / 4)
	if expected < 1 && src.SizeBytes > 0 {
		expected = 1
	}
	max := int(src.SizeBytes)
	if max < expected {
		max = expected
	}
	return pipeline.NewTokenEstimate(0, expected, max, confUnknown)
}

func (e *profileEstimator) charsPerToken(model string) float64 {
	if ratio, ok := e.profile.CharsPerToken[model]; ok {
		return ratio
	}
	for prefix, ratio := range e.profile.CharsPerToken {
		if prefix != "default" && strings.HasPrefix(model, prefix) {
			return ratio
		}
	}
	if ratio, ok := e.profile.CharsPerToken["default"]; ok {
		return ratio
	}
	return 4.0
}

func charTokens(chars int, ratio float64) int {
	if chars <= 0 {
		return 0
	}
	tokens := int(float64(chars)/ratio + 0.5)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

func perKiB(size int64, tokensPerKiB int) int {
	if size <= 0 {
		return 0
	}
	tokens := int(size * int64(tokensPerKiB) / 1024)
	if tokens < 1 {
		tokens = 1
	}
	return tokens
}

func scaled(expected int, sp spread, confidence float64) pipeline.TokenEstimate {
	min := int(float64(expected) * sp.low)
	max := int(float64(expected)*sp.high + 0.5)
	if expected > 0 && max <= expected {
		max = expected + 1
	}
	return pipeline.NewTokenEstimate(min, expected, max, confidence)
}

func asRange(e pipeline.TokenEstimate) pipeline.TokenRange {
	return pipeline.TokenRange{Min: e.Min, Expected: e.Expected, Max: e.Max}
}

// promptKey gives prompts a stable synthetic breakdown identity, since they
// carry no resolver-assigned identifier.
func promptKey(i int) string {
	return "prompt:" + strconv.Itoa(i)
}

func isTextMIME(mime string) bool {
	if strings.HasPrefix(mime, "text/") {
		return true
	}
	switch mime {
	case "application/json", "application/xml", "application/yaml",
		"application/javascript", "application/x-ndjson":
		return true
	}
	return false
}
