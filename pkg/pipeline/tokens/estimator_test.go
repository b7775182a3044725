package tokens

import (
	"reflect"
	"testing"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

func textSource(id string, size int64) pipeline.Source {
	return pipeline.Source{Type: pipeline.SourceText, Identifier: id, MIMEType: "text/plain", SizeBytes: size}
}

func TestForProvider(t *testing.T) {
	for _, provider := range []string{"gemini", "openai", "anthropic", "GEMINI"} {
		if ForProvider(provider) == defaultEstimator {
			t.Errorf("ForProvider(%q) fell back to default", provider)
		}
	}
	if ForProvider("unheard-of") != defaultEstimator {
		t.Error("unknown provider should get the default profile")
	}
}

func TestEstimateInvariants(t *testing.T) {
	est := ForProvider("gemini")

	inputs := [][]pipeline.Source{
		nil,
		{textSource("a", 100)},
		{{Type: pipeline.SourceImage, Identifier: "img", SizeBytes: 50000}},
		{{Type: pipeline.SourcePDF, Identifier: "pdf", SizeBytes: 1 << 20}},
		{{Type: pipeline.SourceVideo, Identifier: "vid", SizeBytes: 10 << 20}},
		{{Type: pipeline.SourceYouTube, Identifier: "https://youtu.be/x"}},
		{{Type: pipeline.SourceFile, Identifier: "bin", MIMEType: "application/octet-stream", SizeBytes: 4096}},
		{textSource("a", 100), {Type: pipeline.SourceImage, Identifier: "i", SizeBytes: 1000}},
	}

	for _, sources := range inputs {
		got := est.Estimate(sources, []string{"describe"}, "gemini-2.0-flash")
		if err := got.Validate(); err != nil {
			t.Errorf("sources %v: invalid estimate: %v", sources, err)
		}
	}
}

func TestEstimateDeterminism(t *testing.T) {
	est := ForProvider("openai")
	sources := []pipeline.Source{
		textSource("a", 500),
		{Type: pipeline.SourcePDF, Identifier: "p", SizeBytes: 8192},
	}
	first := est.Estimate(sources, []string{"q1", "q2"}, "gpt-4o")
	second := est.Estimate(sources, []string{"q1", "q2"}, "gpt-4o")
	if !reflect.DeepEqual(first, second) {
		t.Errorf("estimates differ:\n%+v\n%+v", first, second)
	}
}

func TestEstimateMonotonicity(t *testing.T) {
	est := ForProvider("anthropic")

	var sources []pipeline.Source
	prev := est.Estimate(sources, []string{"base"}, "claude-sonnet-4")
	additions := []pipeline.Source{
		textSource("t1", 1000),
		{Type: pipeline.SourceImage, Identifier: "i1", SizeBytes: 2000},
		{Type: pipeline.SourcePDF, Identifier: "p1", SizeBytes: 4096},
		textSource("t2", 50),
		{Type: pipeline.SourceYouTube, Identifier: "https://youtu.be/y"},
	}
	for _, add := range additions {
		sources = append(sources, add)
		next := est.Estimate(sources, []string{"base"}, "claude-sonnet-4")
		if next.Min < prev.Min || next.Expected < prev.Expected || next.Max < prev.Max {
			t.Fatalf("appending %q decreased a bound: %+v -> %+v", add.Identifier, prev, next)
		}
		prev = next
	}
}

func TestEstimateMixedContentPenalty(t *testing.T) {
	est := ForProvider("gemini")
	homogeneous := est.Estimate([]pipeline.Source{
		textSource("a", 1000),
		textSource("b", 1000),
	}, nil, "gemini-2.0-flash")
	mixed := est.Estimate([]pipeline.Source{
		textSource("a", 1000),
		{Type: pipeline.SourceImage, Identifier: "b", SizeBytes: 1000},
	}, nil, "gemini-2.0-flash")

	if mixed.Confidence >= homogeneous.Confidence {
		t.Errorf("mixed confidence %v not below homogeneous %v", mixed.Confidence, homogeneous.Confidence)
	}
}

func TestEstimateUnknownContent(t *testing.T) {
	est := ForProvider("gemini")
	got := est.Estimate([]pipeline.Source{
		{Type: pipeline.SourceFile, Identifier: "blob", MIMEType: "application/octet-stream", SizeBytes: 4096},
	}, nil, "gemini-2.0-flash")

	if got.Min != 0 {
		t.Errorf("unknown content Min = %d, want 0", got.Min)
	}
	if got.Max < int(4096) {
		t.Errorf("unknown content Max = %d, want at least one token per byte", got.Max)
	}
	if got.Confidence > confUnknown {
		t.Errorf("unknown content confidence = %v, want <= %v", got.Confidence, confUnknown)
	}
}

func TestEstimateEmptyRequest(t *testing.T) {
	got := ForProvider("gemini").Estimate(nil, nil, "gemini-2.0-flash")
	if got.Min != 0 || got.Expected != 0 || got.Max != 0 {
		t.Errorf("empty request estimate = %d/%d/%d, want zeros", got.Min, got.Expected, got.Max)
	}
	if got.Confidence != 1.0 {
		t.Errorf("empty request confidence = %v, want 1", got.Confidence)
	}
}

func TestEstimateBreakdown(t *testing.T) {
	got := ForProvider("gemini").Estimate(
		[]pipeline.Source{textSource("doc.txt", 400)},
		[]string{"summarize"},
		"gemini-2.0-flash",
	)
	if _, ok := got.Breakdown["doc.txt"]; !ok {
		t.Error("breakdown missing source entry")
	}
	if _, ok := got.Breakdown["prompt:0"]; !ok {
		t.Error("breakdown missing prompt entry")
	}
}

func TestCharsPerTokenLookup(t *testing.T) {
	e := &profileEstimator{profile: Profile{
		Provider: "test",
		CharsPerToken: map[string]float64{
			"special": 2.0,
			"default": 4.0,
		},
	}}
	if r := e.charsPerToken("special-v2"); r != 2.0 {
		t.Errorf("prefix match ratio = %v, want 2.0", r)
	}
	if r := e.charsPerToken("other"); r != 4.0 {
		t.Errorf("default ratio = %v, want 4.0", r)
	}
}
