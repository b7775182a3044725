package tokens

import (
	"testing"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

func BenchmarkEstimate(b *testing.B) {
	est := ForProvider("gemini")
	srcs := []pipeline.Source{
		textSource("doc.txt", 48_000),
		{Type: pipeline.SourceImage, Identifier: "photo.png", MIMEType: "image/png", SizeBytes: 2_000_000},
		{Type: pipeline.SourcePDF, Identifier: "paper.pdf", MIMEType: "application/pdf", SizeBytes: 800_000},
	}
	prompts := []string{"Summarize the document", "List the figures"}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = est.Estimate(srcs, prompts, "gemini-2.0-flash")
	}
}
