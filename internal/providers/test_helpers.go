package providers

import (
	"bytes"
	"io"
	"testing"

	"github.com/seanbrar/pollux/pkg/config"
	"github.com/seanbrar/pollux/pkg/pipeline"
)

// TestFrozen builds a frozen configuration pointing a provider adapter at
// a base URL, typically a MockServer.
func TestFrozen(t *testing.T, provider, baseURL string) *config.Frozen {
	t.Helper()
	cfg := &config.Config{
		Provider: provider,
		Model:    "test-model",
		APIKey:   "test-key",
		Extra: map[string]string{
			provider + "_base_url": baseURL,
		},
	}
	frozen, err := config.Freeze(cfg)
	if err != nil {
		t.Fatalf("freezing test config: %v", err)
	}
	return frozen
}

// TextSource builds an inline text source with a working loader.
func TextSource(id, content string) pipeline.Source {
	return pipeline.Source{
		Type:       pipeline.SourceText,
		Identifier: id,
		MIMEType:   "text/plain",
		SizeBytes:  int64(len(content)),
		Loader: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader([]byte(content))), nil
		},
	}
}

// BinarySource builds a binary source of the given MIME type.
func BinarySource(id, mimeType string, content []byte) pipeline.Source {
	sourceType := pipeline.SourceFile
	switch {
	case len(mimeType) >= 6 && mimeType[:6] == "image/":
		sourceType = pipeline.SourceImage
	case mimeType == "application/pdf":
		sourceType = pipeline.SourcePDF
	case len(mimeType) >= 6 && mimeType[:6] == "video/":
		sourceType = pipeline.SourceVideo
	}
	return pipeline.Source{
		Type:       sourceType,
		Identifier: id,
		MIMEType:   mimeType,
		SizeBytes:  int64(len(content)),
		Loader: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(content)), nil
		},
	}
}
