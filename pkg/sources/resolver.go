package sources

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

// FromText builds an inline text source with a synthetic identifier.
func FromText(text string) pipeline.Source {
	return pipeline.Source{
		Type:       pipeline.SourceText,
		Identifier: "text:" + uuid.NewString(),
		MIMEType:   "text/plain",
		SizeBytes:  int64(len(text)),
		Loader:     textLoader(text),
	}
}

// FromFile resolves a local file into a source: stat for size, extension
// for MIME type, and a loader that opens the file on demand.
func FromFile(path string) (pipeline.Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return pipeline.Source{}, fmt.Errorf("resolving source %q: %w", path, err)
	}
	if info.IsDir() {
		return pipeline.Source{}, fmt.Errorf("resolving source %q: is a directory", path)
	}

	mimeType := mime.TypeByExtension(filepath.Ext(path))
	if i := strings.IndexByte(mimeType, ';'); i >= 0 {
		mimeType = mimeType[:i]
	}

	return pipeline.Source{
		Type:       classify(mimeType),
		Identifier: path,
		MIMEType:   mimeType,
		SizeBytes:  info.Size(),
		Loader:     fileLoader(path),
	}, nil
}

// FromYouTube builds a pass-through source for a YouTube URL. There is no
// loader: the identifier itself is the content.
func FromYouTube(url string) pipeline.Source {
	return pipeline.Source{
		Type:       pipeline.SourceYouTube,
		Identifier: url,
	}
}

// Resolve maps CLI inputs onto sources: YouTube URLs pass through,
// everything else must be a readable local file.
func Resolve(inputs []string) ([]pipeline.Source, error) {
	out := make([]pipeline.Source, 0, len(inputs))
	for _, input := range inputs {
		if IsYouTubeURL(input) {
			out = append(out, FromYouTube(input))
			continue
		}
		src, err := FromFile(input)
		if err != nil {
			return nil, err
		}
		out = append(out, src)
	}
	return out, nil
}

// IsYouTubeURL reports whether the input is a YouTube watch URL.
func IsYouTubeURL(input string) bool {
	for _, prefix := range []string{
		"https://www.youtube.com/",
		"https://youtube.com/",
		"https://youtu.be/",
		"http://www.youtube.com/",
		"http://youtu.be/",
	} {
		if strings.HasPrefix(input, prefix) {
			return true
		}
	}
	return false
}

func classify(mimeType string) pipeline.SourceType {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return pipeline.SourceImage
	case mimeType == "application/pdf":
		return pipeline.SourcePDF
	case strings.HasPrefix(mimeType, "video/"):
		return pipeline.SourceVideo
	case strings.HasPrefix(mimeType, "text/"):
		return pipeline.SourceText
	default:
		return pipeline.SourceFile
	}
}
