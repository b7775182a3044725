package sources

import (
	"io"
	"os"
	"strings"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

func textLoader(text string) pipeline.ContentLoader {
	return func() (io.ReadCloser, error) {
		return io.NopCloser(strings.NewReader(text)), nil
	}
}

func fileLoader(path string) pipeline.ContentLoader {
	return func() (io.ReadCloser, error) {
		return os.Open(path)
	}
}
