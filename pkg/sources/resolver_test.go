package sources

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/seanbrar/pollux/pkg/pipeline"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func readAll(t *testing.T, src pipeline.Source) string {
	t.Helper()
	data, err := src.Content()
	if err != nil {
		t.Fatalf("Content: %v", err)
	}
	return string(data)
}

func TestFromText(t *testing.T) {
	src := FromText("hello world")
	if err := src.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if src.Type != pipeline.SourceText {
		t.Errorf("Type = %q", src.Type)
	}
	if !strings.HasPrefix(src.Identifier, "text:") {
		t.Errorf("Identifier = %q", src.Identifier)
	}
	if src.SizeBytes != int64(len("hello world")) {
		t.Errorf("SizeBytes = %d", src.SizeBytes)
	}
	if got := readAll(t, src); got != "hello world" {
		t.Errorf("content = %q", got)
	}

	other := FromText("hello world")
	if other.Identifier == src.Identifier {
		t.Error("identifiers should be unique per source")
	}
}

func TestFromFile(t *testing.T) {
	tests := []struct {
		name     string
		filename string
		content  string
		wantType pipeline.SourceType
		wantMIME string
	}{
		{"html file", "page.html", "<html></html>", pipeline.SourceText, "text/html"},
		{"pdf file", "report.pdf", "%PDF-1.7", pipeline.SourcePDF, "application/pdf"},
		{"image file", "photo.png", "\x89PNG", pipeline.SourceImage, "image/png"},
		{"unknown extension", "data.zzz", "\x00\x01", pipeline.SourceFile, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := writeFile(t, tt.filename, tt.content)
			src, err := FromFile(path)
			if err != nil {
				t.Fatalf("FromFile: %v", err)
			}
			if src.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", src.Type, tt.wantType)
			}
			if tt.wantMIME != "" && src.MIMEType != tt.wantMIME {
				t.Errorf("MIMEType = %q, want %q", src.MIMEType, tt.wantMIME)
			}
			if src.Identifier != path {
				t.Errorf("Identifier = %q, want %q", src.Identifier, path)
			}
			if src.SizeBytes != int64(len(tt.content)) {
				t.Errorf("SizeBytes = %d, want %d", src.SizeBytes, len(tt.content))
			}
			if err := src.Validate(); err != nil {
				t.Errorf("Validate: %v", err)
			}
			if got := readAll(t, src); got != tt.content {
				t.Errorf("content = %q, want %q", got, tt.content)
			}
		})
	}
}

func TestFromFileStripsMIMEParams(t *testing.T) {
	path := writeFile(t, "page.html", "<html></html>")
	src, err := FromFile(path)
	if err != nil {
		t.Fatalf("FromFile: %v", err)
	}
	if strings.Contains(src.MIMEType, ";") {
		t.Errorf("MIMEType %q should not carry parameters", src.MIMEType)
	}
}

func TestFromFileErrors(t *testing.T) {
	if _, err := FromFile(filepath.Join(t.TempDir(), "absent.txt")); err == nil {
		t.Error("missing file should error")
	}
	if _, err := FromFile(t.TempDir()); err == nil {
		t.Error("directory should error")
	}
}

func TestFromYouTube(t *testing.T) {
	src := FromYouTube("https://www.youtube.com/watch?v=abc123")
	if err := src.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if src.Type != pipeline.SourceYouTube {
		t.Errorf("Type = %q", src.Type)
	}
	if src.Loader != nil {
		t.Error("YouTube sources carry no loader")
	}
}

func TestIsYouTubeURL(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"https://www.youtube.com/watch?v=abc", true},
		{"https://youtube.com/watch?v=abc", true},
		{"https://youtu.be/abc", true},
		{"http://www.youtube.com/watch?v=abc", true},
		{"https://vimeo.com/12345", false},
		{"notes.txt", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := IsYouTubeURL(tt.input); got != tt.want {
			t.Errorf("IsYouTubeURL(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestResolve(t *testing.T) {
	path := writeFile(t, "doc.pdf", "%PDF-1.7")
	srcs, err := Resolve([]string{path, "https://youtu.be/abc"})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if len(srcs) != 2 {
		t.Fatalf("got %d sources", len(srcs))
	}
	if srcs[0].Type != pipeline.SourcePDF || srcs[1].Type != pipeline.SourceYouTube {
		t.Errorf("types = %q, %q", srcs[0].Type, srcs[1].Type)
	}

	if _, err := Resolve([]string{path, "missing.txt"}); err == nil {
		t.Error("unreadable input should fail the whole resolve")
	}
}
