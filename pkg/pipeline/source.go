package pipeline

import (
	"fmt"
	"io"
)

// SourceType classifies a resolved input item.
type SourceType string

const (
	// SourceText is inline text supplied directly by the caller.
	SourceText SourceType = "text"
	// SourceFile is a local file of arbitrary type.
	SourceFile SourceType = "file"
	// SourceImage is an image file.
	SourceImage SourceType = "image"
	// SourcePDF is a PDF document.
	SourcePDF SourceType = "pdf"
	// SourceVideo is a video file.
	SourceVideo SourceType = "video"
	// SourceYouTube is a YouTube URL passed through to providers that
	// understand it natively.
	SourceYouTube SourceType = "youtube"
)

// ContentLoader lazily produces the bytes of a source. It is invoked at most
// once per plan assembly; sources that cannot produce content surface the
// error at planning time as a domain failure, not during API execution.
type ContentLoader func() (io.ReadCloser, error)

// Source is the resolved descriptor of one input item. Resolution (file
// stat-ing, URL probing, MIME sniffing) happens outside the core; the
// pipeline consumes sources read-only.
//
// A Source is immutable after construction. The content loader is the only
// deferred piece: it is how the planner pulls bytes for inline parts without
// the resolver reading every file eagerly.
type Source struct {
	// Type classifies the item.
	Type SourceType

	// Identifier is the resolver-assigned identity: a file path, a URL, or
	// a synthetic ID for inline text.
	Identifier string

	// MIMEType is the resolved MIME type, or "" when unknown.
	MIMEType string

	// SizeBytes is the resolved content size. Zero is valid for empty
	// sources; it is never negative.
	SizeBytes int64

	// Loader produces the content on demand. Nil for SourceYouTube, whose
	// identifier is the content.
	Loader ContentLoader
}

// Validate checks structural validity. Malformed sources are rejected at
// construction boundaries rather than deep inside the planner.
func (s Source) Validate() error {
	if s.Type == "" {
		return &ValidationError{Field: "type", Message: "source type cannot be empty"}
	}
	if s.Identifier == "" {
		return &ValidationError{Field: "identifier", Message: "source identifier cannot be empty"}
	}
	if s.SizeBytes < 0 {
		return &ValidationError{Field: "size_bytes", Message: fmt.Sprintf("negative size %d", s.SizeBytes)}
	}
	if s.Type != SourceYouTube && s.Loader == nil {
		return &ValidationError{Field: "loader", Message: "source has no readable content"}
	}
	return nil
}

// Content reads the full content of the source through its loader.
func (s Source) Content() ([]byte, error) {
	if s.Loader == nil {
		return nil, &ValidationError{Field: "loader", Message: fmt.Sprintf("source %q has no content loader", s.Identifier)}
	}
	rc, err := s.Loader()
	if err != nil {
		return nil, fmt.Errorf("loading source %q: %w", s.Identifier, err)
	}
	defer rc.Close()
	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("reading source %q: %w", s.Identifier, err)
	}
	return data, nil
}

// ValidationError reports malformed input data. It is raised at construction
// time, never deferred into later pipeline stages.
type ValidationError struct {
	// Field is the name of the invalid field.
	Field string

	// Message describes what is invalid about the field.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field %q: %s", e.Field, e.Message)
}
