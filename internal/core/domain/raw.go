package domain

import (
	"path"
	"strings"
	"time"
)

// RawDocument is a file as read from a document source, before normalisation.
type RawDocument struct {
	// SourcePath is the slash-separated path relative to the source root.
	SourcePath string

	// Content is the file content.
	Content []byte

	// ModifiedAt is the file modification time.
	ModifiedAt time.Time
}

// Extension returns the lower-case extension of SourcePath including the dot.
func (r *RawDocument) Extension() string {
	return strings.ToLower(path.Ext(r.SourcePath))
}
