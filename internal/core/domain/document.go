package domain

import (
	"path"
	"strings"
	"time"
	"unicode"
)

// Document is one external content unit after loading.
// It is immutable once created; re-ingestion replaces it wholesale.
type Document struct {
	// ID is stable for a given SourcePath.
	ID string

	// Content is the raw text of the document.
	Content string

	// Title is the human-readable title.
	// Loaders default it to SlugTitle(SourcePath) when the source has none.
	Title string

	// SourcePath is the location relative to the document source root.
	SourcePath string

	// SectionHierarchy lists enclosing sections, outermost first.
	// The first element is treated as the document's module.
	SectionHierarchy []string

	// Metadata holds extra key-value pairs supplied by the source.
	Metadata map[string]any
}

// Module returns the outermost section, or "" if the document has none.
func (d *Document) Module() string {
	if d == nil || len(d.SectionHierarchy) == 0 {
		return ""
	}
	return d.SectionHierarchy[0]
}

// CharSpan is a half-open byte range [Start, End) in a document's Content.
type CharSpan struct {
	Start int
	End   int
}

// Len returns the span length.
func (s CharSpan) Len() int {
	return s.End - s.Start
}

// Chunk is an ordered slice of a document used as the unit of retrieval.
type Chunk struct {
	// DocumentID links to the owning Document.
	DocumentID string

	// Ordinal is the zero-based, gap-free position within the document.
	Ordinal int

	// Text is the chunk content, including any overlap carried
	// from the previous chunk.
	Text string

	// Span is the range of the document this chunk covers, overlap included.
	Span CharSpan

	// Metadata is inherited from the document and stamped by post-processors.
	Metadata map[string]any
}

// DocumentRecord is the ingestion manifest entry for one document.
type DocumentRecord struct {
	ID           string
	Title        string
	SourcePath   string
	Module       string
	ContentHash  string
	ChunkCount   int
	ModelVersion string
	IngestedAt   time.Time
}

// SlugTitle derives a title from a source path: the base name without
// extension, lower-cased, with runs of non-alphanumerics collapsed to "-".
func SlugTitle(sourcePath string) string {
	base := path.Base(strings.ReplaceAll(sourcePath, "\\", "/"))
	if ext := path.Ext(base); ext != "" && ext != base {
		base = strings.TrimSuffix(base, ext)
	}

	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(base) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash && b.Len() > 0 {
			b.WriteByte('-')
			dash = true
		}
	}
	slug := strings.TrimSuffix(b.String(), "-")
	if slug == "" {
		return "untitled"
	}
	return slug
}
