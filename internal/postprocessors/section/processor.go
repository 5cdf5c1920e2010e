// Package section stamps each chunk with the payload fields that depend on
// its position: section heading, chunk index and chunk count.
package section

import (
	"context"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/postprocessors/chunker"
)

// Metadata keys written by the processor.
const (
	KeySection     = domain.PayloadKeySection
	KeyChunkIndex  = domain.PayloadKeyChunkIndex
	KeyTotalChunks = domain.PayloadKeyTotalChunks
	KeyModule      = domain.PayloadKeyModule
	KeyTitle       = domain.PayloadKeyTitle
	KeySource      = domain.PayloadKeySource
)

// Processor annotates chunks produced by the chunker.
// It implements the PostProcessor interface.
type Processor struct{}

// New creates a section annotator.
func New() *Processor {
	return &Processor{}
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "section"
}

// Process sets the section of each chunk to the heading in effect where
// the chunk's own text begins, ignoring the overlap it carries. Chunks
// before the first heading use the first heading they contain, then the
// innermost entry of the document's section hierarchy.
func (p *Processor) Process(_ context.Context, doc *domain.Document, chunks []domain.Chunk) ([]domain.Chunk, error) {
	headings := chunker.Headings(doc.Content)

	fallback := ""
	if n := len(doc.SectionHierarchy); n > 0 {
		fallback = doc.SectionHierarchy[n-1]
	}

	for i := range chunks {
		c := &chunks[i]
		ownStart := c.Span.Start
		if i > 0 {
			ownStart = chunks[i-1].Span.End
		}

		if c.Metadata == nil {
			c.Metadata = make(map[string]any)
		}
		c.Metadata[KeySection] = sectionAt(headings, ownStart, c.Span.End, fallback)
		c.Metadata[KeyChunkIndex] = c.Ordinal
		c.Metadata[KeyTotalChunks] = len(chunks)
		c.Metadata[KeyModule] = doc.Module()
		c.Metadata[KeyTitle] = doc.Title
		c.Metadata[KeySource] = doc.SourcePath
	}
	return chunks, nil
}

func sectionAt(headings []chunker.Heading, start, end int, fallback string) string {
	current := ""
	for _, h := range headings {
		if h.Offset > start {
			if current == "" && h.Offset < end {
				return h.Text
			}
			break
		}
		current = h.Text
	}
	if current == "" {
		return fallback
	}
	return current
}
