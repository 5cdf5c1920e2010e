package plaintext

import (
	"context"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/identity"
	"github.com/custodia-labs/groundwork/internal/normalisers/frontmatter"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles plain text documents.
type Normaliser struct{}

// New creates a new plain text normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".txt"}
}

// Normalise converts a raw document to a Document.
// Front matter is honoured the same way as for Markdown.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	matter, body, err := frontmatter.Split(raw.Content)
	if err != nil {
		return nil, domain.NewInvalidInput("front_matter", "%s: %v", raw.SourcePath, err)
	}

	title := matter.Title
	if title == "" {
		title = domain.SlugTitle(raw.SourcePath)
	}

	metadata := matter.Metadata()
	metadata["format"] = "text"

	return &domain.Document{
		ID:               identity.DocumentID(raw.SourcePath),
		Content:          strings.TrimSpace(strings.ReplaceAll(string(body), "\r\n", "\n")),
		Title:            title,
		SourcePath:       raw.SourcePath,
		SectionHierarchy: matter.Hierarchy(raw.SourcePath),
		Metadata:         metadata,
	}, nil
}
