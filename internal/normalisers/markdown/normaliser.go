// Package markdown normalises Markdown lessons. Headings and code are
// kept so the chunker can split on them.
package markdown

import (
	"context"
	"regexp"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/identity"
	"github.com/custodia-labs/groundwork/internal/normalisers/frontmatter"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

var (
	imageRe   = regexp.MustCompile(`!\[[^\]]*\]\([^)]*\)`)
	linkRe    = regexp.MustCompile(`\[([^\]]+)\]\([^)]*\)`)
	commentRe = regexp.MustCompile(`(?s)<!--.*?-->`)
	blankRe   = regexp.MustCompile(`\n{3,}`)
)

// Normaliser handles Markdown documents.
type Normaliser struct{}

// New creates a new Markdown normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".md", ".markdown"}
}

// Normalise strips front matter and link syntax. The title comes from
// front matter, then the first level-one heading, then the file name.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	matter, body, err := frontmatter.Split(raw.Content)
	if err != nil {
		return nil, domain.NewInvalidInput("front_matter", "%s: %v", raw.SourcePath, err)
	}

	content := simplify(string(body))

	title := matter.Title
	if title == "" {
		title = firstHeading(content)
	}
	if title == "" {
		title = domain.SlugTitle(raw.SourcePath)
	}

	metadata := matter.Metadata()
	metadata["format"] = "markdown"

	return &domain.Document{
		ID:               identity.DocumentID(raw.SourcePath),
		Content:          content,
		Title:            title,
		SourcePath:       raw.SourcePath,
		SectionHierarchy: matter.Hierarchy(raw.SourcePath),
		Metadata:         metadata,
	}, nil
}

// firstHeading returns the first "# " heading outside fenced code.
func firstHeading(content string) string {
	inFence := false
	for _, line := range strings.Split(content, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "```") || strings.HasPrefix(trimmed, "~~~") {
			inFence = !inFence
			continue
		}
		if !inFence && strings.HasPrefix(trimmed, "# ") {
			return strings.TrimSpace(strings.TrimPrefix(trimmed, "#"))
		}
	}
	return ""
}

// simplify removes markup that carries no text: images, HTML comments
// and link targets. Runs of blank lines are collapsed.
func simplify(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")
	content = commentRe.ReplaceAllString(content, "")
	content = imageRe.ReplaceAllString(content, "")
	content = linkRe.ReplaceAllString(content, "$1")
	content = blankRe.ReplaceAllString(content, "\n\n")
	return strings.TrimSpace(content)
}
