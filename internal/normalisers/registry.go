package normalisers

import (
	"sort"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/normalisers/docx"
	"github.com/custodia-labs/groundwork/internal/normalisers/html"
	"github.com/custodia-labs/groundwork/internal/normalisers/markdown"
	"github.com/custodia-labs/groundwork/internal/normalisers/plaintext"
)

// Registry maps file extensions to normalisers.
type Registry struct {
	byExt map[string]driven.Normaliser
}

// NewRegistry registers each normaliser for its extensions. A later
// normaliser replaces an earlier one for the same extension.
func NewRegistry(ns ...driven.Normaliser) *Registry {
	r := &Registry{byExt: make(map[string]driven.Normaliser)}
	for _, n := range ns {
		for _, ext := range n.SupportedExtensions() {
			r.byExt[strings.ToLower(ext)] = n
		}
	}
	return r
}

// Default returns the Markdown, HTML, DOCX and plain text normalisers.
func Default() *Registry {
	return NewRegistry(markdown.New(), html.New(), docx.New(), plaintext.New())
}

// For returns the normaliser for an extension such as ".md".
func (r *Registry) For(ext string) (driven.Normaliser, bool) {
	n, ok := r.byExt[strings.ToLower(ext)]
	return n, ok
}

// Extensions lists the registered extensions in sorted order.
func (r *Registry) Extensions() []string {
	out := make([]string, 0, len(r.byExt))
	for ext := range r.byExt {
		out = append(out, ext)
	}
	sort.Strings(out)
	return out
}
