package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/identity"
	"github.com/custodia-labs/groundwork/internal/normalisers/frontmatter"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML documents.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".html", ".htm"}
}

// Normalise converts an HTML page to text. The title comes from <title>,
// then the first <h1>, then the file name. A <meta name="module"> tag
// overrides the module taken from the directory.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	rawContent := string(raw.Content)
	content := stripHTML(rawContent)

	title := extractTitle(rawContent)
	if title == "" {
		title = firstHeading(content)
	}
	if title == "" {
		title = domain.SlugTitle(raw.SourcePath)
	}

	matter := &frontmatter.Matter{Module: metaContent(rawContent, "module")}
	metadata := matter.Metadata()
	metadata["format"] = "html"
	if desc := metaContent(rawContent, "description"); desc != "" {
		metadata["description"] = desc
	}

	return &domain.Document{
		ID:               identity.DocumentID(raw.SourcePath),
		Content:          content,
		Title:            title,
		SourcePath:       raw.SourcePath,
		SectionHierarchy: matter.Hierarchy(raw.SourcePath),
		Metadata:         metadata,
	}, nil
}

// Pre-compiled regular expressions for HTML parsing performance.
var (
	titleTag          = regexp.MustCompile(`(?is)<title[^>]*>(.*?)</title>`)
	metaTag           = regexp.MustCompile(`(?is)<meta\s[^>]*>`)
	metaName          = regexp.MustCompile(`(?i)\bname\s*=\s*["']([^"']*)["']`)
	metaContentAttr   = regexp.MustCompile(`(?i)\bcontent\s*=\s*["']([^"']*)["']`)
	headingTag        = regexp.MustCompile(`(?is)<h([1-6])[^>]*>(.*?)</h[1-6]>`)
	scriptTag         = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleTag          = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	noscriptTag       = regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`)
	headTag           = regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`)
	svgTag            = regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`)
	htmlComments      = regexp.MustCompile(`(?s)<!--.*?-->`)
	blockElements     = regexp.MustCompile(`(?i)</(p|div|li|tr|blockquote|pre|table|section|article)>`)
	openBlockElements = regexp.MustCompile(`(?i)<(p|div|li|tr|blockquote|pre|table|section|article)[^>]*>`)
	brTags            = regexp.MustCompile(`(?i)<br\s*/?>`)
	hrTags            = regexp.MustCompile(`(?i)<hr\s*/?>`)
	allTags           = regexp.MustCompile(`<[^>]+>`)
	multiSpaces       = regexp.MustCompile(`[ \t]+`)
)

// extractTitle returns the decoded <title> text, or "".
func extractTitle(content string) string {
	matches := titleTag.FindStringSubmatch(content)
	if len(matches) < 2 {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(matches[1]))
}

// metaContent returns the content attribute of <meta name="name">.
func metaContent(content, name string) string {
	for _, tag := range metaTag.FindAllString(content, -1) {
		n := metaName.FindStringSubmatch(tag)
		if len(n) < 2 || !strings.EqualFold(n[1], name) {
			continue
		}
		if c := metaContentAttr.FindStringSubmatch(tag); len(c) == 2 {
			return strings.TrimSpace(html.UnescapeString(c[1]))
		}
	}
	return ""
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// stripHTML removes tags and returns one paragraph or heading per line.
// Headings become "#"-prefixed lines.
func stripHTML(content string) string {
	content = strings.ReplaceAll(content, "\r\n", "\n")

	content = scriptTag.ReplaceAllString(content, "")
	content = styleTag.ReplaceAllString(content, "")
	content = noscriptTag.ReplaceAllString(content, "")
	content = headTag.ReplaceAllString(content, "")
	content = svgTag.ReplaceAllString(content, "")
	content = htmlComments.ReplaceAllString(content, "")

	content = headingTag.ReplaceAllStringFunc(content, func(h string) string {
		m := headingTag.FindStringSubmatch(h)
		text := strings.Join(strings.Fields(allTags.ReplaceAllString(m[2], " ")), " ")
		if text == "" {
			return "\n"
		}
		return "\n\n" + strings.Repeat("#", int(m[1][0]-'0')) + " " + text + "\n\n"
	})

	content = openBlockElements.ReplaceAllString(content, "\n")
	content = blockElements.ReplaceAllString(content, "\n")
	content = brTags.ReplaceAllString(content, "\n")
	content = hrTags.ReplaceAllString(content, "\n")
	content = allTags.ReplaceAllString(content, "")
	content = html.UnescapeString(content)
	content = multiSpaces.ReplaceAllString(content, " ")

	var result []string
	for _, line := range strings.Split(content, "\n") {
		if line = strings.TrimSpace(line); line != "" {
			result = append(result, line)
		}
	}
	return strings.Join(result, "\n\n")
}
