// Package docx normalises Word handouts. Paragraph text is extracted from
// word/document.xml; paragraphs styled as headings become Markdown
// headings so the section chunker can split on them.
package docx

import (
	"archive/zip"
	"bytes"
	"context"
	"encoding/xml"
	"fmt"
	"io"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/identity"
	"github.com/custodia-labs/groundwork/internal/normalisers/frontmatter"
)

// Ensure Normaliser implements the interface.
var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles DOCX documents.
type Normaliser struct{}

// New creates a new DOCX normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedExtensions returns the extensions this normaliser handles.
func (n *Normaliser) SupportedExtensions() []string {
	return []string{".docx"}
}

// Normalise extracts the document text. The title comes from the core
// properties, then the first heading, then the file name. The module is
// read from the subject property when set.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*domain.Document, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	reader, err := zip.NewReader(bytes.NewReader(raw.Content), int64(len(raw.Content)))
	if err != nil {
		return nil, domain.NewInvalidInput("content", "%s: not a docx archive: %v", raw.SourcePath, err)
	}

	body, err := readPart(reader, "word/document.xml")
	if err != nil {
		return nil, domain.NewInvalidInput("content", "%s: %v", raw.SourcePath, err)
	}
	content, err := parseDocumentXML(body)
	if err != nil {
		return nil, domain.NewInvalidInput("content", "%s: %v", raw.SourcePath, err)
	}

	props := readCoreProperties(reader)
	title := props.Title
	if title == "" {
		title = firstHeading(content)
	}
	if title == "" {
		title = domain.SlugTitle(raw.SourcePath)
	}

	matter := &frontmatter.Matter{Module: props.Subject}
	metadata := matter.Metadata()
	metadata["format"] = "docx"
	if props.Creator != "" {
		metadata["author"] = props.Creator
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

func readPart(reader *zip.Reader, name string) ([]byte, error) {
	f, err := reader.Open(name)
	if err != nil {
		return nil, fmt.Errorf("missing %s", name)
	}
	defer f.Close()
	return io.ReadAll(f)
}

// documentXML represents the structure of word/document.xml.
type documentXML struct {
	Body struct {
		Paragraphs []paragraph `xml:"p"`
	} `xml:"body"`
}

type paragraph struct {
	Props struct {
		Style struct {
			Val string `xml:"val,attr"`
		} `xml:"pStyle"`
	} `xml:"pPr"`
	Runs []run `xml:"r"`
}

type run struct {
	Text []string `xml:"t"`
}

// parseDocumentXML joins the runs of each paragraph. Empty paragraphs
// are dropped and paragraphs are separated by a blank line.
func parseDocumentXML(content []byte) (string, error) {
	var doc documentXML
	if err := xml.Unmarshal(content, &doc); err != nil {
		return "", fmt.Errorf("parse document.xml: %w", err)
	}

	var paras []string
	for _, p := range doc.Body.Paragraphs {
		var b strings.Builder
		for _, r := range p.Runs {
			for _, t := range r.Text {
				b.WriteString(t)
			}
		}
		text := strings.TrimSpace(b.String())
		if text == "" {
			continue
		}
		if level := headingLevel(p.Props.Style.Val); level > 0 {
			text = strings.Repeat("#", level) + " " + text
		}
		paras = append(paras, text)
	}
	return strings.Join(paras, "\n\n"), nil
}

// headingLevel maps the built-in styles Title and Heading1..Heading6.
func headingLevel(style string) int {
	if style == "Title" {
		return 1
	}
	rest, ok := strings.CutPrefix(style, "Heading")
	if !ok || len(rest) != 1 || rest[0] < '1' || rest[0] > '6' {
		return 0
	}
	return int(rest[0] - '0')
}

func firstHeading(content string) string {
	for _, line := range strings.Split(content, "\n") {
		if strings.HasPrefix(line, "# ") {
			return strings.TrimSpace(line[2:])
		}
	}
	return ""
}

// coreProperties is the subset of docProps/core.xml we use.
type coreProperties struct {
	Title   string `xml:"title"`
	Subject string `xml:"subject"`
	Creator string `xml:"creator"`
}

// readCoreProperties returns empty properties when the part is missing
// or malformed.
func readCoreProperties(reader *zip.Reader) coreProperties {
	var props coreProperties
	data, err := readPart(reader, "docProps/core.xml")
	if err != nil {
		return props
	}
	if err := xml.Unmarshal(data, &props); err != nil {
		return coreProperties{}
	}
	props.Title = strings.TrimSpace(props.Title)
	props.Subject = strings.TrimSpace(props.Subject)
	props.Creator = strings.TrimSpace(props.Creator)
	return props
}
