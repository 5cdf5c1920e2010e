package plaintext

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/identity"
)

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".txt"}, New().SupportedExtensions())
}

func TestNormalise_Success(t *testing.T) {
	raw := &domain.RawDocument{
		SourcePath: "appendix/Glossary Terms.txt",
		Content:    []byte("goroutine: a lightweight thread.\r\n"),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, identity.DocumentID(raw.SourcePath), doc.ID)
	assert.Equal(t, "glossary-terms", doc.Title)
	assert.Equal(t, "goroutine: a lightweight thread.", doc.Content)
	assert.Equal(t, []string{"appendix"}, doc.SectionHierarchy)
	assert.Equal(t, "text", doc.Metadata["format"])
}

func TestNormalise_FrontMatter(t *testing.T) {
	raw := &domain.RawDocument{
		SourcePath: "notes.txt",
		Content:    []byte("---\ntitle: Release notes\nsections: [Appendix, Releases]\n---\nv1.0 shipped."),
	}

	doc, err := New().Normalise(context.Background(), raw)
	require.NoError(t, err)

	assert.Equal(t, "Release notes", doc.Title)
	assert.Equal(t, []string{"Appendix", "Releases"}, doc.SectionHierarchy)
	assert.Equal(t, "v1.0 shipped.", doc.Content)
}

func TestNormalise_NilDocument(t *testing.T) {
	doc, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, doc)
}

func TestNormalise_EmptyContent(t *testing.T) {
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{SourcePath: "empty.txt"})
	require.NoError(t, err)
	assert.Empty(t, doc.Content)
	assert.Nil(t, doc.SectionHierarchy)
}
