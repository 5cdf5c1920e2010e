package html

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/identity"
)

func normalise(t *testing.T, sourcePath, content string) *domain.Document {
	t.Helper()
	doc, err := New().Normalise(context.Background(), &domain.RawDocument{
		SourcePath: sourcePath,
		Content:    []byte(content),
	})
	require.NoError(t, err)
	return doc
}

func TestSupportedExtensions(t *testing.T) {
	assert.Equal(t, []string{".html", ".htm"}, New().SupportedExtensions())
}

func TestNormalise_NilDocument(t *testing.T) {
	_, err := New().Normalise(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestNormalise_Page(t *testing.T) {
	doc := normalise(t, "ros2/topics.html", `<html>
<head><title>Topics &amp; Messages</title><style>p{color:red}</style></head>
<body>
<h1>Topics</h1>
<p>Nodes <b>publish</b> messages.</p>
<script>track()</script>
<h2 id="qos">Quality of <em>service</em></h2>
<p>Reliable or best effort.</p>
</body></html>`)

	assert.Equal(t, identity.DocumentID("ros2/topics.html"), doc.ID)
	assert.Equal(t, "Topics & Messages", doc.Title)
	assert.Equal(t, "# Topics\n\nNodes publish messages.\n\n## Quality of service\n\nReliable or best effort.", doc.Content)
	assert.Equal(t, []string{"ros2"}, doc.SectionHierarchy)
	assert.Equal(t, "html", doc.Metadata["format"])
}

func TestNormalise_TitleFallbacks(t *testing.T) {
	assert.Equal(t, "Launch Files", normalise(t, "ros2/launch.html", "<h1>Launch Files</h1><p>x</p>").Title)
	assert.Equal(t, "launch-files", normalise(t, "ros2/Launch_Files.htm", "<p>x</p>").Title)
}

func TestNormalise_MetaTags(t *testing.T) {
	doc := normalise(t, "week1/intro.html", `<html><head>
<meta name="module" content="ros2">
<meta content="Getting started" name="description">
</head><body><p>Hello</p></body></html>`)

	assert.Equal(t, []string{"ros2"}, doc.SectionHierarchy)
	assert.Equal(t, "Getting started", doc.Metadata["description"])
}

func TestStripHTML_Entities(t *testing.T) {
	assert.Equal(t, "a < b\n\nc", stripHTML("<p>a &lt; b</p><br/>c"))
}
