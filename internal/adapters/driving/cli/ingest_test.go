package cli

import (
	"bytes"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func TestIngestCmd_Use(t *testing.T) {
	assert.Equal(t, "ingest [path...]", ingestCmd.Use)
}

func TestIngestCmd_HasFlags(t *testing.T) {
	require.NotNil(t, ingestCmd.Flags().Lookup("changed-only"))
	watch := ingestCmd.Flags().Lookup("watch")
	require.NotNil(t, watch)
	assert.Equal(t, "w", watch.Shorthand)
}

func TestIngestCmd_IngestsEverything(t *testing.T) {
	ts := setupTestServices(t)

	out, err := execute(t, "", "ingest")

	require.NoError(t, err)
	require.Len(t, ts.ingest.allOpts, 1)
	assert.False(t, ts.ingest.allOpts[0].ChangedOnly)
	assert.NotNil(t, ts.ingest.allOpts[0].Progress)
	assert.Contains(t, out, "Ingested 2 documents (7 chunks), 0 unchanged, 0 removed")
}

func TestIngestCmd_ChangedOnly(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "", "ingest", "--changed-only")

	require.NoError(t, err)
	require.Len(t, ts.ingest.allOpts, 1)
	assert.True(t, ts.ingest.allOpts[0].ChangedOnly)
}

func TestIngestCmd_Paths(t *testing.T) {
	ts := setupTestServices(t)

	_, err := execute(t, "", "ingest", "ros2/topics.md", "gazebo/worlds.md")

	require.NoError(t, err)
	assert.Empty(t, ts.ingest.allOpts)
	assert.Equal(t, [][]string{{"ros2/topics.md", "gazebo/worlds.md"}}, ts.ingest.paths())
}

func TestIngestCmd_PartialFailure(t *testing.T) {
	ts := setupTestServices(t)
	failure := domain.DocumentFailure{SourcePath: "ros2/broken.md", Err: errors.New("invalid front matter")}
	ts.ingest.report = &domain.IngestReport{Documents: 1, Chunks: 3, Failed: []domain.DocumentFailure{failure}}
	ts.ingest.err = &domain.PartialIngestError{Failures: []domain.DocumentFailure{failure}}

	out, err := execute(t, "", "ingest")

	require.Error(t, err)
	assert.Equal(t, "1 documents failed", err.Error())
	assert.Contains(t, out, "Ingested 1 documents")
	assert.Contains(t, out, "FAILED ros2/broken.md: invalid front matter")
}

func TestIngestCmd_FatalError(t *testing.T) {
	ts := setupTestServices(t)
	ts.ingest.report = nil
	ts.ingest.err = &domain.IndexIntegrityError{Collection: "corpus", Reason: "dimension mismatch"}

	_, err := execute(t, "", "ingest")

	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrIndexIntegrity)
	assert.Contains(t, err.Error(), "ingest failed")
}

func TestIngestCmd_Watch(t *testing.T) {
	ts := setupTestServices(t)
	ts.watcher.changes = [][]string{{"ros2/topics.md"}, {"gazebo/worlds.md", "gazebo/sensors.md"}}

	out, err := execute(t, "", "ingest", "--watch")

	require.NoError(t, err)
	assert.Len(t, ts.ingest.allOpts, 1)
	assert.Equal(t, [][]string{{"ros2/topics.md"}, {"gazebo/worlds.md", "gazebo/sensors.md"}}, ts.ingest.paths())
	assert.Contains(t, out, "Watching for changes")
}

func TestIngestCmd_WatchKeepsGoingAfterFailure(t *testing.T) {
	ts := setupTestServices(t)
	ts.watcher.changes = [][]string{{"ros2/topics.md"}, {"ros2/nodes.md"}}
	ts.ingest.pathsErr = errors.New("embedding service down")

	out, err := execute(t, "", "ingest", "--watch")

	require.NoError(t, err)
	assert.Len(t, ts.ingest.paths(), 2)
	assert.Equal(t, 2, strings.Count(out, "Error: ingest failed: embedding service down"))
}

func TestProgressLine_SilentWhenNotTerminal(t *testing.T) {
	buf := new(bytes.Buffer)
	p := newProgressLine(buf)

	p.update(1, 3, "ros2/topics.md")
	p.done()

	assert.Empty(t, buf.String())
}

func TestProgressLine_RewritesLine(t *testing.T) {
	buf := new(bytes.Buffer)
	p := &progressLine{w: buf, enabled: true}

	p.update(1, 2, "ros2/topics.md")
	p.update(2, 2, "ros2/nodes.md")
	p.done()

	assert.Contains(t, buf.String(), "[1/2] ros2/topics.md")
	assert.Contains(t, buf.String(), "\r\033[K[2/2] ros2/nodes.md")
	assert.True(t, bytes.HasSuffix(buf.Bytes(), []byte("\r\033[K")))
}
