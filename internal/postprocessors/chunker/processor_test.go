package chunker

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

func mustNew(t *testing.T, opts ...Option) *Processor {
	t.Helper()
	p, err := New(opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return p
}

func chunkText(t *testing.T, p *Processor, text string) []domain.Chunk {
	t.Helper()
	doc := &domain.Document{ID: "doc-1", Content: text, Metadata: map[string]any{"author": "ops"}}
	chunks, err := p.Process(context.Background(), doc, nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	return chunks
}

// assertCoverage checks that chunks are contiguous slices of text which,
// with overlaps removed, reconstruct it exactly.
func assertCoverage(t *testing.T, text string, chunks []domain.Chunk) {
	t.Helper()
	var b strings.Builder
	prevEnd := 0
	for i, c := range chunks {
		if c.Text != text[c.Span.Start:c.Span.End] {
			t.Fatalf("chunk %d text does not match its span", i)
		}
		if c.Span.Start > prevEnd {
			t.Fatalf("chunk %d starts at %d, leaving a gap after %d", i, c.Span.Start, prevEnd)
		}
		if c.Span.End <= prevEnd && i > 0 {
			t.Fatalf("chunk %d adds no new text", i)
		}
		b.WriteString(text[prevEnd:c.Span.End])
		prevEnd = c.Span.End
	}
	if b.String() != text {
		t.Fatalf("reconstruction differs from input: got %d bytes, want %d", b.Len(), len(text))
	}
}

func TestNew(t *testing.T) {
	t.Run("default values", func(t *testing.T) {
		p := mustNew(t)
		if p.TargetSize() != DefaultTargetSize {
			t.Errorf("expected target %d, got %d", DefaultTargetSize, p.TargetSize())
		}
		if p.Overlap() != DefaultOverlap {
			t.Errorf("expected overlap %d, got %d", DefaultOverlap, p.Overlap())
		}
	})

	t.Run("custom values", func(t *testing.T) {
		p := mustNew(t, WithTargetSize(500), WithOverlap(50))
		if p.TargetSize() != 500 || p.Overlap() != 50 {
			t.Errorf("expected 500/50, got %d/%d", p.TargetSize(), p.Overlap())
		}
	})

	for _, tc := range []struct{ target, overlap int }{{100, 100}, {100, 150}, {0, 0}, {100, -1}} {
		t.Run(fmt.Sprintf("rejects target %d overlap %d", tc.target, tc.overlap), func(t *testing.T) {
			_, err := New(WithTargetSize(tc.target), WithOverlap(tc.overlap))
			if !errors.Is(err, domain.ErrInvalidInput) {
				t.Errorf("expected invalid input error, got %v", err)
			}
		})
	}
}

func TestProcessor_Name(t *testing.T) {
	if name := mustNew(t).Name(); name != "chunker" {
		t.Errorf("expected name 'chunker', got '%s'", name)
	}
}

func TestProcess_EmptyContent(t *testing.T) {
	p := mustNew(t)
	for _, text := range []string{"", "   \n\n\t"} {
		if chunks := chunkText(t, p, text); len(chunks) != 0 {
			t.Errorf("expected 0 chunks for %q, got %d", text, len(chunks))
		}
	}
}

func TestProcess_ShortContentIsOneChunk(t *testing.T) {
	text := "# Title\n\nShort body."
	chunks := chunkText(t, mustNew(t), text)

	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Text != text || chunks[0].Ordinal != 0 || chunks[0].DocumentID != "doc-1" {
		t.Errorf("unexpected chunk: %+v", chunks[0])
	}
	if chunks[0].Metadata["author"] != "ops" {
		t.Errorf("expected inherited metadata, got %v", chunks[0].Metadata)
	}
}

func TestProcess_TwoSectionsUnderTarget(t *testing.T) {
	text := "## A\n" + strings.Repeat("a", 200) + "\n## B\n" + strings.Repeat("b", 200)
	chunks := chunkText(t, mustNew(t, WithTargetSize(500), WithOverlap(50)), text)

	if len(chunks) != 1 {
		t.Fatalf("expected sections to share one chunk, got %d", len(chunks))
	}
}

func TestProcess_TwoSectionsSplitAtHeading(t *testing.T) {
	text := "## A\n" + strings.Repeat("a", 300) + "\n## B\n" + strings.Repeat("b", 300)
	chunks := chunkText(t, mustNew(t, WithTargetSize(500), WithOverlap(50)), text)

	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	first, second := chunks[0].Text, chunks[1].Text
	if !strings.HasPrefix(first, "## A\n") || strings.Contains(first, "## B") {
		t.Errorf("first chunk should hold only section A: %q", first)
	}
	if second[:50] != first[len(first)-50:] {
		t.Errorf("second chunk should start with the last 50 characters of the first")
	}
	if !strings.HasPrefix(second[50:], "## B\n") {
		t.Errorf("second chunk should continue with the B heading, got %q", second[50:60])
	}
	assertCoverage(t, text, chunks)
}

func TestProcess_CoverageAndBound(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	words := []string{"robot", "joint", "torque", "sensor", "frame", "the", "a", "of", "controller", "kinematics"}

	for docN := 0; docN < 20; docN++ {
		var b strings.Builder
		for s := 0; s < 1+rng.Intn(4); s++ {
			fmt.Fprintf(&b, "## Section %d\n\n", s)
			for para := 0; para < 1+rng.Intn(3); para++ {
				if rng.Intn(3) == 0 {
					fmt.Fprintf(&b, "### Detail %d.%d\n\n", s, para)
				}
				for sentence := 0; sentence < 1+rng.Intn(6); sentence++ {
					for w := 0; w < 3+rng.Intn(12); w++ {
						if w > 0 {
							b.WriteByte(' ')
						}
						b.WriteString(words[rng.Intn(len(words))])
					}
					b.WriteString(". ")
				}
				b.WriteString("\n\n")
			}
		}
		text := b.String()

		for _, cfg := range []struct{ target, overlap int }{{120, 20}, {300, 50}, {60, 0}} {
			p := mustNew(t, WithTargetSize(cfg.target), WithOverlap(cfg.overlap))
			chunks := chunkText(t, p, text)
			assertCoverage(t, text, chunks)
			for i, c := range chunks {
				if c.Ordinal != i {
					t.Fatalf("doc %d: chunk %d has ordinal %d", docN, i, c.Ordinal)
				}
				if n := utf8.RuneCountInString(c.Text); n > cfg.target {
					t.Fatalf("doc %d target %d: chunk %d has %d characters", docN, cfg.target, i, n)
				}
			}
		}
	}
}

func TestProcess_FencedCodeIsAtomic(t *testing.T) {
	fence := "```go\n" + strings.Repeat("fmt.Println(\"hello world. again\")\n\n# not a heading\n", 8) + "```\n"
	text := "Intro paragraph sentence one. Sentence two.\n\n" + fence + "\nAfter the code there is more prose.\n"
	p := mustNew(t, WithTargetSize(200), WithOverlap(20))

	chunks := chunkText(t, p, text)
	assertCoverage(t, text, chunks)

	blocks := FencedBlocks(text)
	if len(blocks) != 1 {
		t.Fatalf("expected 1 fenced block, got %d", len(blocks))
	}
	block := blocks[0]

	holders := 0
	prevEnd := 0
	for i, c := range chunks {
		if strings.Contains(c.Text, fence) {
			holders++
		}
		for _, edge := range []int{prevEnd, c.Span.End} {
			if edge > block.Start && edge < block.End {
				t.Errorf("chunk %d boundary %d falls inside the fenced block [%d,%d)", i, edge, block.Start, block.End)
			}
		}
		if i > 0 && c.Span.Start > block.Start && c.Span.Start < block.End {
			t.Errorf("chunk %d overlap starts inside the fenced block", i)
		}
		prevEnd = c.Span.End
	}
	if holders != 1 {
		t.Errorf("expected exactly one chunk to hold the whole fenced block, got %d", holders)
	}
}

func TestProcess_UnbreakableRunIsSingleChunk(t *testing.T) {
	text := strings.Repeat("x", 1200)
	chunks := chunkText(t, mustNew(t, WithTargetSize(500), WithOverlap(50)), text)

	if len(chunks) != 1 || chunks[0].Text != text {
		t.Fatalf("expected the raw text as one chunk, got %d chunks", len(chunks))
	}
}

func TestProcess_MultibyteOverlap(t *testing.T) {
	text := strings.Repeat("héllo wörld naïve café. ", 40)
	p := mustNew(t, WithTargetSize(50), WithOverlap(7))

	chunks := chunkText(t, p, text)
	assertCoverage(t, text, chunks)
	for i, c := range chunks {
		if !utf8.ValidString(c.Text) {
			t.Fatalf("chunk %d is not valid UTF-8", i)
		}
		if n := utf8.RuneCountInString(c.Text); n > 50 {
			t.Fatalf("chunk %d has %d characters", i, n)
		}
	}
}

func TestProcess_LeadingWhitespaceJoinsFirstChunk(t *testing.T) {
	text := "\n\n\n## A\n" + strings.Repeat("a ", 40)
	chunks := chunkText(t, mustNew(t, WithTargetSize(30), WithOverlap(5)), text)

	assertCoverage(t, text, chunks)
	for i, c := range chunks {
		if strings.TrimSpace(c.Text) == "" {
			t.Errorf("chunk %d is whitespace only", i)
		}
	}
}

func TestProcess_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := mustNew(t).Process(ctx, &domain.Document{Content: "text"}, nil)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
}

func TestProcess_CustomStrategies(t *testing.T) {
	commas := Strategy{Name: "comma", Split: func(text string, target int) ([]string, bool) {
		if len(text) <= target {
			return nil, false
		}
		var cuts []int
		for i := range text {
			if text[i] == ',' {
				cuts = append(cuts, i+1)
			}
		}
		return splitAtCuts(text, cuts)
	}}
	p := mustNew(t, WithTargetSize(10), WithOverlap(0), WithStrategies(commas))

	chunks := chunkText(t, p, "aaaa,bbbb,cccc,dddd")
	if len(chunks) != 2 || chunks[0].Text != "aaaa,bbbb," || chunks[1].Text != "cccc,dddd" {
		t.Errorf("unexpected chunks: %+v", chunks)
	}
}
