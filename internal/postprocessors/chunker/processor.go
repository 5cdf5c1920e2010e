// Package chunker splits documents into bounded, overlapping chunks along
// semantic boundaries.
package chunker

import (
	"context"
	"maps"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/custodia-labs/groundwork/internal/core/domain"
)

// DefaultTargetSize is the default maximum chunk length in characters.
const DefaultTargetSize = 1000

// DefaultOverlap is the default number of characters repeated at the head
// of each chunk after the first.
const DefaultOverlap = 200

// Processor splits document content into chunks.
// It implements the PostProcessor interface.
type Processor struct {
	targetSize int
	overlap    int
	strategies []Strategy
}

// Option configures the chunker processor.
type Option func(*Processor)

// WithTargetSize sets the maximum chunk length in characters.
func WithTargetSize(size int) Option {
	return func(p *Processor) {
		p.targetSize = size
	}
}

// WithOverlap sets the overlap between chunks in characters.
func WithOverlap(overlap int) Option {
	return func(p *Processor) {
		p.overlap = overlap
	}
}

// WithStrategies replaces the boundary strategies, highest priority first.
func WithStrategies(strategies ...Strategy) Option {
	return func(p *Processor) {
		p.strategies = strategies
	}
}

// New creates a chunker. It returns an InvalidInputError when the
// overlap is not smaller than the target size.
func New(opts ...Option) (*Processor, error) {
	p := &Processor{
		targetSize: DefaultTargetSize,
		overlap:    DefaultOverlap,
		strategies: DefaultStrategies(),
	}
	for _, opt := range opts {
		opt(p)
	}

	cfg := domain.ChunkingSettings{TargetSize: p.targetSize, Overlap: p.overlap}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

// Name returns the processor name.
func (p *Processor) Name() string {
	return "chunker"
}

// TargetSize returns the configured maximum chunk length.
func (p *Processor) TargetSize() int {
	return p.targetSize
}

// Overlap returns the configured overlap.
func (p *Processor) Overlap() int {
	return p.overlap
}

// Process splits the document content into chunks.
// Input chunks are ignored; this processor creates new chunks from document content.
func (p *Processor) Process(ctx context.Context, doc *domain.Document, _ []domain.Chunk) ([]domain.Chunk, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	spans := p.Spans(doc.Content)
	chunks := make([]domain.Chunk, 0, len(spans))
	for i, s := range spans {
		chunks = append(chunks, domain.Chunk{
			DocumentID: doc.ID,
			Ordinal:    i,
			Text:       doc.Content[s.Start:s.End],
			Span:       domain.CharSpan{Start: s.Start, End: s.End},
			Metadata:   maps.Clone(doc.Metadata),
		})
	}
	return chunks, nil
}

// Spans returns the chunk spans for text, overlap included. Empty or
// whitespace-only text yields no spans.
func (p *Processor) Spans(text string) []Span {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	pieces := p.split(text, Span{Start: 0, End: len(text)}, p.strategies)
	return p.accumulate(text, pieces)
}

// split breaks s into pieces that fit the target size, trying the
// strategies in order. A piece no remaining strategy can split is kept
// whole, which is how fenced code and unbroken token runs stay atomic.
func (p *Processor) split(text string, s Span, strategies []Strategy) []Span {
	for i, strategy := range strategies {
		pieces, ok := strategy.Split(text[s.Start:s.End], p.targetSize)
		if !ok {
			continue
		}
		var out []Span
		off := s.Start
		for _, piece := range pieces {
			ps := Span{Start: off, End: off + len(piece)}
			off = ps.End
			if runeLen(piece) <= p.targetSize {
				out = append(out, ps)
				continue
			}
			out = append(out, p.split(text, ps, strategies[i+1:])...)
		}
		return out
	}
	return []Span{s}
}

// accumulate packs pieces greedily into chunks no longer than the target
// size, seeding each chunk after the first with trailing overlap.
func (p *Processor) accumulate(text string, pieces []Span) []Span {
	fences := FencedBlocks(text)

	var out []Span
	cur := pieces[0]
	for _, piece := range pieces[1:] {
		if runeLen(text[cur.Start:piece.End]) <= p.targetSize || isBlank(text[cur.Start:cur.End]) {
			cur.End = piece.End
			continue
		}
		out = append(out, cur)
		cur = Span{Start: p.seedStart(text, cur, piece, fences), End: piece.End}
	}

	// Trailing whitespace never forms a chunk of its own.
	if len(out) > 0 && isBlank(text[out[len(out)-1].End:cur.End]) {
		out[len(out)-1].End = cur.End
		return out
	}
	return append(out, cur)
}

// seedStart returns where the chunk following prev begins: up to overlap
// characters before prev.End, never before prev.Start, shrunk so the seed
// plus next still fits, and never inside a fenced block.
func (p *Processor) seedStart(text string, prev, next Span, fences []Span) int {
	n := p.overlap
	if room := p.targetSize - runeLen(text[next.Start:next.End]); room < n {
		n = max(room, 0)
	}

	start := prev.End
	for n > 0 && start > prev.Start {
		_, size := utf8.DecodeLastRuneInString(text[:start])
		start -= size
		n--
	}

	for _, f := range fences {
		if start > f.Start && start < f.End {
			start = min(f.End, prev.End)
		}
	}
	return start
}

func isBlank(s string) bool {
	return strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) }) < 0
}
