package chunker

import (
	"regexp"
	"strings"
	"unicode/utf8"
)

// Strategy splits text at one kind of boundary.
//
// Split returns pieces whose concatenation is exactly text, each piece
// keeping its delimiter. It reports ok=false when text already fits in
// target or when the boundary does not occur outside fenced code.
type Strategy struct {
	Name  string
	Split func(text string, target int) (pieces []string, ok bool)
}

var (
	majorHeadingRe = regexp.MustCompile(`(?m)^ {0,3}#{1,2}[ \t]`)
	minorHeadingRe = regexp.MustCompile(`(?m)^ {0,3}#{3,6}[ \t]`)
	paragraphRe    = regexp.MustCompile(`\n[ \t]*\n\s*`)
	sentenceRe     = regexp.MustCompile(`[.!?]["')\]]*\s+`)
	whitespaceRe   = regexp.MustCompile(`\s+`)
	headingLineRe  = regexp.MustCompile(`(?m)^ {0,3}(#{1,6})[ \t]+(.*?)[ \t#]*$`)
)

// DefaultStrategies returns the boundary kinds in priority order:
// major heading, minor heading, paragraph, sentence, whitespace.
func DefaultStrategies() []Strategy {
	return []Strategy{
		{Name: "major-heading", Split: cutBefore(majorHeadingRe)},
		{Name: "minor-heading", Split: cutBefore(minorHeadingRe)},
		{Name: "paragraph", Split: cutAfter(paragraphRe)},
		{Name: "sentence", Split: cutAfter(sentenceRe)},
		{Name: "whitespace", Split: cutAfter(whitespaceRe)},
	}
}

// cutBefore starts a new piece at each match, so a heading opens its section.
func cutBefore(re *regexp.Regexp) func(string, int) ([]string, bool) {
	return func(text string, target int) ([]string, bool) {
		if runeLen(text) <= target {
			return nil, false
		}
		var cuts []int
		for _, m := range re.FindAllStringIndex(text, -1) {
			cuts = append(cuts, m[0])
		}
		return splitAtCuts(text, cuts)
	}
}

// cutAfter ends a piece after each match, so the delimiter stays with
// the text it terminates.
func cutAfter(re *regexp.Regexp) func(string, int) ([]string, bool) {
	return func(text string, target int) ([]string, bool) {
		if runeLen(text) <= target {
			return nil, false
		}
		var cuts []int
		for _, m := range re.FindAllStringIndex(text, -1) {
			cuts = append(cuts, m[1])
		}
		return splitAtCuts(text, cuts)
	}
}

// splitAtCuts splits text at ascending byte offsets, ignoring offsets at
// the ends of text or inside a fenced code block.
func splitAtCuts(text string, cuts []int) ([]string, bool) {
	fences := FencedBlocks(text)
	var pieces []string
	prev := 0
	for _, c := range cuts {
		if c <= prev || c >= len(text) || insideSpan(fences, c) {
			continue
		}
		pieces = append(pieces, text[prev:c])
		prev = c
	}
	if len(pieces) == 0 {
		return nil, false
	}
	return append(pieces, text[prev:]), true
}

// Span is a half-open byte range.
type Span struct {
	Start, End int
}

func insideSpan(spans []Span, off int) bool {
	for _, s := range spans {
		if off > s.Start && off < s.End {
			return true
		}
	}
	return false
}

// FencedBlocks returns the byte spans of fenced code blocks in text.
// A block runs from the start of its opening fence line to the end of its
// closing fence line, newline included. An unclosed fence runs to the end.
func FencedBlocks(text string) []Span {
	var (
		spans   []Span
		open    = -1
		marker  byte
		minRun  int
		lineOff int
	)
	for lineOff < len(text) {
		end := strings.IndexByte(text[lineOff:], '\n')
		next := len(text)
		if end >= 0 {
			next = lineOff + end + 1
		}
		line := strings.TrimLeft(text[lineOff:next], " ")
		if len(text[lineOff:next])-len(line) <= 3 {
			if ch, n := fenceRun(line); n >= 3 {
				switch {
				case open < 0:
					open, marker, minRun = lineOff, ch, n
				case ch == marker && n >= minRun && strings.TrimSpace(line[n:]) == "":
					spans = append(spans, Span{Start: open, End: next})
					open = -1
				}
			}
		}
		lineOff = next
	}
	if open >= 0 {
		spans = append(spans, Span{Start: open, End: len(text)})
	}
	return spans
}

func fenceRun(line string) (byte, int) {
	if line == "" || (line[0] != '`' && line[0] != '~') {
		return 0, 0
	}
	ch := line[0]
	n := 0
	for n < len(line) && line[n] == ch {
		n++
	}
	return ch, n
}

// Heading is a markdown heading line outside fenced code.
type Heading struct {
	Offset int
	Level  int
	Text   string
}

// Headings returns the headings of text in document order.
func Headings(text string) []Heading {
	fences := FencedBlocks(text)
	var out []Heading
	for _, m := range headingLineRe.FindAllStringSubmatchIndex(text, -1) {
		if insideSpan(fences, m[0]) {
			continue
		}
		out = append(out, Heading{
			Offset: m[0],
			Level:  m[3] - m[2],
			Text:   strings.TrimSpace(text[m[4]:m[5]]),
		})
	}
	return out
}

func runeLen(s string) int {
	return utf8.RuneCountInString(s)
}
