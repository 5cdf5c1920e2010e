package domain

import (
	"slices"
	"sort"
	"strings"
	"unicode/utf8"
)

// MaxQuestionLength is the longest accepted question, in characters.
const MaxQuestionLength = 1000

// Query is one question asked of the corpus.
type Query struct {
	// Question is required and drives retrieval.
	Question string

	// SelectedText is an optional passage the question is anchored to.
	// Empty or whitespace-only selections are treated as absent.
	SelectedText string

	// Filter optionally restricts retrieval to part of the corpus.
	Filter *MetadataFilter
}

// HasSelection reports whether the query carries a usable selection.
func (q Query) HasSelection() bool {
	return strings.TrimSpace(q.SelectedText) != ""
}

// Validate checks the question length bounds.
func (q Query) Validate() error {
	n := utf8.RuneCountInString(strings.TrimSpace(q.Question))
	switch {
	case n == 0:
		return NewInvalidInput("question", "must not be empty")
	case n > MaxQuestionLength:
		return NewInvalidInput("question", "must be at most %d characters, got %d", MaxQuestionLength, n)
	}
	return nil
}

// RetrievalResult is a scored chunk payload returned for one query.
type RetrievalResult struct {
	Payload Payload
	Score   float64
}

// SortResults orders results by score descending, then chunk ordinal
// ascending. Remaining ties keep their incoming order.
func SortResults(results []RetrievalResult) {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Payload.ChunkIndex < results[j].Payload.ChunkIndex
	})
}

// Source is a citation returned alongside an answer.
type Source struct {
	Title      string `json:"title"`
	SourcePath string `json:"source_path"`
	Section    string `json:"section"`
}

// SourceFromResult projects a retrieval result into a citation.
func SourceFromResult(r RetrievalResult) Source {
	return Source{
		Title:      r.Payload.Title,
		SourcePath: r.Payload.Source,
		Section:    r.Payload.Section,
	}
}

// QueryState is a state of the query pipeline.
type QueryState string

// Query pipeline states.
const (
	QueryStateRetrieving QueryState = "retrieving"
	QueryStateEmpty      QueryState = "empty"
	QueryStateGenerating QueryState = "generating"
	QueryStateDone       QueryState = "done"
)

// Answer is the result of a query.
type Answer struct {
	// Text is the generated or canned answer.
	Text string

	// Sources cites the evidence given to the generator, in retrieval order.
	Sources []Source

	// Path records the states visited, ending in QueryStateDone.
	Path []QueryState

	// Fallback is true when Text came from a fixed template rather
	// than the generator.
	Fallback bool
}

// State returns the last state visited.
func (a *Answer) State() QueryState {
	if a == nil || len(a.Path) == 0 {
		return ""
	}
	return a.Path[len(a.Path)-1]
}

// Filterable payload fields.
const (
	FilterFieldModule     = "module"
	FilterFieldSection    = "section"
	FilterFieldSource     = "source"
	FilterFieldTitle      = "title"
	FilterFieldDocumentID = "document_id"
)

// FilterClause matches when the payload field equals one of Values.
type FilterClause struct {
	Field  string
	Values []string
}

// MetadataFilter is a conjunction of clauses.
type MetadataFilter struct {
	Clauses []FilterClause
}

// IsEmpty reports whether the filter has no clauses.
func (f *MetadataFilter) IsEmpty() bool {
	return f == nil || len(f.Clauses) == 0
}

// Matches reports whether the payload satisfies every clause.
func (f *MetadataFilter) Matches(p Payload) bool {
	if f.IsEmpty() {
		return true
	}
	for _, c := range f.Clauses {
		v, ok := p.Field(c.Field)
		if !ok || !slices.Contains(c.Values, v) {
			return false
		}
	}
	return true
}

// String renders the filter in the form accepted by ParseMetadataFilter.
func (f *MetadataFilter) String() string {
	if f.IsEmpty() {
		return ""
	}
	parts := make([]string, len(f.Clauses))
	for i, c := range f.Clauses {
		parts[i] = c.Field + "=" + strings.Join(c.Values, "|")
	}
	return strings.Join(parts, ",")
}

// ParseMetadataFilter parses "field=value,field=v1|v2". A bare value with
// no "=" is shorthand for "module=value". An empty string yields nil.
func ParseMetadataFilter(s string) (*MetadataFilter, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}

	f := &MetadataFilter{}
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		field, raw, found := strings.Cut(part, "=")
		if !found {
			field, raw = FilterFieldModule, part
		}
		field = strings.TrimSpace(field)
		if !isFilterField(field) {
			return nil, NewInvalidInput("metadata_filter", "unknown field %q", field)
		}

		var values []string
		for _, v := range strings.Split(raw, "|") {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, NewInvalidInput("metadata_filter", "field %q has no values", field)
		}
		f.Clauses = append(f.Clauses, FilterClause{Field: field, Values: values})
	}
	if len(f.Clauses) == 0 {
		return nil, nil
	}
	return f, nil
}

// NewMetadataFilter builds a filter from field to accepted values.
// Clauses are ordered by field name. Empty input yields nil.
func NewMetadataFilter(fields map[string][]string) (*MetadataFilter, error) {
	if len(fields) == 0 {
		return nil, nil
	}
	names := make([]string, 0, len(fields))
	for name := range fields {
		names = append(names, name)
	}
	sort.Strings(names)

	f := &MetadataFilter{}
	for _, name := range names {
		if !isFilterField(name) {
			return nil, NewInvalidInput("metadata_filter", "unknown field %q", name)
		}
		var values []string
		for _, v := range fields[name] {
			if v = strings.TrimSpace(v); v != "" {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			return nil, NewInvalidInput("metadata_filter", "field %q has no values", name)
		}
		f.Clauses = append(f.Clauses, FilterClause{Field: name, Values: values})
	}
	return f, nil
}

func isFilterField(name string) bool {
	switch name {
	case FilterFieldModule, FilterFieldSection, FilterFieldSource, FilterFieldTitle, FilterFieldDocumentID:
		return true
	}
	return false
}

// ModuleFilter is a convenience for the common single-module restriction.
func ModuleFilter(module string) *MetadataFilter {
	return &MetadataFilter{Clauses: []FilterClause{{Field: FilterFieldModule, Values: []string{module}}}}
}

