package mcp

import (
	"context"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driving"
)

// AskInput is the input schema for the ask tool.
type AskInput struct {
	Question       string `json:"question" jsonschema:"the question to answer from the course material"`
	SelectedText   string `json:"selected_text,omitempty" jsonschema:"a passage the question refers to"`
	MetadataFilter string `json:"metadata_filter,omitempty" jsonschema:"restrict evidence, e.g. module=Basics,section=Loops|Arrays"`
}

// AskOutput is the output schema for the ask tool.
type AskOutput struct {
	Answer   string          `json:"answer"`
	Sources  []domain.Source `json:"sources"`
	Fallback bool            `json:"fallback"`
}

// RetrieveInput is the input schema for the retrieve tool.
type RetrieveInput struct {
	Question       string   `json:"question" jsonschema:"the text to find evidence for"`
	Limit          int      `json:"limit,omitempty" jsonschema:"maximum number of results (default from settings)"`
	ScoreThreshold *float64 `json:"score_threshold,omitempty" jsonschema:"drop results scoring below this"`
	MetadataFilter string   `json:"metadata_filter,omitempty" jsonschema:"restrict evidence, e.g. module=Basics"`
}

// RetrieveOutput is the output schema for the retrieve tool.
type RetrieveOutput struct {
	Results []EvidenceOutput `json:"results"`
	Count   int              `json:"count"`
}

// EvidenceOutput is one retrieved chunk.
type EvidenceOutput struct {
	Title      string  `json:"title"`
	SourcePath string  `json:"source_path"`
	Module     string  `json:"module,omitempty"`
	Section    string  `json:"section,omitempty"`
	ChunkIndex int     `json:"chunk_index"`
	Score      float64 `json:"score"`
	Content    string  `json:"content"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "ask",
		Description: "Answer a question using only the indexed course material, with citations",
	}, s.handleAsk)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        "retrieve",
		Description: "Return the passages most relevant to a question, without generating an answer",
	}, s.handleRetrieve)
}

func (s *Server) handleAsk(ctx context.Context, _ *mcp.CallToolRequest, input AskInput) (*mcp.CallToolResult, AskOutput, error) {
	filter, err := domain.ParseMetadataFilter(input.MetadataFilter)
	if err != nil {
		return nil, AskOutput{}, err
	}

	answer, err := s.ports.Query.Ask(ctx, domain.Query{
		Question:     input.Question,
		SelectedText: input.SelectedText,
		Filter:       filter,
	})
	if err != nil {
		return nil, AskOutput{}, err
	}

	sources := answer.Sources
	if sources == nil {
		sources = []domain.Source{}
	}
	return nil, AskOutput{Answer: answer.Text, Sources: sources, Fallback: answer.Fallback}, nil
}

func (s *Server) handleRetrieve(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input RetrieveInput,
) (*mcp.CallToolResult, RetrieveOutput, error) {
	filter, err := domain.ParseMetadataFilter(input.MetadataFilter)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	results, err := s.ports.Retriever.Retrieve(ctx,
		domain.Query{Question: input.Question, Filter: filter},
		driving.RetrieveOptions{Limit: input.Limit, ScoreThreshold: input.ScoreThreshold},
	)
	if err != nil {
		return nil, RetrieveOutput{}, err
	}

	output := RetrieveOutput{
		Results: make([]EvidenceOutput, len(results)),
		Count:   len(results),
	}
	for i, r := range results {
		output.Results[i] = EvidenceOutput{
			Title:      r.Payload.Title,
			SourcePath: r.Payload.Source,
			Module:     r.Payload.Module,
			Section:    r.Payload.Section,
			ChunkIndex: r.Payload.ChunkIndex,
			Score:      r.Score,
			Content:    r.Payload.Content,
		}
	}
	return nil, output, nil
}
