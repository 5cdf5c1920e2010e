package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
	"github.com/custodia-labs/groundwork/internal/retry"
)

// AnswerGenerator calls the LLM with a fixed low temperature.
type AnswerGenerator struct {
	llm    driven.LLMService
	opts   driven.ChatOptions
	policy retry.Policy
}

// NewAnswerGenerator creates a generator from the LLM settings.
func NewAnswerGenerator(llm driven.LLMService, settings domain.LLMSettings, policy retry.Policy) *AnswerGenerator {
	if policy.Provider == "" {
		policy.Provider = string(settings.Provider)
	}
	return &AnswerGenerator{
		llm: llm,
		opts: driven.ChatOptions{
			MaxTokens:   settings.MaxTokens,
			Temperature: settings.Temperature,
		},
		policy: policy,
	}
}

// Generate returns the model's answer. Transient failures are retried;
// a content policy refusal is returned at once as *domain.ContentPolicyError.
func (g *AnswerGenerator) Generate(ctx context.Context, req *GenerationRequest) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	messages := []driven.ChatMessage{
		{Role: driven.RoleSystem, Content: req.System},
		{Role: driven.RoleUser, Content: req.User},
	}

	var text string
	err := g.policy.Do(ctx, "generate", func(ctx context.Context) error {
		out, err := g.llm.Chat(ctx, messages, g.opts)
		if err != nil {
			return err
		}
		text = out
		return nil
	})
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		return "", fmt.Errorf("generate with %s: %w", g.llm.ModelName(), err)
	}

	text = strings.TrimSpace(text)
	logger.Debug("Generated %d characters with %s", len(text), g.llm.ModelName())
	return text, nil
}
