package services

import (
	"fmt"
	"strings"

	"github.com/custodia-labs/groundwork/internal/core/domain"
	"github.com/custodia-labs/groundwork/internal/core/ports/driven"
	"github.com/custodia-labs/groundwork/internal/logger"
)

// GenerationRequest is a grounded prompt ready for the answer generator.
type GenerationRequest struct {
	System string
	User   string

	// Evidence is numbered [1]..[n] in the prompt, in this order.
	Evidence []domain.RetrievalResult
}

// Built-in prompt templates, used when the PromptStore has no override.
var defaultPrompts = map[string]string{
	driven.PromptRefusal: "The course material does not cover this.",

	driven.PromptAnswerSystem: `You answer questions about a course using only the numbered evidence blocks provided.

Rules:
- Use only facts stated in the evidence. Do not rely on outside knowledge.
- Cite every fact with the number of its evidence block, like [1] or [2][3].
- If the evidence does not cover part of the question, say exactly: "%s" Then, in one sentence, name which parts the evidence does cover.
- Do not invent evidence numbers, sources or quotations.
- Be concise.`,

	driven.PromptSelectionSystem: `You explain a passage the reader selected from a course, using only the numbered evidence blocks provided.

Rules:
- The selected passage is the primary subject. Answer about the selection first, then use the evidence as supporting material.
- Use only facts stated in the selection or the evidence. Do not rely on outside knowledge.
- Cite every fact taken from the evidence with the number of its block, like [1] or [2][3].
- If neither the selection nor the evidence covers part of the question, say exactly: "%s" Then, in one sentence, name which parts they do cover.
- Do not invent evidence numbers, sources or quotations.
- Be concise.`,

	driven.PromptNotFound: "I couldn't find anything about that in the course material.%s",

	driven.PromptPolicyFallback: "I can't help with that request. Try rephrasing your question about the course material.",
}

// PromptBuilder assembles generation requests and canned answers from
// templates in a PromptStore, falling back to built-in defaults.
type PromptBuilder struct {
	prompts driven.PromptStore
}

// NewPromptBuilder creates a builder. prompts may be nil.
func NewPromptBuilder(prompts driven.PromptStore) *PromptBuilder {
	return &PromptBuilder{prompts: prompts}
}

// Template returns the named template, preferring the store's override.
func (b *PromptBuilder) Template(name string) string {
	if b.prompts != nil {
		if t, err := b.prompts.Load(name); err == nil && strings.TrimSpace(t) != "" {
			return t
		}
	}
	return defaultPrompts[name]
}

// Build numbers the evidence and writes the system and user messages.
// It returns domain.ErrNoEvidence when results is empty.
func (b *PromptBuilder) Build(query domain.Query, results []domain.RetrievalResult) (*GenerationRequest, error) {
	if len(results) == 0 {
		return nil, domain.ErrNoEvidence
	}

	systemName := driven.PromptAnswerSystem
	if query.HasSelection() {
		systemName = driven.PromptSelectionSystem
	}
	system := fillTemplate(b.Template(systemName), b.Template(driven.PromptRefusal))

	var u strings.Builder
	u.WriteString("Evidence:\n\n")
	for i, r := range results {
		fmt.Fprintf(&u, "[%d] %s", i+1, r.Payload.Title)
		if r.Payload.Section != "" && r.Payload.Section != r.Payload.Title {
			fmt.Fprintf(&u, " > %s", r.Payload.Section)
		}
		fmt.Fprintf(&u, " (%s)\n%s\n\n", r.Payload.Source, strings.TrimSpace(r.Payload.Content))
	}
	if query.HasSelection() {
		fmt.Fprintf(&u, "Selected passage:\n\"\"\"\n%s\n\"\"\"\n\n", strings.TrimSpace(query.SelectedText))
	}
	fmt.Fprintf(&u, "Question: %s", strings.TrimSpace(query.Question))

	logger.Debug("Prompt: %d evidence blocks, selection=%t, %d characters", len(results), query.HasSelection(), u.Len())
	return &GenerationRequest{
		System:   system,
		User:     u.String(),
		Evidence: results,
	}, nil
}

// NotFound renders the no-evidence answer, suggesting modules that the
// corpus does cover.
func (b *PromptBuilder) NotFound(modules []string) string {
	suggestion := ""
	if len(modules) > 0 {
		suggestion = " Topics covered include: " + strings.Join(modules, ", ") + "."
	}
	return fillTemplate(b.Template(driven.PromptNotFound), suggestion)
}

// PolicyFallback renders the safe answer used when generation is refused.
func (b *PromptBuilder) PolicyFallback() string {
	return b.Template(driven.PromptPolicyFallback)
}

// fillTemplate substitutes arg for a single %s. Templates without a
// placeholder are returned unchanged.
func fillTemplate(tmpl, arg string) string {
	if !strings.Contains(tmpl, "%s") {
		return tmpl
	}
	return strings.Replace(tmpl, "%s", arg, 1)
}
