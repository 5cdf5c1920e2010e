package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Returns an error if the prompt is not found; callers fall back to
	// their built-in default.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptAnswerSystem is the system prompt for grounded answers.
	// The template has one %s placeholder for the refusal sentence.
	PromptAnswerSystem = "answer_system"

	// PromptSelectionSystem replaces PromptAnswerSystem when the user
	// anchored the question to selected text. Same placeholder.
	PromptSelectionSystem = "selection_system"

	// PromptRefusal is the sentence the model must use for uncovered material.
	PromptRefusal = "refusal"

	// PromptNotFound is the canned answer when no evidence qualifies.
	// The template has one %s placeholder for the topic suggestion.
	PromptNotFound = "not_found"

	// PromptPolicyFallback is the safe answer when generation is refused.
	PromptPolicyFallback = "policy_fallback"
)
