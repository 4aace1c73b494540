package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names fall back to a built-in default when one exists.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptContextualize rewrites a follow-up question into a standalone one.
	// This prompt has no format placeholders.
	PromptContextualize = "contextualize_question"

	// PromptAnswerSystem grounds answers in retrieved passages.
	// The template expects one %s placeholder for the joined context.
	PromptAnswerSystem = "answer_system"
)
