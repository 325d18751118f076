package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files, embed them in the binary,
// or fetch them from a remote configuration service.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used throughout the application.
// These constants define the contract between prompt consumers and providers.
const (
	// PromptRephrase turns a follow-up question into a standalone search query.
	// It is sent as the last user message after the conversation and has no
	// format placeholders.
	PromptRephrase = "rephrase"

	// PromptAnswerSystem is the system instruction for grounded answers.
	// The template expects one %s placeholder for the context block.
	PromptAnswerSystem = "answer_system"
)
