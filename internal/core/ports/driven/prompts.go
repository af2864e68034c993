package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	// This is useful when prompts may have been edited on disk.
	Reload()
}

// Well-known prompt names used throughout the application.
const (
	// PromptAnswer is the grounded answer template.
	// It expects {{.Context}} and {{.Question}} fields.
	PromptAnswer = "answer"
)

// DefaultAnswerPrompt is the built-in answer template.
const DefaultAnswerPrompt = `You are a financial analyst assistant for CrediTrust. Your task is to answer questions
about customer complaints. Use the following retrieved complaint excerpts to
formulate your answer. If the context doesn't contain the answer, state that you don't
have enough information.

CONTEXT:
{{.Context}}

QUESTION:
{{.Question}}

ANSWER:`
