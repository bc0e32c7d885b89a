package llm

// Message represents a single message in an LLM conversation history.
type Message struct {
	// Role is one of "system", "user", or "assistant".
	Role string

	// Content is the text content of the message.
	Content string
}

// ModelCapabilities describes what an LLM model supports.
type ModelCapabilities struct {
	// ContextWindow is the maximum token count for input + output.
	ContextWindow int

	// MaxOutputTokens is the maximum number of completion tokens per request.
	MaxOutputTokens int

	// SupportsJSONMode reports whether the backend can constrain output to a
	// single JSON object (CompletionRequest.ForceJSON).
	SupportsJSONMode bool
}
