package domain

// CompletionRequest is a single prompt sent to a language model.
type CompletionRequest struct {
	System      string
	Prompt      string
	Temperature float32
	// JSON asks the provider for a JSON-only answer where it supports it.
	JSON bool
}
