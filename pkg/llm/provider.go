package llm

import "context"

// Provider defines the interface for streaming completions from an LLM
// backend. Implementations handle protocol-specific details such as request
// formatting, authentication, and response parsing.
type Provider interface {
	// Stream opens a streaming completion request. The returned error covers
	// failures before any output arrives (request build, connect, non-2xx);
	// mid-stream failures are delivered as a Delta with Err set. The channel
	// closes after the end sentinel, a natural stream close, or an error.
	Stream(ctx context.Context, system string, messages []Message) (<-chan Delta, error)
}

// Factory builds a Provider for one resolved upstream configuration.
type Factory func(cfg *Config) Provider
