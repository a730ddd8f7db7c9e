// internal/context/engine.go
package context

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"github.com/user/agentdeck/pkg/llm"
)

// Engine fits conversation histories into the model's token budget.
type Engine struct {
	tokenizer *tiktoken.Tiktoken
	maxTokens int
	reserve   int
}

// New creates a context engine with the specified token budget.
// model is used to select the appropriate tokenizer (e.g. "gpt-4o").
// maxTokens is the model's context window size.
// reserve is the number of tokens to reserve for the model's response.
func New(model string, maxTokens, reserve int) (*Engine, error) {
	enc, err := tiktoken.EncodingForModel(model)
	if err != nil {
		// Fallback to cl100k_base for unknown models
		enc, err = tiktoken.GetEncoding("cl100k_base")
		if err != nil {
			return nil, fmt.Errorf("get tokenizer: %w", err)
		}
	}
	return &Engine{
		tokenizer: enc,
		maxTokens: maxTokens,
		reserve:   reserve,
	}, nil
}

// countTokens returns the token count for a string.
func (e *Engine) countTokens(text string) int {
	return len(e.tokenizer.Encode(text, nil, nil))
}

// TrimHistory drops the oldest conversation turns until the system prompt
// plus the remaining turns fit inside the input budget. The newest turn is
// always kept, even when it alone exceeds the budget.
func (e *Engine) TrimHistory(system string, messages []llm.Message) []llm.Message {
	if len(messages) == 0 {
		return messages
	}

	budget := e.maxTokens - e.reserve - e.countTokens(system)

	used := 0
	start := len(messages)
	for i := len(messages) - 1; i >= 0; i-- {
		cost := e.countTokens(messages[i].Content) + e.countTokens(messages[i].Role)
		if used+cost > budget && start < len(messages) {
			break
		}
		used += cost
		start = i
	}

	if start == 0 {
		return messages
	}
	return messages[start:]
}
