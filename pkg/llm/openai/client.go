package openai

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/user/agentdeck/pkg/llm"
)

// Client implements the llm.Provider interface for OpenAI-compatible
// streaming chat-completion APIs.
type Client struct {
	config     *llm.Config
	httpClient *http.Client
}

// New creates a new OpenAI-compatible client with the given configuration.
func New(config *llm.Config) *Client {
	return &Client{
		config: config,
		httpClient: &http.Client{
			Timeout: 5 * time.Minute,
		},
	}
}

// chatRequest is the OpenAI chat completions request body.
type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []llm.Message `json:"messages"`
	Stream      bool          `json:"stream"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature *float32      `json:"temperature,omitempty"`
}

// Stream sends a streaming chat completion request and returns a channel of
// incremental deltas. The system prompt, when non-empty, is prepended as the
// first message.
func (c *Client) Stream(ctx context.Context, system string, messages []llm.Message) (<-chan llm.Delta, error) {
	reqMessages := make([]llm.Message, 0, len(messages)+1)
	if system != "" {
		reqMessages = append(reqMessages, llm.Message{Role: "system", Content: system})
	}
	reqMessages = append(reqMessages, messages...)

	reqBody := chatRequest{
		Model:    c.config.Model,
		Messages: reqMessages,
		Stream:   true,
	}
	if c.config.MaxTokens > 0 {
		reqBody.MaxTokens = c.config.MaxTokens
	}
	if c.config.Temperature != 0 {
		temp := c.config.Temperature
		reqBody.Temperature = &temp
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("marshaling request: %w", err)
	}

	url := strings.TrimRight(c.config.BaseURL, "/") + "/chat/completions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "text/event-stream")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		resp.Body.Close()
		return nil, llm.NewAPIError(resp.StatusCode, string(respBody))
	}

	ch := make(chan llm.Delta)
	go readStream(ctx, resp.Body, ch)
	return ch, nil
}

// readStream scans the SSE response body and forwards text deltas. The
// [DONE] sentinel ends the stream and short-circuits any lines still
// buffered behind it.
func readStream(ctx context.Context, body io.ReadCloser, ch chan<- llm.Delta) {
	defer close(ch)
	defer body.Close()

	scanner := bufio.NewScanner(body)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := strings.TrimSuffix(scanner.Text(), "\r")
		if !strings.HasPrefix(line, "data:") {
			continue
		}
		data := strings.TrimSpace(strings.TrimPrefix(line, "data:"))
		if data == "" {
			continue
		}
		if data == "[DONE]" {
			return
		}

		text, err := parseChunk(data)
		if err != nil {
			send(ctx, ch, llm.Delta{Err: err})
			return
		}
		if text == "" {
			continue
		}
		if !send(ctx, ch, llm.Delta{Content: text}) {
			return
		}
	}

	if err := scanner.Err(); err != nil && ctx.Err() == nil {
		send(ctx, ch, llm.Delta{Err: fmt.Errorf("reading stream: %w", err)})
	}
}

func send(ctx context.Context, ch chan<- llm.Delta, d llm.Delta) bool {
	select {
	case ch <- d:
		return true
	case <-ctx.Done():
		return false
	}
}

// streamChunk is the provider chunk envelope. Content fields are kept raw
// because providers disagree on their shape (string vs fragment list).
type streamChunk struct {
	Choices []struct {
		Delta struct {
			Content json.RawMessage `json:"content"`
		} `json:"delta"`
		Message struct {
			Content json.RawMessage `json:"content"`
		} `json:"message"`
		FinishReason *string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
		Type    string `json:"type"`
	} `json:"error"`
}

// parseChunk extracts the incremental text from one data payload. Non-JSON
// payloads are treated as literal text; JSON payloads without extractable
// text yield "" and are skipped by the caller.
func parseChunk(data string) (string, error) {
	var chunk streamChunk
	if err := json.Unmarshal([]byte(data), &chunk); err != nil {
		return data, nil
	}

	if chunk.Error != nil {
		msg := strings.TrimSpace(chunk.Error.Message)
		if msg == "" {
			msg = strings.TrimSpace(chunk.Error.Type)
		}
		if msg == "" {
			msg = "upstream error"
		}
		return "", &llm.APIError{Message: msg, Body: data}
	}

	if len(chunk.Choices) == 0 {
		return "", nil
	}

	if text := contentText(chunk.Choices[0].Delta.Content); text != "" {
		return text, nil
	}
	return contentText(chunk.Choices[0].Message.Content), nil
}

// contentFragment is one element of a structured content list.
type contentFragment struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

// contentText resolves the polymorphic content field: a JSON string, a
// fragment list, or anything else (ignored).
func contentText(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}

	var fragments []contentFragment
	if err := json.Unmarshal(raw, &fragments); err == nil {
		var b strings.Builder
		for _, f := range fragments {
			b.WriteString(f.Text)
		}
		return b.String()
	}

	return ""
}
