// Package debugclient is the consumer side of the debug streaming endpoint:
// an HTTP client that decodes the event stream incrementally, and a
// Conversation that folds frames into a chat timeline with draft coalescing.
package debugclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/internal/types"
	"github.com/user/agentdeck/pkg/llm"
)

// Client talks to a running gateway server.
type Client struct {
	BaseURL    string
	HTTPClient *http.Client
}

// New creates a Client for the given server base URL. The underlying HTTP
// client has no timeout: debug streams are long-lived and are cancelled
// through the request context instead.
func New(baseURL string) *Client {
	return &Client{
		BaseURL:    baseURL,
		HTTPClient: &http.Client{},
	}
}

// GetAgent fetches one agent definition from the server.
func (c *Client) GetAgent(ctx context.Context, agentID types.AgentID) (*types.Agent, error) {
	url := fmt.Sprintf("%s/agents/%s", c.BaseURL, agentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("get agent: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var se serverError
		if json.Unmarshal(data, &se) == nil && se.Message != "" {
			return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, se.Message)
		}
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(data))
	}

	var agent types.Agent
	if err := json.NewDecoder(resp.Body).Decode(&agent); err != nil {
		return nil, fmt.Errorf("decode agent: %w", err)
	}
	return &agent, nil
}

// DebugRequest is the body of a debug turn.
type DebugRequest struct {
	Context  string        `json:"context,omitempty"`
	Messages []llm.Message `json:"messages"`
}

type serverError struct {
	Message string `json:"message"`
	Detail  string `json:"detail,omitempty"`
}

// Stream opens a debug turn against the given agent and returns the frame
// stream. Non-2xx responses are surfaced as errors carrying the server's
// message.
func (c *Client) Stream(ctx context.Context, agentID types.AgentID, req DebugRequest) (*FrameStream, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	url := fmt.Sprintf("%s/agents/%s/debug", c.BaseURL, agentID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "text/event-stream")

	resp, err := c.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("debug request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		defer resp.Body.Close()
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
		var se serverError
		if json.Unmarshal(data, &se) == nil && se.Message != "" {
			return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, se.Message)
		}
		return nil, fmt.Errorf("server error (%d): %s", resp.StatusCode, string(data))
	}

	fs := &FrameStream{
		body:   resp.Body,
		frames: make(chan sse.Frame, 16),
	}
	go fs.read()
	return fs, nil
}

// FrameStream delivers decoded frames from an open debug response.
type FrameStream struct {
	body   io.ReadCloser
	frames chan sse.Frame
	err    error
}

// Frames returns the channel of decoded frames. It is closed when the
// stream ends; check Err afterwards.
func (fs *FrameStream) Frames() <-chan sse.Frame {
	return fs.frames
}

// Err reports the read error that ended the stream, if any. Valid only
// after Frames is closed.
func (fs *FrameStream) Err() error {
	return fs.err
}

// Close tears down the underlying response body, unblocking the reader.
func (fs *FrameStream) Close() error {
	return fs.body.Close()
}

func (fs *FrameStream) read() {
	defer close(fs.frames)
	defer fs.body.Close()

	var dec sse.Decoder
	buf := make([]byte, 4096)
	for {
		n, err := fs.body.Read(buf)
		if n > 0 {
			for _, f := range dec.Feed(buf[:n]) {
				fs.frames <- f
			}
		}
		if err != nil {
			if err != io.EOF {
				fs.err = err
			}
			return
		}
	}
}
