package llm

// Message represents a chat message in a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Delta represents an incremental update during streaming. A non-nil Err
// means the stream failed mid-flight; the channel closes right after.
type Delta struct {
	Content string
	Err     error
}

// Config holds the upstream connection parameters for one request. The
// debug endpoint resolves it once at enqueue time; it is immutable after.
type Config struct {
	BaseURL     string
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float32
}
