package llm

import (
	"encoding/json"
	"fmt"
	"strings"
)

// APIError represents a non-2xx response from the upstream backend. Message
// is the human-readable detail pulled from the response body; Body keeps the
// raw payload.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "unknown API error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, msg)
	}
	return "API error: " + msg
}

// NewAPIError builds an APIError from a response status and body, extracting
// a message from common JSON error envelopes and falling back to the raw
// body text.
func NewAPIError(statusCode int, body string) *APIError {
	body = strings.TrimSpace(body)
	message := extractErrorMessage(body)
	if message == "" {
		message = body
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Body:       body,
	}
}

// extractErrorMessage pulls a message out of OpenAI-compatible error
// payloads: {"error":{"message":...}}, {"error":"..."}, {"message":...},
// {"detail":...}. Returns "" when the body is not JSON or has no message.
func extractErrorMessage(body string) string {
	if body == "" {
		return ""
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(body), &decoded); err != nil {
		return ""
	}

	if rawErr, ok := decoded["error"]; ok {
		switch v := rawErr.(type) {
		case string:
			return strings.TrimSpace(v)
		case map[string]any:
			if message, ok := v["message"].(string); ok {
				return strings.TrimSpace(message)
			}
			if typ, ok := v["type"].(string); ok {
				return strings.TrimSpace(typ)
			}
		}
	}
	if message, ok := decoded["message"].(string); ok {
		return strings.TrimSpace(message)
	}
	if detail, ok := decoded["detail"].(string); ok {
		return strings.TrimSpace(detail)
	}
	return ""
}
