package llm

import (
	"strings"
	"testing"
)

func TestNewAPIErrorEnvelope(t *testing.T) {
	err := NewAPIError(429, `{"error":{"message":"rate limit exceeded"}}`)
	if err.Message != "rate limit exceeded" {
		t.Errorf("got message %q", err.Message)
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("expected status in error string, got %q", err.Error())
	}
}

func TestNewAPIErrorStringError(t *testing.T) {
	err := NewAPIError(500, `{"error":"backend exploded"}`)
	if err.Message != "backend exploded" {
		t.Errorf("got message %q", err.Message)
	}
}

func TestNewAPIErrorTopLevelMessage(t *testing.T) {
	err := NewAPIError(400, `{"message":"bad request"}`)
	if err.Message != "bad request" {
		t.Errorf("got message %q", err.Message)
	}
}

func TestNewAPIErrorRawBody(t *testing.T) {
	err := NewAPIError(500, "rate limited")
	if err.Message != "rate limited" {
		t.Errorf("got message %q", err.Message)
	}
	if !strings.Contains(err.Error(), "rate limited") {
		t.Errorf("expected body text in error string, got %q", err.Error())
	}
}

func TestNewAPIErrorEmptyBody(t *testing.T) {
	err := NewAPIError(502, "")
	if !strings.Contains(err.Error(), "unknown API error") {
		t.Errorf("got %q", err.Error())
	}
}
