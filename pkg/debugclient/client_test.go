package debugclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/pkg/llm"
)

func writeFrame(w http.ResponseWriter, f sse.Frame) {
	fmt.Fprint(w, sse.Encode(f))
	if fl, ok := w.(http.Flusher); ok {
		fl.Flush()
	}
}

func sseHeaders(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/event-stream")
	w.WriteHeader(http.StatusOK)
}

func TestClientStreamFrames(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/agents/a1/debug" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		var req DebugRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Error(err)
		}
		if len(req.Messages) != 1 || req.Messages[0].Content != "hi" {
			t.Errorf("unexpected request: %+v", req)
		}
		sseHeaders(w)
		writeFrame(w, sse.JSONFrame(sse.EventQueued, sse.QueuedData{Ahead: 0}))
		writeFrame(w, sse.JSONFrame(sse.EventStatus, sse.StatusData{State: sse.StateProcessing}))
		writeFrame(w, sse.JSONFrame(sse.EventChunk, sse.ChunkData{Content: "Hel"}))
		writeFrame(w, sse.JSONFrame(sse.EventDone, sse.DoneData{Content: "Hello"}))
	}))
	defer ts.Close()

	client := New(ts.URL)
	fs, err := client.Stream(context.Background(), "a1", DebugRequest{
		Messages: []llm.Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatal(err)
	}

	var events []string
	for f := range fs.Frames() {
		events = append(events, f.Event)
	}
	if fs.Err() != nil {
		t.Fatal(fs.Err())
	}
	want := []string{sse.EventQueued, sse.EventStatus, sse.EventChunk, sse.EventDone}
	if len(events) != len(want) {
		t.Fatalf("got %v, want %v", events, want)
	}
	for i := range want {
		if events[i] != want[i] {
			t.Errorf("frame %d: got %q, want %q", i, events[i], want[i])
		}
	}
}

func TestClientStreamServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		json.NewEncoder(w).Encode(map[string]string{"message": "messages must be a non-empty array"})
	}))
	defer ts.Close()

	client := New(ts.URL)
	_, err := client.Stream(context.Background(), "a1", DebugRequest{})
	if err == nil {
		t.Fatal("expected error")
	}
	if !strings.Contains(err.Error(), "messages must be a non-empty array") {
		t.Errorf("error should carry server message, got %q", err.Error())
	}
}
