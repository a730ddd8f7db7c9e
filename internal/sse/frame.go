// Package sse implements the text-event push protocol shared by the debug
// endpoint and its client consumer: named events with payload lines,
// blank-line terminated.
package sse

import (
	"encoding/json"
	"strings"
)

// Event names emitted by the debug stream.
const (
	EventQueued = "queued"
	EventStatus = "status"
	EventChunk  = "chunk"
	EventDone   = "done"
	EventError  = "error"
)

// StateProcessing is the status payload state sent when a relay starts
// driving the upstream call.
const StateProcessing = "processing"

// QueuedData reports the position in the per-agent queue (0 = next).
type QueuedData struct {
	Ahead int `json:"ahead"`
}

// StatusData reports a relay state change.
type StatusData struct {
	State string `json:"state"`
}

// ChunkData carries one incremental text delta.
type ChunkData struct {
	Content string `json:"content"`
}

// DoneData carries the final full text; terminal.
type DoneData struct {
	Content string `json:"content"`
}

// ErrorData carries a terminal failure message; no further frames follow.
type ErrorData struct {
	Message string `json:"message"`
}

// Frame is one event+data unit of the push protocol. Data is opaque,
// conventionally JSON.
type Frame struct {
	Event string
	Data  string
}

// JSONFrame builds a frame whose data is the JSON encoding of v.
func JSONFrame(event string, v any) Frame {
	data, err := json.Marshal(v)
	if err != nil {
		// Payload types are plain structs; this only trips on programmer error.
		return Frame{Event: EventError, Data: `{"message":"internal encoding error"}`}
	}
	return Frame{Event: event, Data: string(data)}
}

// Encode renders a frame in wire format: an event line, one data line per
// payload line, and a terminating blank line.
func Encode(f Frame) string {
	var b strings.Builder
	b.WriteString("event: ")
	b.WriteString(f.Event)
	b.WriteByte('\n')
	for _, line := range strings.Split(f.Data, "\n") {
		b.WriteString("data: ")
		b.WriteString(line)
		b.WriteByte('\n')
	}
	b.WriteByte('\n')
	return b.String()
}

// Decoder incrementally decodes frames from a byte stream. Chunks may split
// a frame at any byte boundary; unterminated input is buffered until the
// closing blank line arrives.
type Decoder struct {
	buf []byte
}

// Feed appends a chunk to the internal buffer and returns every fully
// terminated frame found. Partial frames are never returned and no bytes
// are dropped between calls.
func (d *Decoder) Feed(chunk []byte) []Frame {
	d.buf = append(d.buf, chunk...)
	var frames []Frame
	for {
		block, rest, ok := splitBlock(d.buf)
		if !ok {
			return frames
		}
		d.buf = rest
		if f, ok := parseBlock(block); ok {
			frames = append(frames, f)
		}
	}
}

// Buffered reports how many unconsumed bytes are waiting for a terminator.
func (d *Decoder) Buffered() int {
	return len(d.buf)
}

// splitBlock finds the first blank-line terminator ("\n\n", tolerating CR)
// and splits the buffer around it.
func splitBlock(buf []byte) (block, rest []byte, ok bool) {
	for i := 0; i < len(buf)-1; i++ {
		if buf[i] != '\n' {
			continue
		}
		if buf[i+1] == '\n' {
			return buf[:i], buf[i+2:], true
		}
		if i+2 < len(buf) && buf[i+1] == '\r' && buf[i+2] == '\n' {
			return buf[:i], buf[i+3:], true
		}
	}
	return nil, buf, false
}

// parseBlock decodes one raw frame block. Comment lines (leading ':') are
// skipped, the event defaults to "message", and multiple data line bodies
// are joined with newlines. Blocks with neither event nor data are dropped.
func parseBlock(block []byte) (Frame, bool) {
	event := ""
	var data []string
	seen := false

	for _, line := range strings.Split(string(block), "\n") {
		line = strings.TrimSuffix(line, "\r")
		if line == "" || strings.HasPrefix(line, ":") {
			continue
		}
		name, value, found := strings.Cut(line, ":")
		if !found {
			continue
		}
		value = strings.TrimPrefix(value, " ")
		switch name {
		case "event":
			event = value
			seen = true
		case "data":
			data = append(data, value)
			seen = true
		}
	}

	if !seen {
		return Frame{}, false
	}
	if event == "" {
		event = "message"
	}
	return Frame{Event: event, Data: strings.Join(data, "\n")}, true
}
