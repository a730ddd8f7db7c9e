package gateway

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/internal/types"
	"github.com/user/agentdeck/pkg/llm"
)

// Entry is one pending or active debug request: the assembled prompt, the
// upstream configuration resolved at enqueue time, and the output channel
// the consumer streams frames from.
//
// Frames are only ever sent from the stage that currently owns the entry
// (Enqueue under the queue lock, then the single relay goroutine), so Send
// never races Close.
type Entry struct {
	ID        types.EntryID
	AgentID   types.AgentID
	System    string
	Messages  []llm.Message
	Upstream  llm.Config
	CreatedAt time.Time

	ctx    context.Context
	out    chan sse.Frame
	closed atomic.Bool
	once   sync.Once
}

// NewEntry creates an Entry bound to the consumer's context; when that
// context ends the consumer is considered gone and sends become no-ops.
func NewEntry(ctx context.Context, agentID types.AgentID, system string, messages []llm.Message, upstream llm.Config) *Entry {
	if ctx == nil {
		ctx = context.Background()
	}
	return &Entry{
		ID:        types.NewEntryID(),
		AgentID:   agentID,
		System:    system,
		Messages:  messages,
		Upstream:  upstream,
		CreatedAt: time.Now(),
		ctx:       ctx,
		out:       make(chan sse.Frame, 16),
	}
}

// Frames returns the receive side of the entry's output channel. It is
// closed exactly once, after the terminal frame (or on abandonment).
func (e *Entry) Frames() <-chan sse.Frame {
	return e.out
}

// Context returns the consumer's context.
func (e *Entry) Context() context.Context {
	return e.ctx
}

// Closed reports whether the entry's output is closed or its consumer has
// gone away.
func (e *Entry) Closed() bool {
	return e.closed.Load() || e.ctx.Err() != nil
}

// Send delivers one frame to the consumer. Returns false once the entry is
// closed or the consumer has disconnected; the frame is dropped then.
func (e *Entry) Send(f sse.Frame) bool {
	if e.Closed() {
		return false
	}
	select {
	case e.out <- f:
		return true
	case <-e.ctx.Done():
		e.closed.Store(true)
		return false
	}
}

// Close marks the entry closed and closes the output channel. Idempotent.
func (e *Entry) Close() {
	e.once.Do(func() {
		e.closed.Store(true)
		close(e.out)
	})
}
