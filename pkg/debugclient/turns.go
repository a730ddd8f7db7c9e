// pkg/debugclient/turns.go
package debugclient

import (
	"context"
	"encoding/json"
	"sync"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/internal/types"
	"github.com/user/agentdeck/pkg/llm"
)

// TurnStatus is the lifecycle state of a chat turn.
type TurnStatus string

const (
	TurnQueued    TurnStatus = "queued"
	TurnStreaming TurnStatus = "streaming"
	TurnDone      TurnStatus = "done"
	TurnError     TurnStatus = "error"
)

// ChatTurn is one entry in the conversation timeline.
type ChatTurn struct {
	ID      types.TurnID
	Role    string
	Content string
	Status  TurnStatus
	Err     string
	Ahead   int
}

// Draft holds input submitted while a turn is still in flight. The ID is
// reserved up front so the eventual turn keeps a stable identity no matter
// how many submissions coalesce into it.
type Draft struct {
	ID   types.TurnID
	Text string
}

// Conversation drives a debug chat against one agent: it submits turns,
// folds the frame stream into the timeline, and coalesces input that
// arrives while a turn is active.
type Conversation struct {
	mu      sync.Mutex
	cond    *sync.Cond
	client  *Client
	agentID types.AgentID
	context string

	turns    []*ChatTurn
	draft    *Draft
	active   bool
	onUpdate func()
}

// NewConversation creates a Conversation for the given agent. The context
// string is sent verbatim with every turn.
func NewConversation(client *Client, agentID types.AgentID, agentContext string) *Conversation {
	c := &Conversation{
		client:  client,
		agentID: agentID,
		context: agentContext,
	}
	c.cond = sync.NewCond(&c.mu)
	return c
}

// OnUpdate registers a callback invoked after every timeline change. Set it
// before the first Submit.
func (c *Conversation) OnUpdate(fn func()) {
	c.mu.Lock()
	c.onUpdate = fn
	c.mu.Unlock()
}

// Turns returns a snapshot of the timeline.
func (c *Conversation) Turns() []ChatTurn {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]ChatTurn, len(c.turns))
	for i, t := range c.turns {
		out[i] = *t
	}
	return out
}

// Submit sends user input. If a turn is already in flight the text is
// buffered into the draft and auto-submitted as a single follow-up when
// the active turn settles.
func (c *Conversation) Submit(ctx context.Context, text string) {
	c.mu.Lock()
	if c.active {
		if c.draft == nil {
			c.draft = &Draft{ID: types.NewTurnID(), Text: text}
		} else {
			c.draft.Text += "\n" + text
		}
		c.mu.Unlock()
		c.notify()
		return
	}
	c.startLocked(ctx, types.NewTurnID(), text)
	c.mu.Unlock()
	c.notify()
}

// Wait blocks until no turn is in flight and no draft is pending.
func (c *Conversation) Wait() {
	c.mu.Lock()
	for c.active || c.draft != nil {
		c.cond.Wait()
	}
	c.mu.Unlock()
}

// startLocked appends the user turn and its assistant placeholder and
// launches the stream. Caller holds c.mu.
func (c *Conversation) startLocked(ctx context.Context, id types.TurnID, text string) {
	c.turns = append(c.turns, &ChatTurn{
		ID:      id,
		Role:    "user",
		Content: text,
		Status:  TurnDone,
	})
	assistant := &ChatTurn{
		ID:     types.NewTurnID(),
		Role:   "assistant",
		Status: TurnQueued,
	}
	c.turns = append(c.turns, assistant)
	c.active = true

	messages := c.historyLocked()
	go c.run(ctx, assistant, messages)
}

// historyLocked flattens settled turns into the wire history. Errored and
// empty assistant turns are dropped so a failed exchange does not poison
// the next one. Caller holds c.mu.
func (c *Conversation) historyLocked() []llm.Message {
	var out []llm.Message
	for _, t := range c.turns {
		if t.Status != TurnDone || t.Content == "" {
			continue
		}
		out = append(out, llm.Message{Role: t.Role, Content: t.Content})
	}
	return out
}

func (c *Conversation) run(ctx context.Context, turn *ChatTurn, messages []llm.Message) {
	fs, err := c.client.Stream(ctx, c.agentID, DebugRequest{
		Context:  c.context,
		Messages: messages,
	})
	if err != nil {
		c.mu.Lock()
		c.failLocked(turn, err.Error())
		c.settleLocked(ctx)
		c.mu.Unlock()
		c.notify()
		return
	}

	terminal := false
	for f := range fs.Frames() {
		c.mu.Lock()
		switch f.Event {
		case sse.EventQueued:
			var d sse.QueuedData
			if json.Unmarshal([]byte(f.Data), &d) == nil {
				turn.Ahead = d.Ahead
			}
		case sse.EventStatus:
			turn.Status = TurnStreaming
		case sse.EventChunk:
			var d sse.ChunkData
			if json.Unmarshal([]byte(f.Data), &d) == nil {
				turn.Content += d.Content
			}
		case sse.EventDone:
			var d sse.DoneData
			if json.Unmarshal([]byte(f.Data), &d) == nil {
				// The final payload is authoritative over the chunk buffer.
				turn.Content = d.Content
			}
			turn.Status = TurnDone
			terminal = true
		case sse.EventError:
			var d sse.ErrorData
			msg := "upstream error"
			if json.Unmarshal([]byte(f.Data), &d) == nil && d.Message != "" {
				msg = d.Message
			}
			c.failLocked(turn, msg)
			terminal = true
		}
		c.mu.Unlock()
		c.notify()
	}

	c.mu.Lock()
	if !terminal {
		msg := "stream closed before completion"
		if err := fs.Err(); err != nil {
			msg = err.Error()
		}
		c.failLocked(turn, msg)
	}
	c.settleLocked(ctx)
	c.mu.Unlock()
	c.notify()
}

// failLocked marks a turn errored, discarding any partial content. Caller
// holds c.mu.
func (c *Conversation) failLocked(turn *ChatTurn, msg string) {
	turn.Content = ""
	turn.Err = msg
	turn.Status = TurnError
}

// settleLocked ends the active turn and flushes the pending draft, if any,
// as the next turn under its reserved id. Caller holds c.mu.
func (c *Conversation) settleLocked(ctx context.Context) {
	c.active = false
	if c.draft != nil && ctx.Err() == nil {
		d := c.draft
		c.draft = nil
		c.startLocked(ctx, d.ID, d.Text)
	}
	c.cond.Broadcast()
}

func (c *Conversation) notify() {
	c.mu.Lock()
	fn := c.onUpdate
	c.mu.Unlock()
	if fn != nil {
		fn()
	}
}
