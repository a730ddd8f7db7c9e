package gateway

import (
	"context"
	"log/slog"
	"strings"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/pkg/llm"
	"github.com/user/agentdeck/pkg/llm/openai"
)

// Relay drives one upstream model call per dequeued entry and re-encodes
// its deltas as frames on the entry's output channel. Every entry that
// reaches the relay emits exactly one of done/error, except when the
// consumer disconnects mid-stream: then the relay stops silently and only
// closes the output.
type Relay struct {
	providers llm.Factory
}

// NewRelay creates a Relay. A nil factory uses the OpenAI-compatible client.
func NewRelay(factory llm.Factory) *Relay {
	if factory == nil {
		factory = func(cfg *llm.Config) llm.Provider {
			return openai.New(cfg)
		}
	}
	return &Relay{providers: factory}
}

// Process implements the queue Processor for one entry.
func (r *Relay) Process(ctx context.Context, e *Entry) {
	defer e.Close()

	if !e.Send(sse.JSONFrame(sse.EventStatus, sse.StatusData{State: sse.StateProcessing})) {
		return
	}

	// Consumer disconnect must cancel the upstream read.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	stop := context.AfterFunc(e.Context(), cancel)
	defer stop()

	upstream := e.Upstream
	provider := r.providers(&upstream)

	deltas, err := provider.Stream(ctx, e.System, e.Messages)
	if err != nil {
		slog.Error("upstream request failed", "entry_id", e.ID, "agent_id", e.AgentID, "error", err)
		e.Send(sse.JSONFrame(sse.EventError, sse.ErrorData{Message: err.Error()}))
		return
	}

	var full strings.Builder
	aborted := false
	for d := range deltas {
		switch {
		case aborted:
			// Drain until the provider notices cancellation.
		case e.Closed():
			slog.Info("consumer disconnected, cancelling upstream", "entry_id", e.ID, "agent_id", e.AgentID)
			aborted = true
			cancel()
		case d.Err != nil:
			slog.Error("upstream stream failed", "entry_id", e.ID, "agent_id", e.AgentID, "error", d.Err)
			e.Send(sse.JSONFrame(sse.EventError, sse.ErrorData{Message: d.Err.Error()}))
			aborted = true
			cancel()
		default:
			full.WriteString(d.Content)
			e.Send(sse.JSONFrame(sse.EventChunk, sse.ChunkData{Content: d.Content}))
		}
	}

	if aborted || e.Closed() || ctx.Err() != nil {
		return
	}
	e.Send(sse.JSONFrame(sse.EventDone, sse.DoneData{Content: full.String()}))
}
