package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/internal/types"
	"github.com/user/agentdeck/pkg/llm"
)

func newTestEntry(agent types.AgentID) *Entry {
	return NewEntry(context.Background(), agent, "sys", []llm.Message{{Role: "user", Content: "hi"}}, llm.Config{})
}

// drainFrames consumes an entry's output in the background so sends never block.
func drainFrames(e *Entry) {
	go func() {
		for range e.Frames() {
		}
	}()
}

func TestQueueFIFOSameAgent(t *testing.T) {
	queue := NewQueue(4)
	queue.Start(context.Background())
	defer queue.Stop()

	var mu sync.Mutex
	var order []types.EntryID
	done := make(chan struct{})

	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		mu.Lock()
		order = append(order, e.ID)
		n := len(order)
		mu.Unlock()
		if n == 5 {
			close(done)
		}
	})

	var want []types.EntryID
	for i := 0; i < 5; i++ {
		e := newTestEntry("agent-fifo")
		drainFrames(e)
		want = append(want, e.ID)
		if err := queue.Enqueue(e); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for entries to process")
	}

	mu.Lock()
	defer mu.Unlock()
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("position %d: got %s, want %s", i, order[i], want[i])
		}
	}
}

func TestQueueMutualExclusionPerAgent(t *testing.T) {
	queue := NewQueue(8)
	queue.Start(context.Background())
	defer queue.Stop()

	var running int32
	var maxSeen int32
	var processed int32

	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		atomic.AddInt32(&processed, 1)
	})

	// Concurrent enqueues for one agent from many goroutines.
	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			e := newTestEntry("agent-mutex")
			drainFrames(e)
			if err := queue.Enqueue(e); err != nil {
				t.Error(err)
			}
		}()
	}
	wg.Wait()

	deadline := time.After(5 * time.Second)
	for atomic.LoadInt32(&processed) < 10 {
		select {
		case <-deadline:
			t.Fatalf("timed out: processed %d of 10", atomic.LoadInt32(&processed))
		case <-time.After(10 * time.Millisecond):
		}
	}

	if m := atomic.LoadInt32(&maxSeen); m > 1 {
		t.Errorf("expected at most 1 concurrent relay for one agent, saw %d", m)
	}
}

func TestQueueCrossAgentConcurrency(t *testing.T) {
	queue := NewQueue(8)
	queue.Start(context.Background())
	defer queue.Stop()

	var running int32
	var maxSeen int32
	done := make(chan struct{})
	var processed int32

	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(100 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		if atomic.AddInt32(&processed, 1) == 4 {
			close(done)
		}
	})

	for i := 0; i < 4; i++ {
		e := newTestEntry(types.AgentID(fmt.Sprintf("agent-%d", i)))
		drainFrames(e)
		if err := queue.Enqueue(e); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for entries to process")
	}

	if m := atomic.LoadInt32(&maxSeen); m < 2 {
		t.Errorf("expected distinct agents to run concurrently, max seen %d", m)
	}
}

func TestQueueSemaphoreCapsConcurrency(t *testing.T) {
	queue := NewQueue(2)
	queue.Start(context.Background())
	defer queue.Stop()

	var running int32
	var maxSeen int32
	done := make(chan struct{})
	var processed int32

	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		current := atomic.AddInt32(&running, 1)
		for {
			old := atomic.LoadInt32(&maxSeen)
			if current <= old || atomic.CompareAndSwapInt32(&maxSeen, old, current) {
				break
			}
		}
		time.Sleep(50 * time.Millisecond)
		atomic.AddInt32(&running, -1)
		if atomic.AddInt32(&processed, 1) == 5 {
			close(done)
		}
	})

	for i := 0; i < 5; i++ {
		e := newTestEntry(types.AgentID(fmt.Sprintf("capped-%d", i)))
		drainFrames(e)
		if err := queue.Enqueue(e); err != nil {
			t.Fatal(err)
		}
	}

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for entries to process")
	}

	if m := atomic.LoadInt32(&maxSeen); m > 2 {
		t.Errorf("expected max 2 concurrent, saw %d", m)
	}
}

func queuedAhead(t *testing.T, e *Entry) int {
	t.Helper()
	select {
	case f := <-e.Frames():
		if f.Event != sse.EventQueued {
			t.Fatalf("expected queued frame first, got %q", f.Event)
		}
		var d sse.QueuedData
		if err := json.Unmarshal([]byte(f.Data), &d); err != nil {
			t.Fatal(err)
		}
		return d.Ahead
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for queued frame")
		return 0
	}
}

func TestQueuedFramePositions(t *testing.T) {
	queue := NewQueue(4)
	queue.Start(context.Background())
	defer queue.Stop()

	started := make(chan struct{}, 3)
	release := make(chan struct{})
	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		started <- struct{}{}
		select {
		case <-release:
		case <-ctx.Done():
		}
	})
	defer close(release)

	first := newTestEntry("agent-pos")
	if err := queue.Enqueue(first); err != nil {
		t.Fatal(err)
	}
	if ahead := queuedAhead(t, first); ahead != 0 {
		t.Errorf("first entry: got ahead=%d, want 0", ahead)
	}

	// Wait until the first entry is in flight, so positions are deterministic.
	<-started

	second := newTestEntry("agent-pos")
	if err := queue.Enqueue(second); err != nil {
		t.Fatal(err)
	}
	if ahead := queuedAhead(t, second); ahead != 0 {
		t.Errorf("second entry (first in flight): got ahead=%d, want 0", ahead)
	}

	third := newTestEntry("agent-pos")
	if err := queue.Enqueue(third); err != nil {
		t.Fatal(err)
	}
	if ahead := queuedAhead(t, third); ahead != 1 {
		t.Errorf("third entry: got ahead=%d, want 1", ahead)
	}

	drainFrames(second)
	drainFrames(third)
}

func TestQueueClosesEntryAfterProcessing(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())
	defer queue.Stop()

	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		e.Send(sse.JSONFrame(sse.EventDone, sse.DoneData{Content: "x"}))
	})

	e := newTestEntry("agent-close")
	if err := queue.Enqueue(e); err != nil {
		t.Fatal(err)
	}

	var events []string
	timeout := time.After(2 * time.Second)
	for {
		select {
		case f, ok := <-e.Frames():
			if !ok {
				if len(events) != 2 || events[0] != sse.EventQueued || events[1] != sse.EventDone {
					t.Errorf("unexpected frame sequence: %v", events)
				}
				if !e.Closed() {
					t.Error("entry should report closed")
				}
				if e.Send(sse.Frame{Event: "late"}) {
					t.Error("send after close must fail")
				}
				return
			}
			events = append(events, f.Event)
		case <-timeout:
			t.Fatal("timed out waiting for channel close")
		}
	}
}

func TestQueueStopClosesPending(t *testing.T) {
	queue := NewQueue(1)
	queue.Start(context.Background())

	started := make(chan struct{})
	release := make(chan struct{})
	queue.SetProcessor(func(ctx context.Context, e *Entry) {
		close(started)
		select {
		case <-release:
		case <-ctx.Done():
		}
	})

	first := newTestEntry("agent-stop")
	drainFrames(first)
	if err := queue.Enqueue(first); err != nil {
		t.Fatal(err)
	}
	<-started

	second := newTestEntry("agent-stop")
	if err := queue.Enqueue(second); err != nil {
		t.Fatal(err)
	}

	go func() {
		time.Sleep(20 * time.Millisecond)
		close(release)
	}()
	queue.Stop()

	// The pending entry's channel must be closed by Stop.
	timeout := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-second.Frames():
			if !ok {
				return
			}
		case <-timeout:
			t.Fatal("pending entry left open after Stop")
		}
	}
}

func TestQueueEnqueueBeforeStart(t *testing.T) {
	queue := NewQueue(1)
	if err := queue.Enqueue(newTestEntry("agent-x")); err == nil {
		t.Error("expected error when enqueueing before Start")
	}
}
