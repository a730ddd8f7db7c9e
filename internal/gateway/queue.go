package gateway

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/semaphore"

	"github.com/user/agentdeck/internal/sse"
	"github.com/user/agentdeck/internal/types"
)

// Processor runs one dequeued entry to completion, emitting frames on the
// entry's output and closing it before returning.
type Processor func(ctx context.Context, e *Entry)

// Queue serializes debug requests per agent. Each agent gets a FIFO pending
// list plus an in-flight flag; a semaphore limits the total number of
// concurrent relays across all agents. At most one drain goroutine runs per
// agent at any time, so entries for one agent are processed strictly in
// arrival order while distinct agents proceed concurrently.
type Queue struct {
	mu        sync.Mutex
	agents    map[types.AgentID]*agentState
	semaphore *semaphore.Weighted
	processor Processor

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

// agentState is the per-agent queue partition. Both fields are guarded by
// the queue mutex; "check inFlight, then act" is atomic under it.
type agentState struct {
	inFlight bool
	pending  []*Entry
}

// NewQueue creates a Queue that allows up to maxConcurrent relays to execute
// simultaneously across all agents.
func NewQueue(maxConcurrent int64) *Queue {
	if maxConcurrent <= 0 {
		maxConcurrent = 4
	}
	return &Queue{
		agents:    make(map[types.AgentID]*agentState),
		semaphore: semaphore.NewWeighted(maxConcurrent),
	}
}

// SetProcessor sets the function invoked for each dequeued entry.
func (q *Queue) SetProcessor(fn Processor) {
	q.processor = fn
}

// Start initialises the queue's context. Must be called before Enqueue.
func (q *Queue) Start(ctx context.Context) {
	q.ctx, q.cancel = context.WithCancel(ctx)
}

// Stop cancels the queue context, waits for in-flight relays to finish, and
// closes any entries still pending so no consumer is left hanging.
func (q *Queue) Stop() {
	if q.cancel != nil {
		q.cancel()
	}
	q.wg.Wait()

	q.mu.Lock()
	for _, st := range q.agents {
		for _, e := range st.pending {
			e.Close()
		}
		st.pending = nil
	}
	q.mu.Unlock()
}

// Enqueue appends an entry to its agent's pending queue, immediately emits
// a queued frame reporting how many entries sit ahead of it, and starts a
// drain goroutine for the agent when none is running.
func (q *Queue) Enqueue(e *Entry) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.ctx == nil {
		return fmt.Errorf("queue not started")
	}
	if q.ctx.Err() != nil {
		e.Close()
		return fmt.Errorf("queue stopped")
	}

	st := q.agents[e.AgentID]
	if st == nil {
		st = &agentState{}
		q.agents[e.AgentID] = st
	}

	ahead := len(st.pending)
	st.pending = append(st.pending, e)
	// Buffered output plus first frame: never blocks under the lock.
	e.Send(sse.JSONFrame(sse.EventQueued, sse.QueuedData{Ahead: ahead}))

	if !st.inFlight {
		st.inFlight = true
		q.wg.Add(1)
		go q.drain(e.AgentID)
	}
	return nil
}

// drain pops and processes entries for one agent until its pending list is
// empty. The inFlight flag, only ever flipped under the queue lock,
// guarantees a single drain goroutine per agent; redundant triggers are
// no-ops in Enqueue.
func (q *Queue) drain(agentID types.AgentID) {
	defer q.wg.Done()
	for {
		q.mu.Lock()
		st := q.agents[agentID]
		if len(st.pending) == 0 || q.ctx.Err() != nil {
			st.inFlight = false
			q.mu.Unlock()
			return
		}
		e := st.pending[0]
		st.pending = st.pending[1:]
		q.mu.Unlock()

		if err := q.semaphore.Acquire(q.ctx, 1); err != nil {
			e.Close()
			q.mu.Lock()
			st.inFlight = false
			q.mu.Unlock()
			return
		}
		q.process(e)
		q.semaphore.Release(1)
	}
}

// process runs the processor for one entry and guarantees the entry's
// output is closed afterwards, whatever the processor did.
func (q *Queue) process(e *Entry) {
	defer e.Close()
	if q.processor == nil {
		return
	}
	q.processor(q.ctx, e)
}
