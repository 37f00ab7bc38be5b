package agent

import (
	"sync"

	"go.opentelemetry.io/otel/trace"

	"github.com/haasonsaas/conclave/pkg/models"
)

// TraceContext carries the distributed-tracing identifiers associated with a
// single agent run. It is lazily initialized the first time a Context is
// touched by the loop, mirroring how the rest of the stack derives span
// linkage from the ambient otel SDK rather than hand-rolled IDs.
type TraceContext struct {
	TraceID trace.TraceID
	SpanID  trace.SpanID
}

// HistoryEntry is one append-only record in a Context's conversation
// history: either a message exchanged with the model or the record of a
// tool having been invoked.
type HistoryEntry struct {
	Role     models.Role
	Content  string
	ToolCall *models.ToolCall
	Tool     *ToolExecution
}

// Context is the mutable container threaded through a single agent run. It
// owns the pending input queue, the append-only history, a free-form state
// bag orchestrators and tools can use to pass data between turns, and the
// trace identifiers for the run.
//
// A Context is not safe for concurrent use by multiple turn loops; each
// orchestrator member gets its own Context and there is no shared mutable
// state across siblings.
type Context struct {
	mu sync.Mutex

	inputQueue []string
	history    []HistoryEntry
	state      map[string]any
	trace      *TraceContext
}

// NewContext creates an empty Context.
func NewContext() *Context {
	return &Context{
		state: make(map[string]any),
	}
}

// AddInput appends a message to the pending input queue. Queued inputs are
// drained, in FIFO order, the next time the turn loop looks for work.
func (c *Context) AddInput(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputQueue = append(c.inputQueue, text)
}

// DrainInput removes and returns all queued inputs in FIFO order, leaving
// the queue empty.
func (c *Context) DrainInput() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.inputQueue) == 0 {
		return nil
	}
	drained := c.inputQueue
	c.inputQueue = nil
	return drained
}

// AppendHistory adds an entry to the conversation history. History is
// append-only: nothing removes entries except Clear.
func (c *Context) AppendHistory(entry HistoryEntry) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.history = append(c.history, entry)
}

// History returns a copy of the conversation history so far. Callers may
// freely mutate the returned slice without affecting the Context.
func (c *Context) History() []HistoryEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]HistoryEntry, len(c.history))
	copy(out, c.history)
	return out
}

// HistorySize returns the number of entries recorded so far.
func (c *Context) HistorySize() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.history)
}

// GetState retrieves a value previously stored with SetState.
func (c *Context) GetState(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.state[key]
	return v, ok
}

// SetState stores a value in the per-run state bag, overwriting any
// previous value for the same key.
func (c *Context) SetState(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.state[key] = value
}

// StateSnapshot returns a shallow copy of the entire state map, letting
// collaborators (e.g. a sub-agent tool sharing caller state) see every
// key without knowing their names in advance.
func (c *Context) StateSnapshot() map[string]any {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make(map[string]any, len(c.state))
	for k, v := range c.state {
		out[k] = v
	}
	return out
}

// TraceContext returns the run's trace identifiers, initializing them from
// the ambient otel SpanContext on first use.
func (c *Context) TraceContext() TraceContext {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.trace == nil {
		c.trace = &TraceContext{
			TraceID: newTraceID(),
			SpanID:  newSpanID(),
		}
	}
	return *c.trace
}

// Clear resets the Context to its initial empty state. The trace context is
// preserved so a cleared Context still belongs to the same run.
func (c *Context) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.inputQueue = nil
	c.history = nil
	c.state = make(map[string]any)
}

// Copy returns a deep, independent copy of the Context: mutating the copy
// (or the original) afterward never affects the other.
func (c *Context) Copy() *Context {
	c.mu.Lock()
	defer c.mu.Unlock()

	cp := &Context{
		state: make(map[string]any, len(c.state)),
	}
	cp.inputQueue = append([]string(nil), c.inputQueue...)
	cp.history = append([]HistoryEntry(nil), c.history...)
	for k, v := range c.state {
		cp.state[k] = v
	}
	if c.trace != nil {
		tc := *c.trace
		cp.trace = &tc
	}
	return cp
}
