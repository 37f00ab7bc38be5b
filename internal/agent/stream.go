package agent

import "context"

// StreamFacade wraps a TurnLoop invocation with a fluent callback registry,
// mirroring the rest of the stack's preference for a channel-driven
// goroutine (see the teacher AgenticLoop.Run) over a bare blocking call.
// Every On* method is optional, returns the facade for chaining, and
// panics if passed a nil handler — registering "no callback" just means
// not calling the method.
type StreamFacade struct {
	loop  *TurnLoop
	agent *Agent
	ctx   *Context
	input string

	onTurnStart       func(turn int)
	onTurnComplete    func(resp *Response)
	onTextDelta       func(delta string)
	onToolExecuted    func(exec ToolExecution)
	onToolCallPending func(call PendingToolCall, approve func(ok bool, reason string))
	onGuardrailFailed func(stage, name, reason string)
	onHandoff         func(from, to *Agent)
	onPause           func(state *AgentRunState)
	onComplete        func(result *AgentResult)
	onError           func(err error)
}

// NewStreamFacade builds a facade over loop that will run agent starting
// from input over runCtx (a fresh Context is created if runCtx is nil).
func NewStreamFacade(loop *TurnLoop, a *Agent, runCtx *Context, input string) *StreamFacade {
	return &StreamFacade{loop: loop, agent: a, ctx: runCtx, input: input}
}

func (f *StreamFacade) OnTurnStart(fn func(turn int)) *StreamFacade {
	mustHandler(fn)
	f.onTurnStart = fn
	return f
}

func (f *StreamFacade) OnTurnComplete(fn func(resp *Response)) *StreamFacade {
	mustHandler(fn)
	f.onTurnComplete = fn
	return f
}

func (f *StreamFacade) OnTextDelta(fn func(delta string)) *StreamFacade {
	mustHandler(fn)
	f.onTextDelta = fn
	return f
}

func (f *StreamFacade) OnToolExecuted(fn func(exec ToolExecution)) *StreamFacade {
	mustHandler(fn)
	f.onToolExecuted = fn
	return f
}

// OnToolCallPending registers the handler invoked just before a
// confirmation-gated call would pause the run. Calling approve from
// within fn resolves the call inline, within the same turn; not calling
// it falls through to the explicit pause path (OnPause).
func (f *StreamFacade) OnToolCallPending(fn func(call PendingToolCall, approve func(ok bool, reason string))) *StreamFacade {
	mustHandler(fn)
	f.onToolCallPending = fn
	return f
}

func (f *StreamFacade) OnGuardrailFailed(fn func(stage, name, reason string)) *StreamFacade {
	mustHandler(fn)
	f.onGuardrailFailed = fn
	return f
}

func (f *StreamFacade) OnHandoff(fn func(from, to *Agent)) *StreamFacade {
	mustHandler(fn)
	f.onHandoff = fn
	return f
}

func (f *StreamFacade) OnPause(fn func(state *AgentRunState)) *StreamFacade {
	mustHandler(fn)
	f.onPause = fn
	return f
}

func (f *StreamFacade) OnComplete(fn func(result *AgentResult)) *StreamFacade {
	mustHandler(fn)
	f.onComplete = fn
	return f
}

func (f *StreamFacade) OnError(fn func(err error)) *StreamFacade {
	mustHandler(fn)
	f.onError = fn
	return f
}

func mustHandler(fn any) {
	if fn == nil {
		panic("agent: nil stream callback registered")
	}
}

// StreamHandle is returned by Start; it completes when the driven run
// reaches a terminal state (success, error, or pause).
type StreamHandle struct {
	done   chan struct{}
	result *AgentResult
	err    error
}

// Wait blocks until the run completes, returning the same (result, error)
// pair the registered terminal callback already observed.
func (h *StreamHandle) Wait() (*AgentResult, error) {
	<-h.done
	return h.result, h.err
}

// Start runs the loop on its own goroutine and returns immediately with a
// handle that completes when the loop terminates.
func (f *StreamFacade) Start(ctx context.Context) *StreamHandle {
	h := &StreamHandle{done: make(chan struct{})}

	opts := f.loop.opts
	opts.OnTurnStart = f.onTurnStart
	opts.OnTurnComplete = f.onTurnComplete
	opts.OnTextDelta = f.onTextDelta
	opts.OnToolResult = f.onToolExecuted
	opts.OnToolCallPending = f.onToolCallPending
	opts.OnGuardrailFailed = f.onGuardrailFailed
	opts.OnHandoff = f.onHandoff
	opts.OnPause = f.onPause
	opts.OnComplete = func(r *AgentResult) {
		h.result = r
		if f.onComplete != nil {
			f.onComplete(r)
		}
	}
	opts.OnError = func(err error) {
		h.err = err
		if f.onError != nil {
			f.onError(err)
		}
	}
	driven := &TurnLoop{opts: opts}

	go func() {
		defer close(h.done)
		result, err := driven.Run(ctx, f.agent, f.ctx, f.input)
		if err != nil && h.err == nil {
			h.err = err
		}
		if result != nil && h.result == nil {
			h.result = result
		}
		// A pause is also a valid terminal outcome of Start: surface it
		// via OnPause (already fired from within the loop) without
		// treating it as an error.
		_ = result
	}()
	return h
}

// StartBlocking runs the facade's loop to completion on the calling
// goroutine and returns its terminal result.
func (f *StreamFacade) StartBlocking(ctx context.Context) (*AgentResult, error) {
	return f.Start(ctx).Wait()
}

// StartFailed builds a facade-less handle for a run that is already known
// to have failed before any LLM call was made (e.g. a pre-flight
// configuration error): it delivers OnError and OnComplete immediately.
func StartFailed(f *StreamFacade, err error) *StreamHandle {
	result := &AgentResult{Kind: ResultError, Err: err}
	if f.onError != nil {
		f.onError(err)
	}
	if f.onComplete != nil {
		f.onComplete(result)
	}
	h := &StreamHandle{done: make(chan struct{}), result: result, err: err}
	close(h.done)
	return h
}
