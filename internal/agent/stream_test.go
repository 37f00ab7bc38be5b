package agent

import (
	"context"
	"errors"
	"testing"
)

func TestMustHandler_PanicsOnNil(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Fatal("expected a panic registering a nil callback")
		}
	}()
	NewStreamFacade(NewTurnLoop(RunOptions{}), nil, nil, "").OnComplete(nil)
}

func TestStreamFacade_ChainingReturnsSameFacade(t *testing.T) {
	f := NewStreamFacade(NewTurnLoop(RunOptions{}), nil, nil, "hi")
	got := f.OnTurnStart(func(int) {}).OnTextDelta(func(string) {})
	if got != f {
		t.Error("On* methods should return the same facade for chaining")
	}
}

func TestStreamFacade_StartBlockingRunsToCompletion(t *testing.T) {
	a, err := NewAgent(AgentConfig{
		Name: "assistant", Model: "m",
		Responder: &scriptedResponder{responses: []*Response{
			{Output: []OutputItem{{Type: OutputMessage, Content: []OutputContent{{Type: "output_text", Text: "done"}}}}},
		}},
	})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	var completed *AgentResult
	f := NewStreamFacade(NewTurnLoop(RunOptions{}), a, NewContext(), "hello").
		OnComplete(func(r *AgentResult) { completed = r })

	result, err := f.StartBlocking(context.Background())
	if err != nil {
		t.Fatalf("StartBlocking: %v", err)
	}
	if !result.IsSuccess() || result.Output != "done" {
		t.Fatalf("result = %+v", result)
	}
	if completed != result {
		t.Error("OnComplete should observe the same result StartBlocking returns")
	}
}

func TestStreamFacade_StartSurfacesErrorsViaOnError(t *testing.T) {
	a, err := NewAgent(AgentConfig{
		Name: "assistant", Model: "m",
		Responder: &scriptedResponder{err: errors.New("transport down")},
	})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}

	var gotErr error
	f := NewStreamFacade(NewTurnLoop(RunOptions{RetryPolicy: RetryPolicy{MaxAttempts: 1}}), a, NewContext(), "hello").
		OnError(func(err error) { gotErr = err })

	_, err = f.StartBlocking(context.Background())
	if err == nil {
		t.Fatal("expected StartBlocking to return an error")
	}
	if gotErr == nil {
		t.Error("expected OnError to have fired")
	}
}

func TestStreamHandle_WaitReturnsResultAndError(t *testing.T) {
	h := &StreamHandle{done: make(chan struct{}), result: &AgentResult{Kind: ResultSuccess}}
	close(h.done)
	result, err := h.Wait()
	if err != nil || !result.IsSuccess() {
		t.Errorf("Wait() = %+v, %v", result, err)
	}
}

func TestStartFailed_DeliversCallbacksAndClosesHandle(t *testing.T) {
	var gotErr error
	var gotResult *AgentResult
	f := NewStreamFacade(nil, nil, nil, "").
		OnError(func(err error) { gotErr = err }).
		OnComplete(func(r *AgentResult) { gotResult = r })

	want := errors.New("pre-flight failure")
	h := StartFailed(f, want)

	result, err := h.Wait()
	if !errors.Is(err, want) {
		t.Errorf("Wait() err = %v, want %v", err, want)
	}
	if !result.IsError() {
		t.Errorf("Wait() result = %+v, want ResultError", result)
	}
	if !errors.Is(gotErr, want) || gotResult != result {
		t.Error("StartFailed should deliver the error and result to registered callbacks")
	}
}
