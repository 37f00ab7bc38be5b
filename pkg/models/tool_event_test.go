package models

import (
	"encoding/json"
	"testing"
	"time"
)

func TestToolEventStage_Constants(t *testing.T) {
	tests := []struct {
		stage    ToolEventStage
		expected string
	}{
		{ToolEventRequested, "requested"},
		{ToolEventStarted, "started"},
		{ToolEventSucceeded, "succeeded"},
		{ToolEventFailed, "failed"},
		{ToolEventDenied, "denied"},
		{ToolEventRetrying, "retrying"},
		{ToolEventApprovalRequired, "approval_required"},
	}

	for _, tt := range tests {
		t.Run(string(tt.stage), func(t *testing.T) {
			if string(tt.stage) != tt.expected {
				t.Errorf("stage = %q, want %q", tt.stage, tt.expected)
			}
		})
	}
}

func TestToolEvent_Struct(t *testing.T) {
	started := time.Now()
	finished := started.Add(time.Second)

	event := ToolEvent{
		ToolCallID:   "call-1",
		ToolName:     "web_search",
		Stage:        ToolEventSucceeded,
		Attempt:      2,
		Input:        json.RawMessage(`{"query":"go"}`),
		Output:       "42 results",
		PolicyReason: "",
		StartedAt:    started,
		FinishedAt:   finished,
	}

	if event.ToolCallID != "call-1" {
		t.Errorf("ToolCallID = %q, want %q", event.ToolCallID, "call-1")
	}
	if event.Stage != ToolEventSucceeded {
		t.Errorf("Stage = %v, want %v", event.Stage, ToolEventSucceeded)
	}
	if event.Attempt != 2 {
		t.Errorf("Attempt = %d, want 2", event.Attempt)
	}
	if !event.FinishedAt.After(event.StartedAt) {
		t.Errorf("FinishedAt = %v, want after StartedAt = %v", event.FinishedAt, event.StartedAt)
	}
}

func TestToolEvent_JSONRoundTrip(t *testing.T) {
	original := ToolEvent{
		ToolCallID:   "call-2",
		ToolName:     "exec",
		Stage:        ToolEventFailed,
		Attempt:      1,
		Input:        json.RawMessage(`{"cmd":"ls"}`),
		Error:        "permission denied",
		PolicyReason: "profile minimal denies exec",
	}

	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var decoded ToolEvent
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	if decoded.ToolName != original.ToolName {
		t.Errorf("ToolName = %q, want %q", decoded.ToolName, original.ToolName)
	}
	if decoded.Stage != original.Stage {
		t.Errorf("Stage = %v, want %v", decoded.Stage, original.Stage)
	}
	if decoded.Error != original.Error {
		t.Errorf("Error = %q, want %q", decoded.Error, original.Error)
	}
	if decoded.PolicyReason != original.PolicyReason {
		t.Errorf("PolicyReason = %q, want %q", decoded.PolicyReason, original.PolicyReason)
	}
}

func TestToolEvent_OmitsEmptyOptionalFields(t *testing.T) {
	event := ToolEvent{ToolCallID: "call-3", ToolName: "noop", Stage: ToolEventRequested}

	data, err := json.Marshal(event)
	if err != nil {
		t.Fatalf("Marshal error: %v", err)
	}

	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		t.Fatalf("Unmarshal error: %v", err)
	}

	for _, omitted := range []string{"attempt", "input", "output", "error", "policy_reason", "started_at", "finished_at"} {
		if _, present := raw[omitted]; present {
			t.Errorf("expected field %q to be omitted when empty, raw = %v", omitted, raw)
		}
	}
}
