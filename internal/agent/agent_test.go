package agent

import "testing"

func TestNewAgent_RequiresNameModelResponder(t *testing.T) {
	cases := []struct {
		name string
		cfg  AgentConfig
	}{
		{"empty name", AgentConfig{Model: "m", Responder: &scriptedResponder{}}},
		{"empty model", AgentConfig{Name: "a", Responder: &scriptedResponder{}}},
		{"nil responder", AgentConfig{Name: "a", Model: "m"}},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			if _, err := NewAgent(c.cfg); err == nil {
				t.Fatal("expected a ConfigurationError")
			}
		})
	}
}

func TestNewAgent_DefaultsMaxTurnsToTen(t *testing.T) {
	a, err := NewAgent(AgentConfig{Name: "a", Model: "m", Responder: &scriptedResponder{}})
	if err != nil {
		t.Fatalf("NewAgent: %v", err)
	}
	if a.MaxTurns() != 10 {
		t.Errorf("MaxTurns() = %d, want 10", a.MaxTurns())
	}
}

func TestNewAgent_RejectsTemperatureOutOfRange(t *testing.T) {
	bad := 2.5
	_, err := NewAgent(AgentConfig{Name: "a", Model: "m", Responder: &scriptedResponder{}, Temperature: &bad})
	if err == nil {
		t.Fatal("expected error for out-of-range temperature")
	}
}

func TestNewAgent_RejectsDuplicateToolNames(t *testing.T) {
	t1 := &staticTool{name: "dup"}
	t2 := &staticTool{name: "dup"}
	_, err := NewAgent(AgentConfig{Name: "a", Model: "m", Responder: &scriptedResponder{}, Tools: []Tool{t1, t2}})
	if err == nil {
		t.Fatal("expected error for duplicate tool names")
	}
}

func TestNewAgent_RejectsHandoffCollidingWithToolName(t *testing.T) {
	target, err := NewAgent(AgentConfig{Name: "Billing", Model: "m", Responder: &scriptedResponder{}})
	if err != nil {
		t.Fatalf("NewAgent(target): %v", err)
	}
	collidingTool := &staticTool{name: HandoffToolName("Billing")}
	_, err = NewAgent(AgentConfig{
		Name: "a", Model: "m", Responder: &scriptedResponder{},
		Tools: []Tool{collidingTool}, Handoffs: []*Agent{target},
	})
	if err == nil {
		t.Fatal("expected error for handoff tool name collision")
	}
}

func TestHandoffToolName_SnakeCasesTarget(t *testing.T) {
	if got := HandoffToolName("Data Analyst"); got != "transfer_to_data_analyst" {
		t.Errorf("HandoffToolName = %q, want transfer_to_data_analyst", got)
	}
}

func TestSnakeCase(t *testing.T) {
	cases := map[string]string{
		"Billing":       "billing",
		"Data Analyst":  "data_analyst",
		"already_snake": "already_snake",
		"HTTPServer":    "h_t_t_p_server",
	}
	for in, want := range cases {
		if got := snakeCase(in); got != want {
			t.Errorf("snakeCase(%q) = %q, want %q", in, got, want)
		}
	}
}
