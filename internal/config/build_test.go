package config

import (
	"context"
	"testing"

	"github.com/haasonsaas/conclave/internal/agent"
)

func baseConfig() *Config {
	return &Config{
		Providers: map[string]ProviderConfig{
			"main": {Kind: "anthropic", APIKey: "sk-test", DefaultModel: "claude-sonnet-4-20250514"},
		},
		Agents: []AgentConfig{
			{Name: "assistant", Provider: "main", Model: "claude-sonnet-4-20250514", Instructions: "be helpful"},
		},
		Topology: TopologyConfig{Kind: "single", Entry: "assistant"},
	}
}

func TestBuild_SingleTopologyProducesRunnableAgent(t *testing.T) {
	cfg := baseConfig()
	built, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Agents["assistant"] == nil {
		t.Fatal("expected assistant agent to be built")
	}
	if built.Run == nil {
		t.Fatal("expected a Runnable for the single topology")
	}
}

func TestBuild_UnknownProviderKindFails(t *testing.T) {
	cfg := baseConfig()
	cfg.Providers["main"] = ProviderConfig{Kind: "carrier-pigeon"}
	if _, err := Build(context.Background(), cfg, nil, nil); err == nil {
		t.Fatal("expected error for unknown provider kind")
	}
}

func TestBuild_HandoffsWireSiblingAgents(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents = append(cfg.Agents, AgentConfig{
		Name: "escalation", Provider: "main", Model: "claude-sonnet-4-20250514",
	})
	cfg.Agents[0].Handoffs = []string{"escalation"}
	cfg.Topology = TopologyConfig{Kind: "single", Entry: "assistant"}

	built, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Agents["assistant"] == nil || built.Agents["escalation"] == nil {
		t.Fatal("expected both assistant and escalation agents to be built")
	}
}

func TestBuild_ToolAndGuardrailResolution(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents[0].Tools = []string{"ghost-tool"}

	if _, err := Build(context.Background(), cfg, NewRegistry(), nil); err == nil {
		t.Fatal("expected error for unresolved tool reference")
	}
}

func TestBuild_RouterTopology(t *testing.T) {
	cfg := baseConfig()
	cfg.Agents = append(cfg.Agents,
		AgentConfig{Name: "classifier", Provider: "main", Model: "claude-sonnet-4-20250514"},
		AgentConfig{Name: "fallback", Provider: "main", Model: "claude-sonnet-4-20250514"},
	)
	cfg.Topology = TopologyConfig{
		Kind:       "router",
		Classifier: "classifier",
		Routes:     map[string]string{"general": "assistant"},
		Fallback:   "fallback",
	}

	built, err := Build(context.Background(), cfg, nil, nil)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Run == nil {
		t.Fatal("expected a router Runnable")
	}
}

func TestBuild_UsesProvidedLoop(t *testing.T) {
	cfg := baseConfig()
	loop := agent.NewTurnLoop(agent.RunOptions{})
	built, err := Build(context.Background(), cfg, nil, loop)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if built.Loop != loop {
		t.Error("Build should reuse the caller-supplied loop instead of constructing its own")
	}
}
