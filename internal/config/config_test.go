package config

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "roster.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	return path
}

func TestLoad_SingleTopology(t *testing.T) {
	path := writeTempConfig(t, `
providers:
  main:
    kind: anthropic
    api_key: ${TEST_ANTHROPIC_KEY}
    default_model: claude-sonnet-4-20250514

agents:
  - name: assistant
    provider: main
    model: claude-sonnet-4-20250514
    instructions: "You are a helpful assistant."

topology:
  kind: single
  entry: assistant
`)
	t.Setenv("TEST_ANTHROPIC_KEY", "sk-test-123")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Providers["main"].APIKey != "sk-test-123" {
		t.Errorf("APIKey = %q, want expanded env value", cfg.Providers["main"].APIKey)
	}
	if len(cfg.Agents) != 1 || cfg.Agents[0].Name != "assistant" {
		t.Fatalf("Agents = %+v", cfg.Agents)
	}
	if cfg.Topology.Kind != "single" || cfg.Topology.Entry != "assistant" {
		t.Fatalf("Topology = %+v", cfg.Topology)
	}
}

func TestValidate_RejectsUnknownProvider(t *testing.T) {
	cfg := &Config{
		Agents: []AgentConfig{{Name: "a", Provider: "missing"}},
		Topology: TopologyConfig{Kind: "single", Entry: "a"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown provider reference")
	}
}

func TestValidate_RejectsDuplicateAgentNames(t *testing.T) {
	cfg := &Config{
		Agents:   []AgentConfig{{Name: "a"}, {Name: "a"}},
		Topology: TopologyConfig{Kind: "single", Entry: "a"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for duplicate agent name")
	}
}

func TestValidate_RejectsUnknownHandoffTarget(t *testing.T) {
	cfg := &Config{
		Agents:   []AgentConfig{{Name: "a", Handoffs: []string{"ghost"}}},
		Topology: TopologyConfig{Kind: "single", Entry: "a"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown handoff target")
	}
}

func TestValidate_RouterRequiresKnownRoutesAndFallback(t *testing.T) {
	cfg := &Config{
		Agents: []AgentConfig{{Name: "classifier"}, {Name: "billing"}, {Name: "fallback"}},
		Topology: TopologyConfig{
			Kind:       "router",
			Classifier: "classifier",
			Routes:     map[string]string{"billing": "billing"},
			Fallback:   "fallback",
		},
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	cfg.Topology.Routes["support"] = "ghost"
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for route targeting unknown agent")
	}
}

func TestValidate_HierarchicalRequiresWorkers(t *testing.T) {
	cfg := &Config{
		Agents: []AgentConfig{{Name: "ceo"}, {Name: "manager"}},
		Topology: TopologyConfig{
			Kind:      "hierarchical",
			Executive: "ceo",
			Departments: map[string]DepartmentConfig{
				"eng": {Manager: "manager"},
			},
		},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for department with no workers")
	}
}

func TestValidate_RejectsUnknownTopologyKind(t *testing.T) {
	cfg := &Config{
		Agents:   []AgentConfig{{Name: "a"}},
		Topology: TopologyConfig{Kind: "swarm"},
	}
	if err := cfg.Validate(); err == nil {
		t.Fatal("expected error for unknown topology kind")
	}
}
