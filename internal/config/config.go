// Package config loads a YAML roster describing the agents, providers, and
// topology a conclave deployment should run, the way the teacher's
// internal/config loads its channel and LLM rosters: read the file, expand
// ${ENV} references, and unmarshal into typed structs with yaml tags.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/haasonsaas/conclave/internal/tools/policy"
)

// Config is the top-level roster: providers supply model access, agents
// describe participants built from those providers, and Topology composes
// them into a single run shape.
type Config struct {
	Observability ObservabilityConfig     `yaml:"observability"`
	Providers     map[string]ProviderConfig `yaml:"providers"`
	Agents        []AgentConfig           `yaml:"agents"`
	Topology      TopologyConfig          `yaml:"topology"`
}

// ProviderConfig configures one named Responder backend. Kind selects which
// concrete provider in internal/providers to construct; fields unused by
// that provider are ignored.
type ProviderConfig struct {
	Kind         string `yaml:"kind"` // "anthropic", "openai", "bedrock", "gemini"
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	Region       string `yaml:"region"`
	DefaultModel string `yaml:"default_model"`
}

// AgentConfig declares one agent.Agent to build: which provider backs it,
// which tools and guardrails (named, resolved against a caller-supplied
// registry) it carries, and which peers it may hand off to.
type AgentConfig struct {
	Name             string   `yaml:"name"`
	Provider         string   `yaml:"provider"`
	Model            string   `yaml:"model"`
	Instructions     string   `yaml:"instructions"`
	Tools            []string `yaml:"tools"`
	InputGuardrails  []string `yaml:"input_guardrails"`
	OutputGuardrails []string `yaml:"output_guardrails"`
	Handoffs         []string `yaml:"handoffs"`
	MaxTurns         int      `yaml:"max_turns"`
	Temperature      *float64 `yaml:"temperature"`
	MaxOutputTokens  int      `yaml:"max_output_tokens"`

	// TrustProfile names a policy.Profile ("minimal", "coding", "messaging",
	// "full") this agent is confirmation-gated under, supplementing any
	// tool's own static RequiresConfirmation flag. Empty means the agent is
	// gated only by each tool's own flag.
	TrustProfile string `yaml:"trust_profile"`
}

// TopologyConfig selects the orchestration shape a run composes its agents
// into. Kind is one of "single", "router", "parallel", "hierarchical", or
// "network"; the fields relevant to that kind are required, the rest
// ignored.
type TopologyConfig struct {
	Kind string `yaml:"kind"`

	Entry       string            `yaml:"entry"`       // single: the one agent to run
	Classifier  string            `yaml:"classifier"`  // router: routing agent
	Routes      map[string]string `yaml:"routes"`       // router: label -> agent name
	Fallback    string            `yaml:"fallback"`     // router/network fallback or synthesizer
	Members     []string          `yaml:"members"`      // parallel: agents to fan out to
	Executive   string                      `yaml:"executive"`   // hierarchical: top-level agent
	Departments map[string]DepartmentConfig `yaml:"departments"` // hierarchical: name -> manager+workers
	Peers       []string                    `yaml:"peers"`        // network: agents that may hand off to each other
	Synthesizer string                      `yaml:"synthesizer"` // network: final summarizing agent
	MaxRounds   int                         `yaml:"max_rounds"`  // network: handoff round cap
}

// DepartmentConfig names one hierarchical department's manager and its
// worker pool, each resolved against the roster's agent names.
type DepartmentConfig struct {
	Manager string   `yaml:"manager"`
	Workers []string `yaml:"workers"`
}

// ObservabilityConfig configures the ambient logging, metrics, and tracing
// stack every deployment carries regardless of which topology it runs.
type ObservabilityConfig struct {
	LogLevel         string        `yaml:"log_level"`
	LogFormat        string        `yaml:"log_format"` // "json" or "text"
	ServiceName      string        `yaml:"service_name"`
	ServiceVersion   string        `yaml:"service_version"`
	Environment      string        `yaml:"environment"`
	MetricsEnabled   bool          `yaml:"metrics_enabled"`
	TracingEnabled   bool          `yaml:"tracing_enabled"`
	OTLPEndpoint     string        `yaml:"otlp_endpoint"`
	TracingSampleRate float64      `yaml:"tracing_sample_rate"`
	ShutdownTimeout  time.Duration `yaml:"shutdown_timeout"`
}

// Load reads path, expands ${VAR} references from the process environment
// the way the teacher's loader does, and unmarshals the result into a
// Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: reading %s: %w", path, err)
	}
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("config: parsing %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the roster for internally-consistent references: every
// agent's provider and handoff targets must name something else declared in
// the same file, and the topology must reference agents that exist.
func (c *Config) Validate() error {
	names := make(map[string]bool, len(c.Agents))
	for _, a := range c.Agents {
		if strings.TrimSpace(a.Name) == "" {
			return fmt.Errorf("config: agent with empty name")
		}
		if names[a.Name] {
			return fmt.Errorf("config: duplicate agent name %q", a.Name)
		}
		names[a.Name] = true
		if _, ok := c.Providers[a.Provider]; a.Provider != "" && !ok {
			return fmt.Errorf("config: agent %q references unknown provider %q", a.Name, a.Provider)
		}
		if a.TrustProfile != "" {
			if _, ok := policy.ProfileDefaults[policy.Profile(a.TrustProfile)]; !ok {
				return fmt.Errorf("config: agent %q has unknown trust_profile %q", a.Name, a.TrustProfile)
			}
		}
	}
	for _, a := range c.Agents {
		for _, h := range a.Handoffs {
			if !names[h] {
				return fmt.Errorf("config: agent %q hands off to unknown agent %q", a.Name, h)
			}
		}
	}

	req := func(field, name string) error {
		if name != "" && !names[name] {
			return fmt.Errorf("config: topology.%s references unknown agent %q", field, name)
		}
		return nil
	}

	switch c.Topology.Kind {
	case "", "single":
		return req("entry", c.Topology.Entry)
	case "router":
		if err := req("classifier", c.Topology.Classifier); err != nil {
			return err
		}
		for label, target := range c.Topology.Routes {
			if !names[target] {
				return fmt.Errorf("config: topology.routes[%s] references unknown agent %q", label, target)
			}
		}
		return req("fallback", c.Topology.Fallback)
	case "parallel":
		for _, m := range c.Topology.Members {
			if err := req("members", m); err != nil {
				return err
			}
		}
	case "hierarchical":
		if err := req("executive", c.Topology.Executive); err != nil {
			return err
		}
		for dept, d := range c.Topology.Departments {
			if !names[d.Manager] {
				return fmt.Errorf("config: topology.departments[%s].manager references unknown agent %q", dept, d.Manager)
			}
			if len(d.Workers) == 0 {
				return fmt.Errorf("config: topology.departments[%s] has no workers", dept)
			}
			for _, w := range d.Workers {
				if !names[w] {
					return fmt.Errorf("config: topology.departments[%s] references unknown worker %q", dept, w)
				}
			}
		}
	case "network":
		for _, p := range c.Topology.Peers {
			if err := req("peers", p); err != nil {
				return err
			}
		}
		if err := req("synthesizer", c.Topology.Synthesizer); err != nil {
			return err
		}
	default:
		return fmt.Errorf("config: unknown topology kind %q", c.Topology.Kind)
	}
	return nil
}
