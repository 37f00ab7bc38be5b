package config

import (
	"context"
	"fmt"

	"github.com/haasonsaas/conclave/internal/agent"
	"github.com/haasonsaas/conclave/internal/orchestrate"
	"github.com/haasonsaas/conclave/internal/providers"
	"github.com/haasonsaas/conclave/internal/tools/policy"
)

// Registry supplies the Go-native pieces a YAML roster cannot declare:
// concrete tools and guardrails, looked up by the name an AgentConfig
// references. Deployments register whatever tools their agents need before
// calling Build.
type Registry struct {
	Tools      map[string]agent.Tool
	Guardrails map[string]agent.Guardrail
}

// NewRegistry returns an empty Registry ready for Tools/Guardrails to be
// populated.
func NewRegistry() *Registry {
	return &Registry{
		Tools:      make(map[string]agent.Tool),
		Guardrails: make(map[string]agent.Guardrail),
	}
}

// Runnable is the shape every topology Build produces collapses to, so
// cmd/conclave can drive any of them identically.
type Runnable interface {
	Run(ctx context.Context, input string) (*agent.AgentResult, error)
}

// Built holds everything Build constructed: every named agent (so callers
// can inspect or reuse one directly) and the Runnable the topology
// produced.
type Built struct {
	Loop      *agent.TurnLoop
	Agents    map[string]*agent.Agent
	Run       Runnable
}

// Build constructs providers, agents, and the configured topology from cfg,
// resolving each agent's tools and guardrails against reg. ctx is used only
// for provider constructors that perform startup I/O (Bedrock, Gemini).
func Build(ctx context.Context, cfg *Config, reg *Registry, loop *agent.TurnLoop) (*Built, error) {
	if reg == nil {
		reg = NewRegistry()
	}

	responders := make(map[string]agent.Responder, len(cfg.Providers))
	for name, pc := range cfg.Providers {
		r, err := buildResponder(ctx, pc)
		if err != nil {
			return nil, fmt.Errorf("config: building provider %q: %w", name, err)
		}
		responders[name] = r
	}

	agents := make(map[string]*agent.Agent, len(cfg.Agents))
	// First pass: construct every agent with no handoffs, since handoffs
	// reference sibling *agent.Agent values that must already exist.
	pending := make(map[string]AgentConfig, len(cfg.Agents))
	for _, ac := range cfg.Agents {
		pending[ac.Name] = ac
		built, err := buildAgent(ac, responders, reg, nil)
		if err != nil {
			return nil, err
		}
		agents[ac.Name] = built
	}
	// Second pass: rebuild any agent that declares handoffs now that every
	// peer exists. Agents are immutable once built, so a handoff-bearing
	// agent must be constructed fresh rather than mutated in place.
	for _, ac := range cfg.Agents {
		if len(ac.Handoffs) == 0 {
			continue
		}
		handoffs := make([]*agent.Agent, 0, len(ac.Handoffs))
		for _, h := range ac.Handoffs {
			handoffs = append(handoffs, agents[h])
		}
		built, err := buildAgent(ac, responders, reg, handoffs)
		if err != nil {
			return nil, err
		}
		agents[ac.Name] = built
	}

	if loop == nil {
		loop = agent.NewTurnLoop(agent.RunOptions{Confirmation: BuildConfirmationPolicy(cfg)})
	}

	run, err := buildTopology(cfg.Topology, loop, agents)
	if err != nil {
		return nil, err
	}

	return &Built{Loop: loop, Agents: agents, Run: run}, nil
}

// BuildConfirmationPolicy builds an agent.ConfirmationPolicy from the
// per-agent trust_profile fields in cfg, so a low-trust agent can be forced
// through the turn loop's confirmation gate for a tool its own static flag
// marks as safe. Agents with no trust_profile are gated only by that flag.
func BuildConfirmationPolicy(cfg *Config) *policy.AgentConfirmation {
	confirmation := policy.NewAgentConfirmation(policy.NewResolver(), nil)
	for _, ac := range cfg.Agents {
		if ac.TrustProfile == "" {
			continue
		}
		confirmation.SetPolicy(ac.Name, &policy.Policy{Profile: policy.Profile(ac.TrustProfile)})
	}
	return confirmation
}

func buildResponder(ctx context.Context, pc ProviderConfig) (agent.Responder, error) {
	switch pc.Kind {
	case "anthropic":
		return providers.NewAnthropicResponder(providers.AnthropicConfig{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.DefaultModel,
		})
	case "openai":
		return providers.NewOpenAIResponder(providers.OpenAIConfig{
			APIKey:       pc.APIKey,
			BaseURL:      pc.BaseURL,
			DefaultModel: pc.DefaultModel,
		})
	case "bedrock":
		return providers.NewBedrockResponder(ctx, providers.BedrockConfig{
			Region:       pc.Region,
			DefaultModel: pc.DefaultModel,
		})
	case "gemini":
		return providers.NewGeminiResponder(ctx, providers.GeminiConfig{
			APIKey:       pc.APIKey,
			DefaultModel: pc.DefaultModel,
		})
	default:
		return nil, fmt.Errorf("config: unknown provider kind %q", pc.Kind)
	}
}

func buildAgent(ac AgentConfig, responders map[string]agent.Responder, reg *Registry, handoffs []*agent.Agent) (*agent.Agent, error) {
	var responder agent.Responder
	if ac.Provider != "" {
		responder = responders[ac.Provider]
	}

	tools := make([]agent.Tool, 0, len(ac.Tools))
	for _, name := range ac.Tools {
		t, ok := reg.Tools[name]
		if !ok {
			return nil, fmt.Errorf("config: agent %q references unknown tool %q", ac.Name, name)
		}
		tools = append(tools, t)
	}
	inputGuards, err := resolveGuardrails(ac.Name, "input_guardrails", ac.InputGuardrails, reg)
	if err != nil {
		return nil, err
	}
	outputGuards, err := resolveGuardrails(ac.Name, "output_guardrails", ac.OutputGuardrails, reg)
	if err != nil {
		return nil, err
	}

	return agent.NewAgent(agent.AgentConfig{
		Name:             ac.Name,
		Model:            ac.Model,
		Instructions:     ac.Instructions,
		Responder:        responder,
		Tools:            tools,
		InputGuardrails:  inputGuards,
		OutputGuardrails: outputGuards,
		Handoffs:         handoffs,
		MaxTurns:         ac.MaxTurns,
		Temperature:      ac.Temperature,
		MaxOutputTokens:  ac.MaxOutputTokens,
	})
}

func resolveGuardrails(agentName, field string, names []string, reg *Registry) ([]agent.Guardrail, error) {
	out := make([]agent.Guardrail, 0, len(names))
	for _, name := range names {
		g, ok := reg.Guardrails[name]
		if !ok {
			return nil, fmt.Errorf("config: agent %q %s references unknown guardrail %q", agentName, field, name)
		}
		out = append(out, g)
	}
	return out, nil
}

// singleRunnable drives one agent directly through the shared loop.
type singleRunnable struct {
	loop *agent.TurnLoop
	a    *agent.Agent
}

func (s singleRunnable) Run(ctx context.Context, input string) (*agent.AgentResult, error) {
	return s.loop.Run(ctx, s.a, agent.NewContext(), input)
}

type routerRunnable struct{ r *orchestrate.Router }

func (s routerRunnable) Run(ctx context.Context, input string) (*agent.AgentResult, error) {
	return s.r.Route(ctx, input)
}

type parallelRunnable struct{ p *orchestrate.Parallel }

func (s parallelRunnable) Run(ctx context.Context, input string) (*agent.AgentResult, error) {
	return s.p.RunFirst(ctx, input)
}

type hierarchicalRunnable struct{ h *orchestrate.Hierarchical }

func (s hierarchicalRunnable) Run(ctx context.Context, input string) (*agent.AgentResult, error) {
	return s.h.Execute(ctx, agent.NewContext(), input)
}

type networkRunnable struct{ n *orchestrate.Network }

func (s networkRunnable) Run(ctx context.Context, input string) (*agent.AgentResult, error) {
	result, err := s.n.Discuss(ctx, input)
	if err != nil {
		return nil, err
	}
	if synth, ok := result.Synthesis(); ok {
		return synth, nil
	}
	if last, ok := result.LastContribution(); ok {
		return &agent.AgentResult{Kind: agent.ResultSuccess, Output: last.Output}, nil
	}
	return &agent.AgentResult{Kind: agent.ResultSuccess}, nil
}

func buildTopology(tc TopologyConfig, loop *agent.TurnLoop, agents map[string]*agent.Agent) (Runnable, error) {
	switch tc.Kind {
	case "", "single":
		a, ok := agents[tc.Entry]
		if !ok {
			return nil, fmt.Errorf("config: topology entry %q not found", tc.Entry)
		}
		return singleRunnable{loop: loop, a: a}, nil

	case "router":
		routes := make([]orchestrate.Route, 0, len(tc.Routes))
		for label, target := range tc.Routes {
			routes = append(routes, orchestrate.Route{Agent: agents[target], Description: label})
		}
		r, err := orchestrate.NewRouter(loop, agents[tc.Classifier], routes, agents[tc.Fallback])
		if err != nil {
			return nil, err
		}
		return routerRunnable{r: r}, nil

	case "parallel":
		members := make([]*agent.Agent, 0, len(tc.Members))
		for _, m := range tc.Members {
			members = append(members, agents[m])
		}
		p, err := orchestrate.NewParallel(loop, members)
		if err != nil {
			return nil, err
		}
		return parallelRunnable{p: p}, nil

	case "hierarchical":
		depts := make(map[string]orchestrate.Department, len(tc.Departments))
		for name, d := range tc.Departments {
			workers := make([]*agent.Agent, 0, len(d.Workers))
			for _, w := range d.Workers {
				workers = append(workers, agents[w])
			}
			depts[name] = orchestrate.Department{Manager: agents[d.Manager], Workers: workers}
		}
		h, err := orchestrate.NewHierarchical(loop, agents[tc.Executive], depts)
		if err != nil {
			return nil, err
		}
		return hierarchicalRunnable{h: h}, nil

	case "network":
		peers := make([]*agent.Agent, 0, len(tc.Peers))
		for _, p := range tc.Peers {
			peers = append(peers, agents[p])
		}
		n, err := orchestrate.NewNetwork(loop, peers, agents[tc.Synthesizer], tc.MaxRounds)
		if err != nil {
			return nil, err
		}
		return networkRunnable{n: n}, nil

	default:
		return nil, fmt.Errorf("config: unknown topology kind %q", tc.Kind)
	}
}
