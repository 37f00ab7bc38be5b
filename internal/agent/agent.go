package agent

import (
	"fmt"
	"strings"
	"unicode"
)

// Agent is an immutable configuration record describing one participant in
// a run: the model it talks to, the tools it may call, the guardrails that
// police its input and output, and the peers it may hand off to.
//
// Agents are built once via NewAgent and never mutated afterward; the same
// *Agent value can be shared safely across concurrent orchestrator members.
type Agent struct {
	name         string
	model        string
	instructions string
	responder    Responder

	tools      []Tool
	toolByName map[string]Tool

	inputGuardrails  []Guardrail
	outputGuardrails []Guardrail

	handoffs      []*Agent
	handoffByTool map[string]*Agent

	maxTurns        int
	temperature     *float64
	maxOutputTokens int
	metadata        map[string]string

	outputSchema StructuredSchema
}

// StructuredSchema describes the shape a structured agent's final text
// output must parse into. A nil schema means the agent produces plain text.
type StructuredSchema struct {
	Name   string
	Schema map[string]any
	Parse  func(text string) (any, error)
}

// AgentConfig is the declarative form consumed by NewAgent.
type AgentConfig struct {
	Name         string
	Model        string
	Instructions string
	Responder    Responder

	Tools            []Tool
	InputGuardrails  []Guardrail
	OutputGuardrails []Guardrail
	Handoffs         []*Agent

	// MaxTurns caps the number of model round-trips this agent will take
	// in a single run before it fails with ErrMaxTurnsExceeded. Defaults
	// to 10 when zero.
	MaxTurns int

	// Temperature, when set, must fall within [0, 2].
	Temperature *float64
	// MaxOutputTokens, when set, must be > 0.
	MaxOutputTokens int
	Metadata        map[string]string

	OutputSchema *StructuredSchema
}

// NewAgent validates cfg and returns an immutable Agent, or a
// *ConfigurationError describing the first invariant violated. Validation
// happens eagerly at build time so misconfiguration never surfaces mid-run.
func NewAgent(cfg AgentConfig) (*Agent, error) {
	if strings.TrimSpace(cfg.Name) == "" {
		return nil, &ConfigurationError{Field: "Name", Message: "agent name must not be empty"}
	}
	if strings.TrimSpace(cfg.Model) == "" {
		return nil, &ConfigurationError{Field: "Model", Message: "agent model must not be empty"}
	}
	if cfg.Responder == nil {
		return nil, &ConfigurationError{Field: "Responder", Message: "agent responder must not be nil"}
	}

	maxTurns := cfg.MaxTurns
	if maxTurns == 0 {
		maxTurns = 10
	}
	if maxTurns < 1 {
		return nil, &ConfigurationError{Field: "MaxTurns", Message: "maxTurns must be >= 1"}
	}
	if cfg.Temperature != nil && (*cfg.Temperature < 0 || *cfg.Temperature > 2) {
		return nil, &ConfigurationError{Field: "Temperature", Message: "temperature must be within [0, 2]"}
	}
	if cfg.MaxOutputTokens < 0 {
		return nil, &ConfigurationError{Field: "MaxOutputTokens", Message: "maxOutputTokens must be > 0 when set"}
	}

	toolByName := make(map[string]Tool, len(cfg.Tools))
	for _, t := range cfg.Tools {
		name := t.Name()
		if name == "" {
			return nil, &ConfigurationError{Field: "Tools", Message: "tool name must not be empty"}
		}
		if _, dup := toolByName[name]; dup {
			return nil, &ConfigurationError{Field: "Tools", Message: fmt.Sprintf("duplicate tool name %q", name)}
		}
		toolByName[name] = t
	}

	handoffByTool := make(map[string]*Agent, len(cfg.Handoffs))
	for _, target := range cfg.Handoffs {
		if target == nil {
			return nil, &ConfigurationError{Field: "Handoffs", Message: "handoff target must not be nil"}
		}
		toolName := HandoffToolName(target.Name())
		if _, collide := toolByName[toolName]; collide {
			return nil, &ConfigurationError{
				Field:   "Handoffs",
				Message: fmt.Sprintf("handoff tool %q collides with a regular tool name", toolName),
			}
		}
		if _, dup := handoffByTool[toolName]; dup {
			return nil, &ConfigurationError{Field: "Handoffs", Message: fmt.Sprintf("duplicate handoff target produces tool %q", toolName)}
		}
		handoffByTool[toolName] = target
	}

	a := &Agent{
		name:             cfg.Name,
		model:            cfg.Model,
		instructions:     cfg.Instructions,
		responder:        cfg.Responder,
		tools:            append([]Tool(nil), cfg.Tools...),
		toolByName:       toolByName,
		inputGuardrails:  append([]Guardrail(nil), cfg.InputGuardrails...),
		outputGuardrails: append([]Guardrail(nil), cfg.OutputGuardrails...),
		handoffs:         append([]*Agent(nil), cfg.Handoffs...),
		handoffByTool:    handoffByTool,
		maxTurns:         maxTurns,
		temperature:      cfg.Temperature,
		maxOutputTokens:  cfg.MaxOutputTokens,
		metadata:         cfg.Metadata,
	}
	if cfg.OutputSchema != nil {
		a.outputSchema = *cfg.OutputSchema
	}
	return a, nil
}

func (a *Agent) Name() string         { return a.name }
func (a *Agent) Model() string        { return a.model }
func (a *Agent) Instructions() string { return a.instructions }
func (a *Agent) MaxTurns() int        { return a.maxTurns }
func (a *Agent) Tools() []Tool        { return append([]Tool(nil), a.tools...) }
func (a *Agent) IsStructured() bool   { return a.outputSchema.Parse != nil }
func (a *Agent) Temperature() *float64   { return a.temperature }
func (a *Agent) MaxOutputTokens() int    { return a.maxOutputTokens }

func (a *Agent) lookupTool(name string) (Tool, bool) {
	t, ok := a.toolByName[name]
	return t, ok
}

func (a *Agent) lookupHandoff(toolName string) (*Agent, bool) {
	target, ok := a.handoffByTool[toolName]
	return target, ok
}

// HandoffToolName returns the synthetic tool name the loop dispatches to
// when an agent hands a run off to the named target:
// transfer_to_<snake_case(target)>.
func HandoffToolName(targetName string) string {
	return "transfer_to_" + snakeCase(targetName)
}

// SnakeCase converts a CamelCase or space-separated name into snake_case,
// exported for collaborators (e.g. the sub-agent tool adapter) that derive
// tool names from agent names the same way handoffs do.
func SnakeCase(s string) string { return snakeCase(s) }

func snakeCase(s string) string {
	var b strings.Builder
	prevLower := false
	for _, r := range s {
		switch {
		case unicode.IsUpper(r):
			if prevLower {
				b.WriteByte('_')
			}
			b.WriteRune(unicode.ToLower(r))
			prevLower = false
		case unicode.IsLetter(r) || unicode.IsDigit(r):
			b.WriteRune(r)
			prevLower = true
		default:
			if b.Len() > 0 && !strings.HasSuffix(b.String(), "_") {
				b.WriteByte('_')
			}
			prevLower = false
		}
	}
	return strings.Trim(b.String(), "_")
}
