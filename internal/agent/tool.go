package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

// Tool parameter limits to prevent resource exhaustion.
const (
	// MaxToolNameLength is the maximum length of a tool name.
	MaxToolNameLength = 256

	// MaxToolParamsSize is the maximum size of tool parameters JSON (10MB).
	MaxToolParamsSize = 10 << 20
)

// ToolResult is the outcome of invoking a Tool.
type ToolResult struct {
	Content string
	IsError bool
}

// Tool is anything an agent can invoke by name during a turn. Schema
// returns a JSON Schema (draft 2020-12, as validated by
// santhosh-tekuri/jsonschema) describing the shape of Input accepted by
// Execute; the registry validates arguments against it before dispatch.
type Tool interface {
	Name() string
	Description() string
	Schema() map[string]any
	Execute(ctx context.Context, input json.RawMessage) (*ToolResult, error)
	// RequiresConfirmation reports whether invoking this tool must pause
	// the run for human approval before Execute runs.
	RequiresConfirmation() bool
}

// ToolExecution is the record kept in an AgentRunState of one tool
// invocation: the call as requested by the model, the result once
// produced, and timing for observability.
type ToolExecution struct {
	CallID    string
	ToolName  string
	Input     json.RawMessage
	Result    *ToolResult
	StartedAt time.Time
	Duration  time.Duration
}

// ToolRegistry manages a set of Tools with thread-safe registration and
// dispatch. Tool names are unique within a registry; registering a tool
// under a name that already exists replaces the previous one.
type ToolRegistry struct {
	mu       sync.RWMutex
	tools    map[string]Tool
	schemas  map[string]*jsonschema.Schema
	validate bool
}

// NewToolRegistry creates an empty tool registry. When validateSchemas is
// true, every tool's declared Schema() is compiled once at registration
// time and used to validate arguments before every Execute call.
func NewToolRegistry(validateSchemas bool) *ToolRegistry {
	return &ToolRegistry{
		tools:    make(map[string]Tool),
		schemas:  make(map[string]*jsonschema.Schema),
		validate: validateSchemas,
	}
}

// Register adds a tool to the registry by its name, compiling its schema
// if schema validation is enabled. A compile failure is returned as a
// *ConfigurationError so bad tool schemas are caught at build time.
func (r *ToolRegistry) Register(tool Tool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	name := tool.Name()
	if name == "" {
		return &ConfigurationError{Field: "Tool.Name", Message: "tool name must not be empty"}
	}
	if len(name) > MaxToolNameLength {
		return &ConfigurationError{Field: "Tool.Name", Message: fmt.Sprintf("tool name exceeds %d characters", MaxToolNameLength)}
	}

	r.tools[name] = tool
	delete(r.schemas, name)

	if r.validate {
		schema := tool.Schema()
		if len(schema) == 0 {
			return nil
		}
		compiled, err := compileSchema(name, schema)
		if err != nil {
			return &ConfigurationError{Field: "Tool.Schema", Message: fmt.Sprintf("tool %q: %v", name, err)}
		}
		r.schemas[name] = compiled
	}
	return nil
}

// Unregister removes a tool from the registry by name.
func (r *ToolRegistry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.tools, name)
	delete(r.schemas, name)
}

// Get returns a tool by name and whether it was found.
func (r *ToolRegistry) Get(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	tool, ok := r.tools[name]
	return tool, ok
}

// All returns every registered tool.
func (r *ToolRegistry) All() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.tools))
	for _, t := range r.tools {
		out = append(out, t)
	}
	return out
}

// Execute dispatches a tool call by name. An unknown tool name or a schema
// validation failure produces an error ToolResult rather than a Go error:
// the loop folds these into the turn's tool output rather than crashing.
func (r *ToolRegistry) Execute(ctx context.Context, name string, params json.RawMessage) (*ToolResult, error) {
	if len(params) > MaxToolParamsSize {
		return &ToolResult{Content: fmt.Sprintf("tool parameters exceed maximum size of %d bytes", MaxToolParamsSize), IsError: true}, nil
	}

	r.mu.RLock()
	tool, ok := r.tools[name]
	schema := r.schemas[name]
	r.mu.RUnlock()
	if !ok {
		return &ToolResult{Content: "tool not found: " + name, IsError: true}, nil
	}

	if schema != nil {
		var v any
		if len(params) == 0 {
			v = map[string]any{}
		} else if err := json.Unmarshal(params, &v); err != nil {
			return &ToolResult{Content: fmt.Sprintf("invalid tool arguments: %v", err), IsError: true}, nil
		}
		if err := schema.Validate(v); err != nil {
			return &ToolResult{Content: fmt.Sprintf("tool arguments failed validation: %v", err), IsError: true}, nil
		}
	}

	return tool.Execute(ctx, params)
}

func compileSchema(name string, schema map[string]any) (*jsonschema.Schema, error) {
	raw, err := json.Marshal(schema)
	if err != nil {
		return nil, err
	}
	compiler := jsonschema.NewCompiler()
	url := "mem://tools/" + name + ".json"
	if err := compiler.AddResource(url, bytes.NewReader(raw)); err != nil {
		return nil, err
	}
	return compiler.Compile(url)
}
