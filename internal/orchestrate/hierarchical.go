package orchestrate

import (
	"context"
	"fmt"

	"github.com/haasonsaas/conclave/internal/agent"
)

// Department is one manager and its ordered, non-empty worker pool within
// a Hierarchical topology.
type Department struct {
	Manager *agent.Agent
	Workers []*agent.Agent
}

// Hierarchical composes one executive agent over a map of named
// departments. The executive is wired (by the caller, at agent-build time)
// with a SubAgentTool per department manager; each manager is wired with a
// SubAgentTool per worker. Hierarchical itself only tracks the topology
// for SendToDepartment's direct-dispatch bypass.
type Hierarchical struct {
	loop        *agent.TurnLoop
	executive   *agent.Agent
	departments map[string]Department
}

// NewHierarchical builds a Hierarchical topology. departments must be
// non-empty, and every department must have at least one worker.
func NewHierarchical(loop *agent.TurnLoop, executive *agent.Agent, departments map[string]Department) (*Hierarchical, error) {
	if executive == nil {
		return nil, &agent.ConfigurationError{Field: "Executive", Message: "hierarchical topology requires an executive agent"}
	}
	if len(departments) == 0 {
		return nil, &agent.ConfigurationError{Field: "Departments", Message: "hierarchical topology requires at least one department"}
	}
	for name, dept := range departments {
		if dept.Manager == nil {
			return nil, &agent.ConfigurationError{Field: "Departments", Message: fmt.Sprintf("department %q has no manager", name)}
		}
		if len(dept.Workers) == 0 {
			return nil, &agent.ConfigurationError{Field: "Departments", Message: fmt.Sprintf("department %q has no workers", name)}
		}
	}
	return &Hierarchical{
		loop:        loop,
		executive:   executive,
		departments: departments,
	}, nil
}

// Execute runs the executive agent over task; the executive is expected to
// delegate to department managers via its wired sub-agent tools.
func (h *Hierarchical) Execute(ctx context.Context, runCtx *agent.Context, task string) (*agent.AgentResult, error) {
	if runCtx == nil {
		runCtx = agent.NewContext()
	}
	return h.loop.Run(ctx, h.executive, runCtx, task)
}

// SendToDepartment bypasses the executive and runs the named manager
// directly over task. An unknown department name is an error.
func (h *Hierarchical) SendToDepartment(ctx context.Context, name, task string) (*agent.AgentResult, error) {
	dept, ok := h.departments[name]
	if !ok {
		return nil, fmt.Errorf("orchestrate: unknown department %q", name)
	}
	return h.loop.Run(ctx, dept.Manager, agent.NewContext(), task)
}
