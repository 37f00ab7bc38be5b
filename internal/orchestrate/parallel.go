package orchestrate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/haasonsaas/conclave/internal/agent"
)

// Parallel fans a single input out to an ordered, non-empty set of member
// agents, each on its own Context: no shared mutable state between
// siblings, matching the ownership rule in internal/agent.Context.
type Parallel struct {
	loop    *agent.TurnLoop
	members []*agent.Agent

	onAgentTextDelta func(a *agent.Agent, delta string)
	onAgentTurnStart func(a *agent.Agent, turn int)
	onAgentComplete  func(a *agent.Agent, result *agent.AgentResult)
}

// NewParallel builds a Parallel over members, in registration order.
func NewParallel(loop *agent.TurnLoop, members []*agent.Agent) (*Parallel, error) {
	if len(members) == 0 {
		return nil, &agent.ConfigurationError{Field: "Members", Message: "parallel requires at least one member agent"}
	}
	return &Parallel{loop: loop, members: append([]*agent.Agent(nil), members...)}, nil
}

func (p *Parallel) OnAgentTextDelta(fn func(a *agent.Agent, delta string)) *Parallel {
	p.onAgentTextDelta = fn
	return p
}

func (p *Parallel) OnAgentTurnStart(fn func(a *agent.Agent, turn int)) *Parallel {
	p.onAgentTurnStart = fn
	return p
}

func (p *Parallel) OnAgentComplete(fn func(a *agent.Agent, result *agent.AgentResult)) *Parallel {
	p.onAgentComplete = fn
	return p
}

func (p *Parallel) runMember(ctx context.Context, member *agent.Agent, input string) *agent.AgentResult {
	facade := agent.NewStreamFacade(p.loop, member, agent.NewContext(), input)
	if p.onAgentTextDelta != nil {
		facade.OnTextDelta(func(delta string) { p.onAgentTextDelta(member, delta) })
	}
	if p.onAgentTurnStart != nil {
		facade.OnTurnStart(func(turn int) { p.onAgentTurnStart(member, turn) })
	}
	result, err := facade.StartBlocking(ctx)
	if err != nil && result == nil {
		result = agent.ErrorResult(err, agent.NewAgentRunState(member, agent.NewContext()))
	}
	if p.onAgentComplete != nil {
		p.onAgentComplete(member, result)
	}
	return result
}

// RunAll invokes every member concurrently with independent contexts and
// returns results in member-registration order. A member failure occupies
// its own slot rather than cancelling siblings.
func (p *Parallel) RunAll(ctx context.Context, input string) []*agent.AgentResult {
	results := make([]*agent.AgentResult, len(p.members))
	var wg sync.WaitGroup
	for i, member := range p.members {
		wg.Add(1)
		go func(idx int, m *agent.Agent) {
			defer wg.Done()
			results[idx] = p.runMember(ctx, m, input)
		}(i, member)
	}
	wg.Wait()
	return results
}

// RunFirst invokes every member concurrently and resolves with the first
// non-error result; stragglers are cancelled best-effort once a winner is
// chosen.
func (p *Parallel) RunFirst(ctx context.Context, input string) (*agent.AgentResult, error) {
	raceCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		result *agent.AgentResult
	}
	out := make(chan outcome, len(p.members))

	for _, member := range p.members {
		go func(m *agent.Agent) {
			out <- outcome{result: p.runMember(raceCtx, m, input)}
		}(member)
	}

	var lastErr *agent.AgentResult
	for i := 0; i < len(p.members); i++ {
		o := <-out
		if o.result != nil && o.result.IsSuccess() {
			cancel()
			return o.result, nil
		}
		lastErr = o.result
	}
	if lastErr != nil {
		return lastErr, nil
	}
	return nil, fmt.Errorf("orchestrate: all parallel members failed")
}

// RunAndSynthesize runs RunAll, then invokes synthesizer over a prompt
// composed from every worker output, returning the synthesizer's result.
func (p *Parallel) RunAndSynthesize(ctx context.Context, input string, synthesizer *agent.Agent) (*agent.AgentResult, []*agent.AgentResult, error) {
	if synthesizer == nil {
		return nil, nil, &agent.ConfigurationError{Field: "Synthesizer", Message: "synthesize mode requires a synthesizer agent"}
	}
	results := p.RunAll(ctx, input)

	var b strings.Builder
	b.WriteString("Synthesize the following worker responses into one answer.\n\n")
	for i, r := range results {
		name := p.members[i].Name()
		if r.IsSuccess() {
			fmt.Fprintf(&b, "[%s]\n%s\n\n", name, r.Output)
		} else {
			fmt.Fprintf(&b, "[%s]\n(failed: %v)\n\n", name, r.Err)
		}
	}

	synth := p.runMember(ctx, synthesizer, b.String())
	return synth, results, nil
}
