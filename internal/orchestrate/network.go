package orchestrate

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/haasonsaas/conclave/internal/agent"
)

// Contribution is one peer's output at one round of a Network discussion.
type Contribution struct {
	Agent *agent.Agent
	Round int
	Output string
	Err    error
}

// NetworkResult is the accumulated outcome of a Discuss or Broadcast run.
type NetworkResult struct {
	contributions []Contribution
	synthesis     *agent.AgentResult
}

func (r *NetworkResult) Contributions() []Contribution {
	return append([]Contribution(nil), r.contributions...)
}

func (r *NetworkResult) ContributionsFrom(a *agent.Agent) []Contribution {
	var out []Contribution
	for _, c := range r.contributions {
		if c.Agent == a {
			out = append(out, c)
		}
	}
	return out
}

func (r *NetworkResult) ContributionsFromRound(n int) []Contribution {
	var out []Contribution
	for _, c := range r.contributions {
		if c.Round == n {
			out = append(out, c)
		}
	}
	return out
}

func (r *NetworkResult) LastContribution() (Contribution, bool) {
	if len(r.contributions) == 0 {
		return Contribution{}, false
	}
	return r.contributions[len(r.contributions)-1], true
}

func (r *NetworkResult) Synthesis() (*agent.AgentResult, bool) {
	return r.synthesis, r.synthesis != nil
}

// Network runs a non-empty set of at least two peer agents, either in a
// sequential multi-round discussion or a single concurrent broadcast.
type Network struct {
	loop        *agent.TurnLoop
	peers       []*agent.Agent
	synthesizer *agent.Agent
	maxRounds   int

	onRoundStart    func(round int)
	onRoundComplete func(contributions []Contribution)
}

// NewNetwork builds a Network over peers (at least two, in registration
// order). synthesizer may be nil. maxRounds must be >= 1.
func NewNetwork(loop *agent.TurnLoop, peers []*agent.Agent, synthesizer *agent.Agent, maxRounds int) (*Network, error) {
	if len(peers) < 2 {
		return nil, &agent.ConfigurationError{Field: "Peers", Message: "network topology requires at least two peers"}
	}
	if maxRounds < 1 {
		return nil, &agent.ConfigurationError{Field: "MaxRounds", Message: "maxRounds must be >= 1"}
	}
	return &Network{
		loop: loop, peers: append([]*agent.Agent(nil), peers...),
		synthesizer: synthesizer, maxRounds: maxRounds,
	}, nil
}

func (n *Network) OnRoundStart(fn func(round int)) *Network {
	n.onRoundStart = fn
	return n
}

func (n *Network) OnRoundComplete(fn func(contributions []Contribution)) *Network {
	n.onRoundComplete = fn
	return n
}

// Discuss runs maxRounds rounds of sequential peer turns over a shared
// rolling topic: each peer sees every prior contribution before its own
// turn. After the final round, a configured synthesizer runs over every
// contribution collected.
func (n *Network) Discuss(ctx context.Context, topic string) (*NetworkResult, error) {
	result := &NetworkResult{}
	transcript := topic

	for round := 1; round <= n.maxRounds; round++ {
		if n.onRoundStart != nil {
			n.onRoundStart(round)
		}

		roundContribs := make([]Contribution, 0, len(n.peers))
		for _, peer := range n.peers {
			prompt := n.discussPrompt(topic, transcript, round)
			runCtx := agent.NewContext()
			res, err := n.loop.Run(ctx, peer, runCtx, prompt)

			c := Contribution{Agent: peer, Round: round}
			if err != nil || !res.IsSuccess() {
				c.Err = firstNonNil(err, res.Err, fmt.Errorf("orchestrate: peer %q produced no output", peer.Name()))
			} else {
				c.Output = res.Output
				transcript += fmt.Sprintf("\n\n[%s, round %d]: %s", peer.Name(), round, res.Output)
			}
			roundContribs = append(roundContribs, c)
		}

		result.contributions = append(result.contributions, roundContribs...)
		if n.onRoundComplete != nil {
			n.onRoundComplete(roundContribs)
		}
	}

	if n.synthesizer != nil {
		synth, err := n.loop.Run(ctx, n.synthesizer, agent.NewContext(), n.synthesisPrompt(result.contributions))
		if err == nil {
			result.synthesis = synth
		}
	}
	return result, nil
}

func (n *Network) discussPrompt(topic, transcript string, round int) string {
	if round == 1 {
		return fmt.Sprintf("Topic: %s\n\nShare your perspective.", topic)
	}
	return fmt.Sprintf("Topic: %s\n\nDiscussion so far:%s\n\nRound %d: respond to the discussion above.", topic, transcript, round)
}

func (n *Network) synthesisPrompt(contributions []Contribution) string {
	var b strings.Builder
	b.WriteString("Synthesize the following discussion into one answer.\n\n")
	for _, c := range contributions {
		if c.Err != nil {
			continue
		}
		fmt.Fprintf(&b, "[%s, round %d]: %s\n\n", c.Agent.Name(), c.Round, c.Output)
	}
	return b.String()
}

// Broadcast invokes every peer concurrently, once, with no rounds beyond
// round 1, and returns their contributions unordered relative to each
// other's completion (slot order matches registration order).
func (n *Network) Broadcast(ctx context.Context, topic string) (*NetworkResult, error) {
	contributions := make([]Contribution, len(n.peers))
	var wg sync.WaitGroup
	for i, peer := range n.peers {
		wg.Add(1)
		go func(idx int, p *agent.Agent) {
			defer wg.Done()
			res, err := n.loop.Run(ctx, p, agent.NewContext(), topic)
			c := Contribution{Agent: p, Round: 1}
			if err != nil || !res.IsSuccess() {
				c.Err = firstNonNil(err, res.Err, fmt.Errorf("orchestrate: peer %q produced no output", p.Name()))
			} else {
				c.Output = res.Output
			}
			contributions[idx] = c
		}(i, peer)
	}
	wg.Wait()
	return &NetworkResult{contributions: contributions}, nil
}

func firstNonNil(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}
