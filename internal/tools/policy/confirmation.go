package policy

import "sync"

// AgentConfirmation adapts a Resolver plus per-agent trust-tier Policy into
// the turn loop's confirmation gate: a tool a given agent's policy does not
// allow is routed to a human decision rather than silently denied or
// silently executed, even when the tool itself is marked safe. It satisfies
// agent.ConfirmationPolicy structurally (RequiresConfirmation(agentName,
// toolName string) bool), so agent never needs to import policy.
type AgentConfirmation struct {
	resolver *Resolver

	mu       sync.RWMutex
	policies map[string]*Policy
	fallback *Policy
}

// NewAgentConfirmation builds an AgentConfirmation using resolver for group
// and profile expansion. fallback is the policy applied to any agent with
// no policy of its own; a nil fallback defaults to ProfileFull, meaning
// agents without an assigned policy are gated only by each tool's own
// static RequiresConfirmation flag.
func NewAgentConfirmation(resolver *Resolver, fallback *Policy) *AgentConfirmation {
	if resolver == nil {
		resolver = NewResolver()
	}
	if fallback == nil {
		fallback = &Policy{Profile: ProfileFull}
	}
	return &AgentConfirmation{
		resolver: resolver,
		policies: make(map[string]*Policy),
		fallback: fallback,
	}
}

// SetPolicy scopes a policy to a named agent's trust tier.
func (c *AgentConfirmation) SetPolicy(agentName string, p *Policy) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.policies[agentName] = p
}

// RequiresConfirmation reports whether toolName falls outside agentName's
// resolved policy.
func (c *AgentConfirmation) RequiresConfirmation(agentName, toolName string) bool {
	c.mu.RLock()
	p, ok := c.policies[agentName]
	c.mu.RUnlock()
	if !ok {
		p = c.fallback
	}
	return !c.resolver.IsAllowed(p, toolName)
}
