package policy

import "testing"

func TestAgentConfirmation_FallsBackToDefaultPolicy(t *testing.T) {
	c := NewAgentConfirmation(NewResolver(), nil)

	if c.RequiresConfirmation("unknown-agent", "read_file") {
		t.Error("agent with no assigned policy should use the ProfileFull fallback and not require confirmation for an unlisted tool")
	}
}

func TestAgentConfirmation_ScopedPolicyGatesDeniedTools(t *testing.T) {
	c := NewAgentConfirmation(NewResolver(), nil)
	c.SetPolicy("intern", &Policy{Profile: ProfileMinimal})

	if !c.RequiresConfirmation("intern", "shell_exec") {
		t.Error("a tool outside the minimal profile should require confirmation for a low-trust agent")
	}
}

func TestAgentConfirmation_AllowListOverridesProfile(t *testing.T) {
	c := NewAgentConfirmation(NewResolver(), nil)
	c.SetPolicy("intern", &Policy{Profile: ProfileMinimal, Allow: []string{"shell_exec"}})

	if c.RequiresConfirmation("intern", "shell_exec") {
		t.Error("an explicitly allowed tool should not require confirmation even outside the profile")
	}
}

func TestAgentConfirmation_DenyOverridesAllow(t *testing.T) {
	c := NewAgentConfirmation(NewResolver(), nil)
	c.SetPolicy("intern", &Policy{Profile: ProfileFull, Deny: []string{"shell_exec"}})

	if !c.RequiresConfirmation("intern", "shell_exec") {
		t.Error("an explicitly denied tool should require confirmation even under a full profile")
	}
}

func TestAgentConfirmation_PerAgentIsolation(t *testing.T) {
	c := NewAgentConfirmation(NewResolver(), nil)
	c.SetPolicy("trusted", &Policy{Profile: ProfileFull})
	c.SetPolicy("intern", &Policy{Profile: ProfileMinimal})

	if c.RequiresConfirmation("trusted", "shell_exec") {
		t.Error("trusted agent's own policy should not gate shell_exec")
	}
	if !c.RequiresConfirmation("intern", "shell_exec") {
		t.Error("intern's own policy should still gate shell_exec")
	}
}
