package policy

import "testing"

func TestResolverAllowsAlias(t *testing.T) {
	resolver := NewResolver()
	resolver.RegisterAlias("read_file", "read")

	policy := &Policy{Allow: []string{"read"}}
	if !resolver.IsAllowed(policy, "read_file") {
		t.Fatal("expected alias tool to be allowed")
	}
}

func TestResolverAllowsViaGroupWildcard(t *testing.T) {
	resolver := NewResolver()
	resolver.AddGroup("group:custom", []string{"custom_tool"})

	policy := &Policy{Allow: []string{"group:custom"}}
	if !resolver.IsAllowed(policy, "custom_tool") {
		t.Fatal("expected custom group member to be allowed")
	}
}

func TestResolverDeniesViaPrefixWildcard(t *testing.T) {
	resolver := NewResolver()
	policy := &Policy{Profile: ProfileFull, Deny: []string{"fs.*"}}
	if resolver.IsAllowed(policy, "fs.write") {
		t.Fatal("expected fs.write to be denied by the fs.* wildcard")
	}
	if !resolver.IsAllowed(policy, "web_search") {
		t.Fatal("expected web_search to remain allowed under the full profile")
	}
}

func TestResolverEffectivePolicy_NativeOverrideMerges(t *testing.T) {
	resolver := NewResolver()
	policy := &Policy{
		Profile:    ProfileFull,
		ByProvider: map[string]*Policy{"native": {Deny: []string{"exec"}}},
	}
	if resolver.IsAllowed(policy, "exec") {
		t.Fatal("expected the native-scoped override to deny exec despite the full profile")
	}
	if !resolver.IsAllowed(policy, "read") {
		t.Fatal("expected tools outside the override to remain governed by the base policy")
	}
}

func TestMerge_AccumulatesAllowDenyAndByProvider(t *testing.T) {
	a := &Policy{Profile: ProfileMinimal, Allow: []string{"read"}, ByProvider: map[string]*Policy{"native": {Deny: []string{"exec"}}}}
	b := &Policy{Profile: ProfileFull, Deny: []string{"write"}}

	merged := Merge(a, b)
	if merged.Profile != ProfileFull {
		t.Errorf("Profile = %q, want last-wins %q", merged.Profile, ProfileFull)
	}
	if len(merged.Allow) != 1 || merged.Allow[0] != "read" {
		t.Errorf("Allow = %v, want [read]", merged.Allow)
	}
	if len(merged.Deny) != 1 || merged.Deny[0] != "write" {
		t.Errorf("Deny = %v, want [write]", merged.Deny)
	}
	if merged.ByProvider["native"] == nil {
		t.Errorf("ByProvider = %+v, want native entry carried over", merged.ByProvider)
	}
}

func TestGetAllowedAndGetDenied(t *testing.T) {
	resolver := NewResolver()
	policy := NewPolicy(ProfileCoding).WithAllow("memory_search").WithDeny("exec")

	allowed := resolver.GetAllowed(policy)
	found := false
	for _, a := range allowed {
		if a == "read" {
			found = true
		}
	}
	if !found {
		t.Errorf("GetAllowed() = %v, want group:fs expanded to include read", allowed)
	}

	denied := resolver.GetDenied(policy)
	if len(denied) != 1 || denied[0] != "exec" {
		t.Errorf("GetDenied() = %v, want [exec]", denied)
	}
}

func TestFilterAllowed(t *testing.T) {
	resolver := NewResolver()
	policy := NewPolicy(ProfileMinimal)
	got := resolver.FilterAllowed(policy, []string{"status", "exec"})
	if len(got) != 1 || got[0] != "status" {
		t.Errorf("FilterAllowed() = %v, want [status]", got)
	}
}
