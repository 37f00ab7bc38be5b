package main

import "testing"

func TestBuildRootCmdIncludesSubcommands(t *testing.T) {
	cmd := buildRootCmd()
	names := map[string]bool{}
	for _, sub := range cmd.Commands() {
		names[sub.Name()] = true
	}

	required := []string{"validate", "run", "version"}
	for _, name := range required {
		if !names[name] {
			t.Fatalf("expected subcommand %q to be registered", name)
		}
	}
}

func TestTopologyKind_DefaultsToSingle(t *testing.T) {
	if got := topologyKind(""); got != "single" {
		t.Errorf("topologyKind(\"\") = %q, want %q", got, "single")
	}
	if got := topologyKind("router"); got != "router" {
		t.Errorf("topologyKind(\"router\") = %q, want %q", got, "router")
	}
}

func TestEnvOr_FallsBackWhenUnset(t *testing.T) {
	if got := envOr("CONCLAVE_TEST_UNSET_VAR", "fallback"); got != "fallback" {
		t.Errorf("envOr = %q, want fallback", got)
	}
	t.Setenv("CONCLAVE_TEST_UNSET_VAR", "custom")
	if got := envOr("CONCLAVE_TEST_UNSET_VAR", "fallback"); got != "custom" {
		t.Errorf("envOr = %q, want custom", got)
	}
}
