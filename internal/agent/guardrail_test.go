package agent

import (
	"context"
	"testing"
)

func TestPassFail(t *testing.T) {
	if p := Pass(); !p.Passed || p.Reason != "" {
		t.Errorf("Pass() = %+v", p)
	}
	if f := Fail("too long"); f.Passed || f.Reason != "too long" {
		t.Errorf("Fail(\"too long\") = %+v", f)
	}
}

func TestFail_EmptyReasonGetsGenericMessage(t *testing.T) {
	f := Fail("")
	if f.Passed || f.Reason == "" {
		t.Errorf("Fail(\"\") = %+v, want a non-empty generic reason", f)
	}
}

func TestGuardrailFunc(t *testing.T) {
	g := GuardrailFunc{
		FuncName: "no-secrets",
		Fn: func(_ context.Context, content string) GuardrailResult {
			if content == "secret" {
				return Fail("contains a secret")
			}
			return Pass()
		},
	}
	if g.Name() != "no-secrets" {
		t.Errorf("Name() = %q", g.Name())
	}
	if res := g.Check(context.Background(), "fine"); !res.Passed {
		t.Errorf("Check(fine) = %+v", res)
	}
	if res := g.Check(context.Background(), "secret"); res.Passed {
		t.Errorf("Check(secret) = %+v", res)
	}
}

func TestRunGuardrails_ShortCircuitsOnFirstFailure(t *testing.T) {
	var ran []string
	g1 := GuardrailFunc{FuncName: "g1", Fn: func(_ context.Context, _ string) GuardrailResult {
		ran = append(ran, "g1")
		return Fail("nope")
	}}
	g2 := GuardrailFunc{FuncName: "g2", Fn: func(_ context.Context, _ string) GuardrailResult {
		ran = append(ran, "g2")
		return Pass()
	}}

	name, res := runGuardrails(context.Background(), []Guardrail{g1, g2}, "anything")
	if name != "g1" || res.Passed {
		t.Errorf("runGuardrails = %q, %+v, want g1 failing", name, res)
	}
	if len(ran) != 1 || ran[0] != "g1" {
		t.Errorf("ran = %v, want only g1 to run", ran)
	}
}

func TestRunGuardrails_AllPassReturnsEmptyNameAndPass(t *testing.T) {
	g := GuardrailFunc{FuncName: "g", Fn: func(_ context.Context, _ string) GuardrailResult { return Pass() }}
	name, res := runGuardrails(context.Background(), []Guardrail{g}, "anything")
	if name != "" || !res.Passed {
		t.Errorf("runGuardrails = %q, %+v, want empty name and Pass", name, res)
	}
}

func TestRunGuardrails_EmptyListPasses(t *testing.T) {
	name, res := runGuardrails(context.Background(), nil, "anything")
	if name != "" || !res.Passed {
		t.Errorf("runGuardrails(nil) = %q, %+v, want empty name and Pass", name, res)
	}
}
