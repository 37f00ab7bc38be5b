package agent

import "context"

// GuardrailResult is the sum-type outcome of running a single guardrail: a
// predicate either passes or fails with a non-empty reason. Failing input
// guardrails abort the turn before the model is ever called; failing
// output guardrails abort it before the result is returned to the caller.
type GuardrailResult struct {
	Passed bool
	Reason string
}

// Pass returns a passing GuardrailResult.
func Pass() GuardrailResult { return GuardrailResult{Passed: true} }

// Fail returns a failing GuardrailResult. reason must not be empty; an
// empty reason on a failing result is itself a configuration mistake and
// is replaced with a generic message so GuardrailGate.Run never surfaces
// an unexplained failure.
func Fail(reason string) GuardrailResult {
	if reason == "" {
		reason = "guardrail failed"
	}
	return GuardrailResult{Passed: false, Reason: reason}
}

// Guardrail is an ordered policy predicate evaluated against either the
// pending input or the agent's candidate output.
type Guardrail interface {
	Name() string
	Check(ctx context.Context, content string) GuardrailResult
}

// GuardrailFunc adapts a plain function to the Guardrail interface.
type GuardrailFunc struct {
	FuncName string
	Fn       func(ctx context.Context, content string) GuardrailResult
}

func (g GuardrailFunc) Name() string { return g.FuncName }
func (g GuardrailFunc) Check(ctx context.Context, content string) GuardrailResult {
	return g.Fn(ctx, content)
}

// runGuardrails evaluates guardrails in order and short-circuits on the
// first failure, returning the failing guardrail's name alongside its
// result.
func runGuardrails(ctx context.Context, guardrails []Guardrail, content string) (string, GuardrailResult) {
	for _, g := range guardrails {
		res := g.Check(ctx, content)
		if !res.Passed {
			return g.Name(), res
		}
	}
	return "", Pass()
}
