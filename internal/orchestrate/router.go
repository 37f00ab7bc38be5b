// Package orchestrate composes internal/agent turn loops into routing,
// fan-out, hierarchical, and peer-discussion topologies.
package orchestrate

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/haasonsaas/conclave/internal/agent"
)

// Route pairs a candidate agent with the description shown to the
// classifier prompt.
type Route struct {
	Agent       *agent.Agent
	Description string
}

// Router classifies an input against a set of routes with one LLM call,
// then dispatches to the selected agent.
type Router struct {
	loop     *agent.TurnLoop
	classify *agent.Agent
	routes   []Route
	fallback *agent.Agent

	onRouteSelected func(a *agent.Agent)
}

// NewRouter builds a Router. classifier is the agent whose responder is
// used for the one-shot classify call; it need not be one of the routes.
func NewRouter(loop *agent.TurnLoop, classifier *agent.Agent, routes []Route, fallback *agent.Agent) (*Router, error) {
	if classifier == nil {
		return nil, &agent.ConfigurationError{Field: "Classifier", Message: "router classifier must not be nil"}
	}
	if len(routes) == 0 {
		return nil, &agent.ConfigurationError{Field: "Routes", Message: "router requires at least one route"}
	}
	return &Router{loop: loop, classify: classifier, routes: append([]Route(nil), routes...), fallback: fallback}, nil
}

// OnRouteSelected registers a callback fired once classify resolves a
// route, before the selected agent is invoked.
func (r *Router) OnRouteSelected(fn func(a *agent.Agent)) *Router {
	r.onRouteSelected = fn
	return r
}

// classifyPrompt enumerates the routes as a numbered list and asks the
// classifier to answer with a single index or agent name.
func (r *Router) classifyPrompt(input string) string {
	var b strings.Builder
	b.WriteString("Classify the following request into exactly one of these routes. ")
	b.WriteString("Respond with only the route number or name.\n\n")
	for i, route := range r.routes {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, route.Agent.Name(), route.Description)
	}
	b.WriteString("\nRequest: ")
	b.WriteString(input)
	return b.String()
}

// Classify runs the one-shot classification call and resolves it to a
// route. An unparseable response resolves to the fallback agent if one is
// set, else returns ok=false.
func (r *Router) Classify(ctx context.Context, input string) (*agent.Agent, bool) {
	runCtx := agent.NewContext()
	result, err := r.loop.Run(ctx, r.classify, runCtx, r.classifyPrompt(input))
	if err != nil || !result.IsSuccess() {
		return r.fallback, r.fallback != nil
	}
	return r.resolve(strings.TrimSpace(result.Output))
}

func (r *Router) resolve(answer string) (*agent.Agent, bool) {
	if answer == "" {
		return r.fallback, r.fallback != nil
	}
	if n, err := strconv.Atoi(firstToken(answer)); err == nil {
		if n >= 1 && n <= len(r.routes) {
			return r.routes[n-1].Agent, true
		}
	}
	lower := strings.ToLower(answer)
	for _, route := range r.routes {
		if strings.Contains(lower, strings.ToLower(route.Agent.Name())) {
			return route.Agent, true
		}
	}
	return r.fallback, r.fallback != nil
}

func firstToken(s string) string {
	fields := strings.Fields(s)
	if len(fields) == 0 {
		return s
	}
	return strings.Trim(fields[0], ".:-")
}

// Route classifies input then runs the selected agent with a fresh
// context seeded with input, returning its result.
func (r *Router) Route(ctx context.Context, input string) (*agent.AgentResult, error) {
	selected, ok := r.Classify(ctx, input)
	if !ok {
		return nil, fmt.Errorf("orchestrate: router could not classify input and no fallback is configured")
	}
	if r.onRouteSelected != nil {
		r.onRouteSelected(selected)
	}
	runCtx := agent.NewContext()
	return r.loop.Run(ctx, selected, runCtx, input)
}

// RouteStream behaves like Route but drives the selected agent through a
// StreamFacade, firing OnRouteSelected in addition to the facade's own
// per-agent callbacks.
func (r *Router) RouteStream(ctx context.Context, input string, configure func(f *agent.StreamFacade)) (*agent.StreamHandle, error) {
	selected, ok := r.Classify(ctx, input)
	if !ok {
		return nil, fmt.Errorf("orchestrate: router could not classify input and no fallback is configured")
	}
	if r.onRouteSelected != nil {
		r.onRouteSelected(selected)
	}
	facade := agent.NewStreamFacade(r.loop, selected, agent.NewContext(), input)
	if configure != nil {
		configure(facade)
	}
	return facade.Start(ctx), nil
}
