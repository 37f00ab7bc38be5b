// Package observability provides the monitoring and debugging stack every
// conclave topology carries: metrics, structured logging, and distributed
// tracing over agent runs, turns, tool calls, and handoffs.
//
// # Overview
//
// The observability package implements the three pillars of observability:
//
//  1. Metrics - Quantitative measurements using Prometheus
//  2. Logging - Structured logs with sensitive data redaction
//  3. Tracing - Distributed span tracing with OpenTelemetry
//
// # Architecture
//
// The package is designed to be:
//   - Low-overhead: Minimal performance impact on production systems
//   - Type-safe: Strongly-typed APIs reduce configuration errors
//   - Production-ready: Built-in security (redaction) and reliability features
//   - Standards-based: Uses Prometheus, OpenTelemetry, and slog
//
// None of the three components call into the agent runtime directly.
// Instead, internal/agent.TurnLoop emits one TelemetryEvent per run/turn/
// model-call/tool-call/handoff and a TelemetryProcessor (LoggingTelemetryProcessor,
// MetricsTelemetryProcessor, TracingTelemetryProcessor, fanned out by
// MultiTelemetryProcessor) turns that into logs, metrics, and spans.
//
// # Metrics
//
// Metrics are implemented using Prometheus client libraries and track:
//   - LLM request latency, token usage, and estimated cost
//   - Tool execution counts and duration
//   - Agent-to-agent handoffs
//   - Error rates by component and type
//   - In-flight run counts and run duration
//   - Runs that fail by exhausting an agent's max-turns budget
//
// Example usage:
//
//	metrics := observability.NewMetrics()
//
//	// Track LLM requests
//	start := time.Now()
//	// ... make LLM request ...
//	metrics.RecordLLMRequest("anthropic", "claude-3-5-sonnet", "success",
//	    time.Since(start).Seconds(), promptTokens, completionTokens)
//
//	// Track tool execution
//	start = time.Now()
//	// ... execute tool ...
//	metrics.RecordToolExecution("web_search", "success", time.Since(start).Seconds())
//
// # Logging
//
// Logging is built on Go's slog package with enhancements for:
//   - Automatic request/run/agent correlation from context
//   - Sensitive data redaction (API keys, passwords, tokens)
//   - JSON output for production, text for development
//   - Configurable log levels
//
// Example usage:
//
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:     "info",
//	    Format:    "json",
//	    AddSource: true,
//	})
//
//	// Add context IDs for correlation
//	ctx := observability.AddRequestID(ctx, requestID)
//	ctx = observability.AddRunID(ctx, runID)
//
//	// Structured logging with automatic context correlation
//	logger.Info(ctx, "processing run",
//	    "agent", "triage",
//	    "turn", turnNumber,
//	)
//
//	// Error logging with automatic redaction
//	logger.Error(ctx, "llm request failed",
//	    "error", err,
//	    "provider", "anthropic",
//	    "api_key", apiKey, // Automatically redacted
//	)
//
// # Tracing
//
// Distributed tracing uses OpenTelemetry to track a run across turns:
//   - End-to-end run visualization
//   - Performance bottleneck identification across LLM calls and tool calls
//   - Error correlation across handoffs
//
// Example usage:
//
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "conclave",
//	    ServiceVersion: "1.0.0",
//	    Environment:    "production",
//	    Endpoint:       "localhost:4317", // OTLP collector
//	    SamplingRate:   0.1,              // Sample 10% of traces
//	})
//	defer shutdown(context.Background())
//
//	// Trace LLM requests
//	ctx, llmSpan := tracer.TraceLLMRequest(ctx, "anthropic", "claude-3-5-sonnet")
//	defer llmSpan.End()
//	tracer.SetAttributes(llmSpan, "prompt_tokens", 100, "completion_tokens", 500)
//
//	// Trace tool execution
//	ctx, toolSpan := tracer.TraceToolExecution(ctx, "web_search")
//	defer toolSpan.End()
//	if err != nil {
//	    tracer.RecordError(toolSpan, err)
//	}
//
// # Context Propagation
//
// All three components integrate with Go's context for automatic correlation:
//
//	// Add IDs to context
//	ctx = observability.AddRequestID(ctx, "req-123")
//	ctx = observability.AddRunID(ctx, "run-456")
//	ctx = observability.AddUserID(ctx, "user-789")
//	ctx = observability.AddAgent(ctx, "triage")
//
//	// IDs automatically appear in logs
//	logger.Info(ctx, "processing run") // Includes request_id, run_id, agent
//
//	// Spans inherit context
//	ctx, span := tracer.Start(ctx, "operation")
//	// Trace context propagates to child spans
//
// # Integration Example
//
// Complete example integrating all three components around a single LLM call:
//
//	func callModel(ctx context.Context, runID, agentName string) error {
//	    ctx = observability.AddRunID(ctx, runID)
//	    ctx = observability.AddAgent(ctx, agentName)
//
//	    ctx, span := tracer.TraceLLMRequest(ctx, "anthropic", "claude-3-5-sonnet")
//	    defer span.End()
//
//	    start := time.Now()
//	    response, err := provider.Complete(ctx, input)
//	    duration := time.Since(start).Seconds()
//
//	    if err != nil {
//	        metrics.RecordError("agent", "llm_request_failed")
//	        tracer.RecordError(span, err)
//	        logger.Error(ctx, "llm request failed", "error", err)
//	        metrics.RecordLLMRequest("anthropic", "claude-3-5-sonnet", "error", duration, 0, 0)
//	        return err
//	    }
//
//	    metrics.RecordLLMRequest("anthropic", "claude-3-5-sonnet", "success",
//	        duration, response.PromptTokens, response.CompletionTokens)
//	    logger.Info(ctx, "llm request completed",
//	        "duration_ms", duration*1000,
//	        "tokens", response.CompletionTokens)
//	    return nil
//	}
//
// # Security Considerations
//
// The logging component automatically redacts:
//   - API keys (Anthropic, OpenAI, generic)
//   - Passwords and secrets
//   - JWT tokens
//   - Bearer tokens
//   - Custom patterns via configuration
//
// Sensitive fields in maps are also redacted:
//   - password, passwd, pwd
//   - secret, api_key, apikey
//   - token, auth, authorization
//   - private_key, privatekey
//
// # Performance
//
// The observability system is designed for minimal overhead:
//   - Metrics use lock-free counters where possible
//   - Logging with slog is highly efficient
//   - Tracing supports sampling to reduce overhead
//   - Context propagation is zero-allocation in most cases
//
// # Configuration
//
// All components support configuration via structs:
//
//	// Metrics - no configuration needed, auto-registered
//	metrics := observability.NewMetrics()
//
//	// Logging - configurable output, level, format
//	logger := observability.NewLogger(observability.LogConfig{
//	    Level:          os.Getenv("LOG_LEVEL"),
//	    Format:         "json",
//	    AddSource:      true,
//	    RedactPatterns: []string{`custom-secret-\d+`},
//	})
//
//	// Tracing - configurable sampling, endpoint, attributes
//	tracer, shutdown := observability.NewTracer(observability.TraceConfig{
//	    ServiceName:    "conclave",
//	    ServiceVersion: version,
//	    Environment:    env,
//	    Endpoint:       os.Getenv("OTEL_ENDPOINT"),
//	    SamplingRate:   0.1,
//	    Attributes: map[string]string{
//	        "deployment.region": region,
//	        "deployment.cluster": cluster,
//	    },
//	})
//	defer shutdown(context.Background())
//
// # Testing
//
// All components provide testable interfaces:
//   - Metrics can be verified using prometheus/testutil
//   - Logging can write to bytes.Buffer for assertions
//   - Tracing works with no-op exporters in tests
//
// # Best Practices
//
//  1. Always propagate context to enable correlation
//  2. Use defer for span.End() to ensure spans are closed
//  3. Record errors on both metrics and traces
//  4. Use structured logging with key-value pairs
//  5. Set appropriate sampling rates for high-traffic systems
//  6. Add relevant attributes to spans for debugging
//  7. Use typed metric labels (avoid high-cardinality values)
//  8. Call shutdown() on tracer during graceful shutdown
//
// # Monitoring Dashboard
//
// The metrics exposed can be used to build dashboards:
//
//	# LLM request latency (95th percentile)
//	histogram_quantile(0.95, rate(conclave_llm_request_duration_seconds_bucket[5m]))
//
//	# Error rate
//	rate(conclave_errors_total[5m])
//
//	# In-flight runs
//	conclave_active_runs
//
//	# Stalled runs (max-turns exhausted)
//	rate(conclave_run_stalled_total[5m])
//
//	# Tool execution time
//	rate(conclave_tool_execution_duration_seconds_sum[5m]) /
//	rate(conclave_tool_execution_duration_seconds_count[5m])
//
// # Alerting
//
// Recommended alerts based on metrics:
//   - High error rate: rate(conclave_errors_total[5m]) > threshold
//   - High LLM latency: p95 latency > 10s
//   - Stalled runs: rate(conclave_run_stalled_total[5m]) > 0
//   - Run accumulation: conclave_active_runs growing unbounded
//
// # Further Reading
//
//   - Prometheus best practices: https://prometheus.io/docs/practices/naming/
//   - OpenTelemetry specification: https://opentelemetry.io/docs/specs/otel/
//   - slog documentation: https://pkg.go.dev/log/slog
package observability
