package agent

import (
	"crypto/rand"

	"go.opentelemetry.io/otel/trace"
)

// newTraceID and newSpanID mint otel-compatible identifiers for a Context's
// TraceContext. They deliberately avoid depending on an active otel SDK
// TracerProvider so a Context can be created standalone in tests; the
// identifiers remain valid trace.TraceID/trace.SpanID values that a real
// exporter can carry end to end once the run is wired into otel spans.
func newTraceID() trace.TraceID {
	var id trace.TraceID
	_, _ = rand.Read(id[:])
	return id
}

func newSpanID() trace.SpanID {
	var id trace.SpanID
	_, _ = rand.Read(id[:])
	return id
}
