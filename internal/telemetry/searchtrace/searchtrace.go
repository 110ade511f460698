// Package searchtrace wraps message hops in OpenTelemetry spans,
// propagating trace context through a message's Carrier field the way
// gRPC metadata would carry it over the wire. The node uses it for
// search hops only; join messages are not traced.
package searchtrace

import (
	"context"

	"skipgraph/internal/message"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

const tracerName = "skipgraph/searchtrace"

var tracer = otel.Tracer(tracerName)

// carrier adapts a Message's Carrier map to propagation.TextMapCarrier.
type carrier map[string]string

func (c carrier) Get(key string) string       { return c[key] }
func (c carrier) Set(key, value string)       { c[key] = value }
func (c carrier) Keys() []string {
	out := make([]string, 0, len(c))
	for k := range c {
		out = append(out, k)
	}
	return out
}

// Inject starts a span named op around ctx and writes its trace
// context into msg.Carrier (allocating it if nil), so the receiving
// node's Extract picks up the same trace. Returns the derived context
// and a func to end the span once the hop completes.
func Inject(ctx context.Context, msg *message.Message, op string) (context.Context, func()) {
	ctx, span := tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindClient))
	if msg.Carrier == nil {
		msg.Carrier = make(map[string]string)
	}
	otel.GetTextMapPropagator().Inject(ctx, carrier(msg.Carrier))
	return ctx, span.End
}

// Extract recovers the trace context a peer attached to msg's
// Carrier and starts a server-side span named op, returning the
// derived context and its closing func.
func Extract(ctx context.Context, msg message.Message, op string) (context.Context, func()) {
	if msg.Carrier != nil {
		ctx = otel.GetTextMapPropagator().Extract(ctx, carrier(msg.Carrier))
	}
	ctx, span := tracer.Start(ctx, op, trace.WithSpanKind(trace.SpanKindServer))
	return ctx, span.End
}
