package otelx

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
)

// TraceContext is the W3C trace context in its serialized form, as stored beside
// outbox rows so the publisher can continue the originating trace.
type TraceContext struct {
	Traceparent string
	Tracestate  string
}

// CaptureTraceContext serializes the span context carried by ctx. Both fields are empty
// when ctx has no span.
func CaptureTraceContext(ctx context.Context) TraceContext {
	carrier := propagation.MapCarrier{}
	otel.GetTextMapPropagator().Inject(ctx, carrier)
	return TraceContext{Traceparent: carrier.Get("traceparent"), Tracestate: carrier.Get("tracestate")}
}

func (tc TraceContext) Empty() bool {
	return tc.Traceparent == "" && tc.Tracestate == ""
}

// Context returns ctx with tc as its remote parent.
func (tc TraceContext) Context(ctx context.Context) context.Context {
	if tc.Empty() {
		return ctx
	}
	carrier := propagation.MapCarrier{}
	carrier.Set("traceparent", tc.Traceparent)
	if tc.Tracestate != "" {
		carrier.Set("tracestate", tc.Tracestate)
	}
	return otel.GetTextMapPropagator().Extract(ctx, carrier)
}
