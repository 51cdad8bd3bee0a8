package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// Tracer is the narrow span contract LM-calling nodes use. §4.13 requires
// the external sink's client to be import-optional: when tracing is
// disabled or no trace.Tracer was configured, NewTracer returns a no-op
// implementation so callers never need a nil check, grounded on
// graph/emit's OTelEmitter/NullEmitter duality.
type Tracer interface {
	// StartSpan opens a span named name and returns the derived context
	// plus an End function the caller must invoke, optionally passing the
	// error the traced operation returned (nil records success).
	StartSpan(ctx context.Context, name string) (context.Context, func(err error))
}

// NewTracer builds a Tracer. When enabled is false or tracer is nil, the
// returned Tracer is a no-op — tracing degrades silently rather than
// raising, per §4.13.
func NewTracer(enabled bool, tracer trace.Tracer) Tracer {
	if !enabled || tracer == nil {
		return noopTracer{}
	}
	return otelTracer{tracer: tracer}
}

type noopTracer struct{}

func (noopTracer) StartSpan(ctx context.Context, name string) (context.Context, func(err error)) {
	return ctx, func(error) {}
}

type otelTracer struct {
	tracer trace.Tracer
}

func (t otelTracer) StartSpan(ctx context.Context, name string) (context.Context, func(err error)) {
	spanCtx, span := t.tracer.Start(ctx, name)
	return spanCtx, func(err error) {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}
}

// Attr is a re-export of attribute.KeyValue so callers don't need a direct
// go.opentelemetry.io/otel/attribute import just to annotate a span.
type Attr = attribute.KeyValue
