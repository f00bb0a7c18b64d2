package oteltrace

import (
	"context"

	"github.com/Zhima-Mochi/joyeria/internal/observability"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const defaultInstrumentation = "github.com/Zhima-Mochi/joyeria"

type tracer struct{ t trace.Tracer }

// New returns a Tracer from tp, or from the global provider when tp is nil.
// Without an SDK provider the spans are non-recording but ids still propagate.
func New(tp trace.TracerProvider, service string) observability.Tracer {
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return &tracer{t: tp.Tracer(defaultInstrumentation, trace.WithInstrumentationAttributes(
		attribute.String("service.name", service),
	))}
}

func (t *tracer) Start(ctx context.Context, name string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return t.t.Start(ctx, name, trace.WithAttributes(attrs...))
}

// InstallPropagator registers W3C trace context and baggage as the global
// propagator, which the HTTP middleware extracts incoming headers with.
func InstallPropagator() {
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}
