package observability

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// The no-op implementations below back unit tests and nil dependencies.

type discard struct{}

func (discard) With(...Field) Logger   { return discard{} }
func (discard) Debug(string, ...Field) {}
func (discard) Info(string, ...Field)  {}
func (discard) Warn(string, ...Field)  {}
func (discard) Error(string, ...Field) {}

func (discard) Add(float64, ...Label)     {}
func (discard) Observe(float64, ...Label) {}

func (discard) Counter(MetricKey) Counter     { return discard{} }
func (discard) Histogram(MetricKey) Histogram { return discard{} }

// Start keeps whatever span is already in ctx.
func (discard) Start(ctx context.Context, _ string, _ ...attribute.KeyValue) (context.Context, trace.Span) {
	return ctx, trace.SpanFromContext(ctx)
}

func (discard) Tracer() Tracer   { return discard{} }
func (discard) Logger() Logger   { return discard{} }
func (discard) Metrics() Metrics { return discard{} }

func NopLogger() Logger       { return discard{} }
func NopTracer() Tracer       { return discard{} }
func NopMetrics() Metrics     { return discard{} }
func NopCounter() Counter     { return discard{} }
func NopHistogram() Histogram { return discard{} }
func Nop() Observability      { return discard{} }
