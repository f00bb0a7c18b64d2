package observability

import (
	"github.com/Zhima-Mochi/joyeria/internal/infrastructure/observability/prometrics"
	"github.com/Zhima-Mochi/joyeria/internal/observability"
)

// family describes one metric family the storefront reports.
type family struct {
	key       observability.MetricKey
	help      string
	histogram bool
	labels    []string
}

var families = []family{
	{key: observability.MUsecaseRequests, help: "Total number of use case invocations.",
		labels: []string{"use_case", "outcome"}},
	{key: observability.MUsecaseDuration, help: "Duration of use case execution in seconds.", histogram: true,
		labels: []string{"use_case"}},
	{key: observability.MExternalRequests, help: "Calls to the payment processor and other external collaborators.",
		labels: []string{"peer", "endpoint", "outcome"}},
	{key: observability.MExternalRequestDuration, help: "Duration of external calls in seconds.", histogram: true,
		labels: []string{"peer", "endpoint"}},
	{key: observability.MHTTPRequests, help: "Total number of HTTP requests.",
		labels: []string{"method", "route", "status"}},
	{key: observability.MHTTPRequestDuration, help: "Duration of HTTP requests in seconds.", histogram: true,
		labels: []string{"method", "route", "status"}},
	{key: observability.MStockIssues, help: "Inventory and line item sub-steps rolled back while the order was kept.",
		labels: []string{"kind", "reason"}},
	{key: observability.MNotifications, help: "Notification attempts by template and outcome.",
		labels: []string{"template", "outcome"}},
}

type provider struct {
	tracer  observability.Tracer
	logger  observability.Logger
	metrics observability.Metrics
}

func (p *provider) Tracer() observability.Tracer   { return p.tracer }
func (p *provider) Logger() observability.Logger   { return p.logger }
func (p *provider) Metrics() observability.Metrics { return p.metrics }

// instruments resolves keys against fixed maps; unknown keys are no-ops.
type instruments struct {
	counters   map[observability.MetricKey]observability.Counter
	histograms map[observability.MetricKey]observability.Histogram
}

func (m instruments) Counter(key observability.MetricKey) observability.Counter {
	if c, ok := m.counters[key]; ok {
		return c
	}
	return observability.NopCounter()
}

func (m instruments) Histogram(key observability.MetricKey) observability.Histogram {
	if h, ok := m.histograms[key]; ok {
		return h
	}
	return observability.NopHistogram()
}

// New assembles a provider. Nil parts fall back to no-ops.
func New(
	tracer observability.Tracer,
	logger observability.Logger,
	counters map[observability.MetricKey]observability.Counter,
	histograms map[observability.MetricKey]observability.Histogram,
) observability.Observability {
	if tracer == nil {
		tracer = observability.NopTracer()
	}
	if logger == nil {
		logger = observability.NopLogger()
	}
	m := instruments{
		counters:   make(map[observability.MetricKey]observability.Counter, len(counters)),
		histograms: make(map[observability.MetricKey]observability.Histogram, len(histograms)),
	}
	for k, c := range counters {
		if c != nil {
			m.counters[k] = c
		}
	}
	for k, h := range histograms {
		if h != nil {
			m.histograms[k] = h
		}
	}
	return &provider{tracer: tracer, logger: logger, metrics: m}
}

// NewWithRegistry registers every storefront metric family on reg.
func NewWithRegistry(tracer observability.Tracer, logger observability.Logger, reg prometrics.Registry) observability.Observability {
	counters := make(map[observability.MetricKey]observability.Counter)
	histograms := make(map[observability.MetricKey]observability.Histogram)
	for _, f := range families {
		if f.histogram {
			histograms[f.key] = reg.Histogram(string(f.key), f.help, nil, f.labels...)
			continue
		}
		counters[f.key] = reg.Counter(string(f.key), f.help, f.labels...)
	}
	return New(tracer, logger, counters, histograms)
}
