// Package observe provides application-wide observability primitives for
// Jingga: OpenTelemetry metrics, distributed tracing, structured logging,
// and HTTP middleware that ties them together.
//
// Metrics are recorded through the OpenTelemetry Metrics API. A Prometheus
// exporter bridge is available via [InitProvider] so that metrics can still
// be scraped via the standard /metrics endpoint. A package-level default
// [Metrics] instance ([DefaultMetrics]) is provided for convenience; tests
// should use [NewMetrics] with a custom [metric.MeterProvider] to avoid
// cross-test pollution.
package observe

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// meterName is the instrumentation scope name used for all Jingga metrics.
const meterName = "github.com/jingga-app/jingga"

// Metrics holds all OpenTelemetry metric instruments for the application.
// All fields are safe for concurrent use — the underlying OTel types handle
// their own synchronisation.
type Metrics struct {
	// --- Latency histograms ---

	// ExtractionDuration tracks extraction latency. Use with attribute:
	//   attribute.String("extractor", "rules"|"semantic")
	ExtractionDuration metric.Float64Histogram

	// TurnDuration tracks how long one dialogue turn takes from finalized
	// utterance to spoken response.
	TurnDuration metric.Float64Histogram

	// --- Counters ---

	// Turns counts processed dialogue turns. Use with attributes:
	//   attribute.String("state", ...), attribute.String("outcome", ...)
	Turns metric.Int64Counter

	// Completions counts confirmed transactions by type.
	Completions metric.Int64Counter

	// Cancellations counts cancelled transactions by type.
	Cancellations metric.Int64Counter

	// UserErrors counts user-facing error responses by kind.
	UserErrors metric.Int64Counter

	// --- Gauges ---

	// ActiveConversations tracks the number of live conversations.
	ActiveConversations metric.Int64UpDownCounter

	// --- HTTP middleware ---

	// HTTPRequestDuration tracks HTTP request processing time. Use with attributes:
	//   attribute.String("method", ...), attribute.String("path", ...)
	HTTPRequestDuration metric.Float64Histogram
}

// latencyBuckets defines histogram bucket boundaries (in seconds) sized for
// a voice dialogue loop where semantic extraction may take a network
// round-trip.
var latencyBuckets = []float64{
	0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10,
}

// NewMetrics creates a fully initialised [Metrics] struct using the given
// [metric.MeterProvider]. Returns an error if any instrument creation fails.
func NewMetrics(mp metric.MeterProvider) (*Metrics, error) {
	m := mp.Meter(meterName)
	var err error
	met := &Metrics{}

	if met.ExtractionDuration, err = m.Float64Histogram("jingga.extraction.duration",
		metric.WithDescription("Latency of utterance extraction by extractor."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}
	if met.TurnDuration, err = m.Float64Histogram("jingga.turn.duration",
		metric.WithDescription("Latency of one dialogue turn."),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(latencyBuckets...),
	); err != nil {
		return nil, err
	}

	if met.Turns, err = m.Int64Counter("jingga.dialogue.turns",
		metric.WithDescription("Total dialogue turns by state and outcome."),
	); err != nil {
		return nil, err
	}
	if met.Completions, err = m.Int64Counter("jingga.transactions.completed",
		metric.WithDescription("Total confirmed transactions by type."),
	); err != nil {
		return nil, err
	}
	if met.Cancellations, err = m.Int64Counter("jingga.transactions.cancelled",
		metric.WithDescription("Total cancelled transactions by type."),
	); err != nil {
		return nil, err
	}
	if met.UserErrors, err = m.Int64Counter("jingga.dialogue.user_errors",
		metric.WithDescription("Total user-facing error responses by kind."),
	); err != nil {
		return nil, err
	}

	if met.ActiveConversations, err = m.Int64UpDownCounter("jingga.active_conversations",
		metric.WithDescription("Number of live conversations."),
	); err != nil {
		return nil, err
	}

	if met.HTTPRequestDuration, err = m.Float64Histogram("jingga.http.request.duration",
		metric.WithDescription("HTTP request latency by method and path."),
		metric.WithUnit("s"),
	); err != nil {
		return nil, err
	}

	return met, nil
}

// defaultMetrics is the lazily-initialised package-level Metrics instance.
var (
	defaultMetrics     *Metrics
	defaultMetricsOnce sync.Once
)

// DefaultMetrics returns the package-level [Metrics] instance, creating it
// on first call using [otel.GetMeterProvider]. Subsequent calls return the
// same pointer. Panics if instrument creation fails (should not happen with
// the global provider).
func DefaultMetrics() *Metrics {
	defaultMetricsOnce.Do(func() {
		var err error
		defaultMetrics, err = NewMetrics(otel.GetMeterProvider())
		if err != nil {
			panic("observe: failed to create default metrics: " + err.Error())
		}
	})
	return defaultMetrics
}

// Attr is a convenience alias for [attribute.String] to reduce verbosity at
// call sites.
func Attr(key, value string) attribute.KeyValue {
	return attribute.String(key, value)
}

// RecordExtraction records one extraction latency sample. m may be nil.
func (m *Metrics) RecordExtraction(ctx context.Context, extractor string, seconds float64) {
	if m == nil {
		return
	}
	m.ExtractionDuration.Record(ctx, seconds,
		metric.WithAttributes(attribute.String("extractor", extractor)),
	)
}

// RecordTurn records one processed turn with its state and outcome. m may be
// nil.
func (m *Metrics) RecordTurn(ctx context.Context, state, outcome string) {
	if m == nil {
		return
	}
	m.Turns.Add(ctx, 1,
		metric.WithAttributes(
			attribute.String("state", state),
			attribute.String("outcome", outcome),
		),
	)
}

// RecordCompletion records one confirmed transaction. m may be nil.
func (m *Metrics) RecordCompletion(ctx context.Context, txType string) {
	if m == nil {
		return
	}
	m.Completions.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", txType)),
	)
}

// RecordCancellation records one cancelled transaction. m may be nil.
func (m *Metrics) RecordCancellation(ctx context.Context, txType string) {
	if m == nil {
		return
	}
	m.Cancellations.Add(ctx, 1,
		metric.WithAttributes(attribute.String("type", txType)),
	)
}

// RecordUserError records one user-facing error response. m may be nil.
func (m *Metrics) RecordUserError(ctx context.Context, kind string) {
	if m == nil {
		return
	}
	m.UserErrors.Add(ctx, 1,
		metric.WithAttributes(attribute.String("kind", kind)),
	)
}

// ConversationStarted bumps the active-conversation gauge. m may be nil.
func (m *Metrics) ConversationStarted(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveConversations.Add(ctx, 1)
}

// ConversationEnded decrements the active-conversation gauge. m may be nil.
func (m *Metrics) ConversationEnded(ctx context.Context) {
	if m == nil {
		return
	}
	m.ActiveConversations.Add(ctx, -1)
}
