package metrics

import (
	"context"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

type Metrics struct {
	HTTPRequests metric.Int64Counter
	HTTPDuration metric.Float64Histogram

	TransfersInitiated metric.Int64Counter
	InboundCredits     metric.Int64Counter
	RejectedOps        metric.Int64Counter
	EventSubscribers   metric.Int64UpDownCounter
}

func Setup(serviceName string) (*Metrics, http.Handler, error) {
	exporter, err := prometheus.New()
	if err != nil {
		return nil, nil, err
	}

	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exporter))
	otel.SetMeterProvider(provider)

	meter := provider.Meter(serviceName)

	m := &Metrics{}

	m.HTTPRequests, err = meter.Int64Counter(
		"bridge_http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.HTTPDuration, err = meter.Float64Histogram(
		"bridge_http_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.TransfersInitiated, err = meter.Int64Counter(
		"bridge_transfers_initiated_total",
		metric.WithDescription("Total number of outbound transfers initiated"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.InboundCredits, err = meter.Int64Counter(
		"bridge_inbound_credits_total",
		metric.WithDescription("Total number of inbound completions credited"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.RejectedOps, err = meter.Int64Counter(
		"bridge_rejected_operations_total",
		metric.WithDescription("Total number of rejected bridge operations by error code"),
	)
	if err != nil {
		return nil, nil, err
	}

	m.EventSubscribers, err = meter.Int64UpDownCounter(
		"bridge_event_subscribers",
		metric.WithDescription("Number of active event stream subscribers"),
	)
	if err != nil {
		return nil, nil, err
	}

	handler := promhttp.Handler()
	return m, handler, nil
}

func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, status int, duration time.Duration) {
	labels := metric.WithAttributes(
		attribute.String("method", method),
		attribute.String("path", path),
		attribute.Int("status", status),
	)

	m.HTTPRequests.Add(ctx, 1, labels)
	m.HTTPDuration.Record(ctx, duration.Seconds(), labels)
}

func (m *Metrics) RecordTransferInitiated(ctx context.Context, network string) {
	m.TransfersInitiated.Add(ctx, 1, metric.WithAttributes(attribute.String("network", network)))
}

func (m *Metrics) RecordInboundCredit(ctx context.Context) {
	m.InboundCredits.Add(ctx, 1)
}

func (m *Metrics) RecordRejection(ctx context.Context, operation string, code int) {
	m.RejectedOps.Add(ctx, 1, metric.WithAttributes(
		attribute.String("operation", operation),
		attribute.Int("code", code),
	))
}

func (m *Metrics) IncrementSubscribers(ctx context.Context) {
	m.EventSubscribers.Add(ctx, 1)
}

func (m *Metrics) DecrementSubscribers(ctx context.Context) {
	m.EventSubscribers.Add(ctx, -1)
}
