// Package otel provides OpenTelemetry integration for metadata client
// exchanges.
package otel

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/codap-mcp/codapmeta"
)

// ClientObserver records metadata-exchange signals into OpenTelemetry.
type ClientObserver struct {
	tracer trace.Tracer

	requests metric.Int64Counter
	duration metric.Float64Histogram
}

// NewClientObserver creates a client observer bound to the provided
// meter/tracer.
func NewClientObserver(meter metric.Meter, tracer trace.Tracer) (*ClientObserver, error) {
	requests, err := meter.Int64Counter(
		"codapmeta.client.requests",
		metric.WithDescription("Number of metadata requests"),
	)
	if err != nil {
		return nil, err
	}
	duration, err := meter.Float64Histogram(
		"codapmeta.client.duration",
		metric.WithDescription("Metadata request duration in seconds"),
		metric.WithUnit("s"),
	)
	if err != nil {
		return nil, err
	}

	return &ClientObserver{
		tracer:   tracer,
		requests: requests,
		duration: duration,
	}, nil
}

// ObserveExchange records one completed metadata exchange.
func (o *ClientObserver) ObserveExchange(exchange codapmeta.Exchange) {
	if o == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.Int("http.status_code", exchange.StatusCode),
		attribute.Bool("success", exchange.Err == nil),
	}
	if exchange.RequestedVersion != "" {
		attrs = append(attrs, attribute.String("requested_version", exchange.RequestedVersion))
	}
	if clientErr, ok := codapmeta.AsClientError(exchange.Err); ok {
		attrs = append(attrs, attribute.String("error_code", clientErr.Code))
	}

	ctx := context.Background()
	options := metric.WithAttributes(attrs...)
	o.requests.Add(ctx, 1, options)
	o.duration.Record(ctx, exchange.Duration.Seconds(), options)

	if o.tracer == nil {
		return
	}

	spanAttrs := []attribute.KeyValue{
		attribute.String("http.method", exchange.Method),
		attribute.String("http.url", exchange.URL),
	}
	spanAttrs = append(spanAttrs, attrs...)
	if exchange.Advisory.APIVersion != "" {
		spanAttrs = append(spanAttrs, attribute.String("codap.api_version", exchange.Advisory.APIVersion))
	}
	if exchange.Advisory.ToolManifestVersion != "" {
		spanAttrs = append(spanAttrs, attribute.String("codap.manifest_version", exchange.Advisory.ToolManifestVersion))
	}
	if exchange.Advisory.SupportedVersions != "" {
		spanAttrs = append(spanAttrs, attribute.String("codap.supported_versions", exchange.Advisory.SupportedVersions))
	}

	_, span := o.tracer.Start(ctx, "codapmeta.request", trace.WithAttributes(spanAttrs...))
	if exchange.Err != nil {
		span.SetStatus(codes.Error, exchange.Err.Error())
		span.RecordError(exchange.Err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ codapmeta.Observer = (*ClientObserver)(nil)
