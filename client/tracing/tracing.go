package tracing

import (
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httper/v2/client/transport"
)

// ScopeName identifies the tracer obtained from the provider.
const ScopeName = "github.com/adamwoolhether/httper/v2/client"

// Option configures the tracing middleware.
type Option func(*roundTripper)

// WithPropagator overrides the propagator used to inject the span context.
// Defaults to [otel.GetTextMapPropagator].
func WithPropagator(p propagation.TextMapPropagator) Option {
	return func(rt *roundTripper) {
		if p != nil {
			rt.propagator = p
		}
	}
}

// WithSpanName overrides how span names are derived from requests.
// Defaults to "HTTP <METHOD>".
func WithSpanName(fn func(*http.Request) string) Option {
	return func(rt *roundTripper) {
		if fn != nil {
			rt.spanName = fn
		}
	}
}

// Middleware returns a decorator creating a client span for every round trip.
// A nil provider falls back to [otel.GetTracerProvider].
func Middleware(tp trace.TracerProvider, opts ...Option) func(next http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return New(next, tp, opts...)
	}
}

// New wraps next with client spans.
func New(next http.RoundTripper, tp trace.TracerProvider, opts ...Option) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}
	if tp == nil {
		tp = otel.GetTracerProvider()
	}

	rt := &roundTripper{
		next:       next,
		tracer:     tp.Tracer(ScopeName),
		propagator: otel.GetTextMapPropagator(),
		spanName:   func(r *http.Request) string { return "HTTP " + r.Method },
	}
	for _, opt := range opts {
		opt(rt)
	}

	return rt
}

type roundTripper struct {
	next       http.RoundTripper
	tracer     trace.Tracer
	propagator propagation.TextMapPropagator
	spanName   func(*http.Request) string
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	attrs := []attribute.KeyValue{
		attribute.String("http.request.method", req.Method),
		attribute.String("url.full", req.URL.String()),
		attribute.String("server.address", req.URL.Hostname()),
	}
	if id, ok := transport.CallID(req.Context()); ok {
		attrs = append(attrs, attribute.String("httper.call.id", id.String()))
	}

	ctx, span := rt.tracer.Start(req.Context(), rt.spanName(req),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(attrs...),
	)
	defer span.End()

	// RoundTrippers must not modify the caller's request.
	req = req.Clone(ctx)
	rt.propagator.Inject(ctx, propagation.HeaderCarrier(req.Header))

	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	span.SetAttributes(attribute.Int("http.response.status_code", resp.StatusCode))
	if resp.StatusCode >= http.StatusBadRequest {
		span.SetStatus(codes.Error, resp.Status)
	}

	return resp, nil
}
