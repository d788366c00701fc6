// Package tracing provides an [http.RoundTripper] middleware that wraps each
// outbound request in an OpenTelemetry client span and propagates the span
// context to the server through the request headers.
package tracing
