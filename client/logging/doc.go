// Package logging provides an [http.RoundTripper] middleware that logs
// outgoing requests and their responses, bodies included, through
// [log/slog].
//
// Bodies are inspected without disturbing the exchange: request bodies are
// read from a fresh copy obtained via [http.Request.GetBody], and response
// bodies are buffered (up to a limit) and handed back to the caller byte for
// byte. Bodies that look binary, use an unknown Content-Encoding, or cannot
// be replayed are reported as omitted. Gzip response bodies are decompressed
// from a copy purely for display.
//
//	rt := logging.Middleware(
//		logging.WithLogger(logger),
//		logging.WithRedactedHeaders("Authorization", "Cookie"),
//	)(http.DefaultTransport)
package logging
