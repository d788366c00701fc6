package logging

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"slices"
	"time"

	"github.com/adamwoolhether/httper/v2/client/transport"
)

// DefaultBodyLimit caps how many body bytes are buffered for display.
const DefaultBodyLimit = 1 << 20

// Option configures the logging middleware.
type Option func(*roundTripper)

// WithLogger sets the destination logger. Defaults to [slog.Default].
func WithLogger(logger *slog.Logger) Option {
	return func(rt *roundTripper) {
		if logger != nil {
			rt.logger = logger
		}
	}
}

// WithRedactedHeaders masks the values of the named headers.
func WithRedactedHeaders(names ...string) Option {
	return func(rt *roundTripper) {
		rt.redactor = rt.redactor.With(names...)
	}
}

// WithBodyLimit caps how many bytes of each body are buffered for display.
// Larger bodies are shown truncated and still delivered in full.
func WithBodyLimit(n int64) Option {
	return func(rt *roundTripper) {
		if n > 0 {
			rt.limit = n
		}
	}
}

// Middleware returns a decorator installing the logging round tripper in
// front of next.
func Middleware(opts ...Option) func(next http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return New(next, opts...)
	}
}

// New wraps next with request/response logging.
func New(next http.RoundTripper, opts ...Option) http.RoundTripper {
	if next == nil {
		next = http.DefaultTransport
	}

	rt := &roundTripper{
		next:     next,
		logger:   slog.Default(),
		redactor: NewRedactor(),
		limit:    DefaultBodyLimit,
	}
	for _, opt := range opts {
		opt(rt)
	}

	return rt
}

type roundTripper struct {
	next     http.RoundTripper
	logger   *slog.Logger
	redactor *Redactor
	limit    int64
}

func (rt *roundTripper) RoundTrip(req *http.Request) (*http.Response, error) {
	log := rt.logger
	if id, ok := transport.CallID(req.Context()); ok {
		log = log.With("call", id.String())
	}

	rt.logRequest(log, req)

	start := time.Now()
	resp, err := rt.next.RoundTrip(req)
	if err != nil {
		log.Info("<-- HTTP FAILED", "error", err)
		return nil, err
	}

	rt.logResponse(log, resp, time.Since(start))

	return resp, nil
}

func (rt *roundTripper) logRequest(log *slog.Logger, req *http.Request) {
	log.Info("--> "+req.Method, "url", req.URL.String())

	hasBody := req.Body != nil && req.Body != http.NoBody
	rt.logHeaders(log, "--> header", req.Header)

	// Content-Length lives outside the header map on outgoing requests.
	if hasBody && req.ContentLength > 0 && req.Header.Get("Content-Length") == "" {
		log.Info("--> header", "name", "Content-Length", "value", req.ContentLength)
	}

	end := "--> END " + req.Method
	switch {
	case !hasBody:
		log.Info(end)
		return
	case hasUnknownEncoding(req.Header):
		log.Info(end + " (encoded body omitted)")
		return
	case req.GetBody == nil:
		log.Info(end + " (streaming body omitted)")
		return
	}

	body, err := req.GetBody()
	if err != nil {
		log.Error("copying request body for logging", "error", err)
		log.Info(end)
		return
	}
	defer body.Close()

	buf, err := io.ReadAll(io.LimitReader(body, rt.limit+1))
	if err != nil {
		log.Error("reading request body for logging", "error", err)
		log.Info(end)
		return
	}

	size := req.ContentLength
	if size < 0 {
		size = int64(len(buf))
	}

	truncated := int64(len(buf)) > rt.limit
	if truncated {
		buf = buf[:rt.limit]
	}

	if !IsPlaintext(buf) {
		log.Info(fmt.Sprintf("%s (binary %d-byte body omitted)", end, size))
		return
	}

	log.Info("--> body", "body", decodeText(buf, req.Header.Get("Content-Type")))
	log.Info(fmt.Sprintf("%s (%d-byte body%s)", end, size, truncatedSuffix(truncated)))
}

func (rt *roundTripper) logResponse(log *slog.Logger, resp *http.Response, took time.Duration) {
	size := "unknown-length"
	if resp.ContentLength >= 0 {
		size = fmt.Sprintf("%d-byte", resp.ContentLength)
	}

	url := ""
	if resp.Request != nil {
		url = resp.Request.URL.String()
	}

	log.Info(fmt.Sprintf("<-- %s", resp.Status),
		"url", url,
		"proto", resp.Proto,
		"took", took.Round(time.Millisecond).String(),
		"size", size+" body",
	)

	rt.logHeaders(log, "<-- header", resp.Header)

	switch {
	case !responseHasBody(resp):
		log.Info("<-- END HTTP")
		return
	case hasUnknownEncoding(resp.Header):
		log.Info("<-- END HTTP (encoded body omitted)")
		return
	}

	orig := resp.Body
	buf, readErr := io.ReadAll(io.LimitReader(orig, rt.limit+1))

	// Hand the consumer the exact same byte stream: the buffered prefix
	// followed by whatever is left of the original body.
	resp.Body = &replayBody{Reader: io.MultiReader(bytes.NewReader(buf), orig), closer: orig}

	if readErr != nil {
		log.Error("reading response body for logging", "error", readErr)
		log.Info("<-- END HTTP")
		return
	}

	truncated := int64(len(buf)) > rt.limit
	if truncated {
		buf = buf[:rt.limit]
	}

	var gzippedLen int
	if isGzip(resp.Header) {
		gzippedLen = len(buf)

		decoded, err := gunzip(buf)
		if err != nil && !(truncated && errors.Is(err, io.ErrUnexpectedEOF)) {
			log.Error("decompressing response body for logging", "error", err)
			log.Info("<-- END HTTP")
			return
		}
		buf = decoded
	}

	if !IsPlaintext(buf) {
		log.Info(fmt.Sprintf("<-- END HTTP (binary %d-byte body omitted)", len(buf)))
		return
	}

	if len(buf) > 0 {
		log.Info("<-- body", "body", decodeText(buf, resp.Header.Get("Content-Type")))
	}

	if gzippedLen > 0 {
		log.Info(fmt.Sprintf("<-- END HTTP (%d-byte, %d-gzipped-byte body%s)", len(buf), gzippedLen, truncatedSuffix(truncated)))
		return
	}

	log.Info(fmt.Sprintf("<-- END HTTP (%d-byte body%s)", len(buf), truncatedSuffix(truncated)))
}

func (rt *roundTripper) logHeaders(log *slog.Logger, msg string, h http.Header) {
	names := make([]string, 0, len(h))
	for name := range h {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		for _, v := range h[name] {
			log.Info(msg, "name", name, "value", rt.redactor.Value(name, v))
		}
	}
}

func responseHasBody(resp *http.Response) bool {
	if resp.Body == nil || resp.Body == http.NoBody {
		return false
	}
	if resp.Request != nil && resp.Request.Method == http.MethodHead {
		return false
	}

	code := resp.StatusCode
	if (code < http.StatusOK || code == http.StatusNoContent || code == http.StatusNotModified) && resp.ContentLength <= 0 {
		return false
	}

	return true
}

func truncatedSuffix(truncated bool) string {
	if truncated {
		return ", truncated"
	}

	return ""
}

// replayBody re-delivers a buffered prefix before the rest of the original body.
type replayBody struct {
	io.Reader
	closer io.Closer
}

func (b *replayBody) Close() error {
	return b.closer.Close()
}
