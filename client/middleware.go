package client

import (
	"net/http"
	"slices"

	"github.com/adamwoolhether/httper/v2/client/logging"
	"github.com/adamwoolhether/httper/v2/client/throttle"
	"github.com/adamwoolhether/httper/v2/client/tracing"
)

// Middleware decorates a round tripper.
type Middleware func(next http.RoundTripper) http.RoundTripper

// middlewares returns the decorators selected by opts, outermost first.
// Tracing sees the whole exchange, the debug log sees exactly what goes
// out on the wire after throttling and the user agent are applied.
func (o *options) middlewares() []Middleware {
	var mw []Middleware

	if o.tracer != nil {
		mw = append(mw, tracing.Middleware(o.tracer))
	}
	if o.metrics != nil {
		mw = append(mw, o.metrics.Middleware())
	}
	if o.throttle != nil {
		mw = append(mw, o.throttle.Middleware(throttle.WithLogger(o.logger)))
	}
	if o.userAgent != "" {
		ua := o.userAgent
		mw = append(mw, func(next http.RoundTripper) http.RoundTripper {
			return userAgent{value: ua, base: next}
		})
	}
	if o.debug {
		opts := []logging.Option{
			logging.WithLogger(o.logger),
			logging.WithRedactedHeaders(o.redacted...),
		}
		if o.bodyLimit > 0 {
			opts = append(opts, logging.WithBodyLimit(o.bodyLimit))
		}
		mw = append(mw, logging.Middleware(opts...))
	}

	return mw
}

// chain wraps base in mw so that mw[0] runs first.
func chain(base http.RoundTripper, mw []Middleware) http.RoundTripper {
	rt := base
	for _, m := range slices.Backward(mw) {
		if m != nil {
			rt = m(rt)
		}
	}

	return rt
}

// userAgent is an http.RoundTripper, enabling the persistent User-Agent header.
type userAgent struct {
	value string
	base  http.RoundTripper
}

func (ua userAgent) RoundTrip(r *http.Request) (*http.Response, error) {
	cpy := r.Clone(r.Context())
	cpy.Header.Set("User-Agent", ua.value)
	return ua.base.RoundTrip(cpy)
}
