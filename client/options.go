package client

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/adamwoolhether/httper/v2/client/metrics"
	"github.com/adamwoolhether/httper/v2/client/throttle"
)

// Option is a functional option for configuring a [Client] via [Build]
// or [Client.With].
type Option func(*options) error
type options struct {
	debug             bool
	baseURL           string
	headers           map[string]string
	params            map[string]string
	executor          Executor
	filter            RequestFilter
	codec             Codec
	client            *http.Client
	rt                http.RoundTripper
	timeout           *time.Duration
	userAgent         string
	throttle          *throttle.Bucket
	noFollowRedirects bool
	logger            *slog.Logger
	redacted          []string
	bodyLimit         int64
	tls               *TLSPolicy
	tracer            trace.TracerProvider
	metrics           *metrics.Metrics
	maxConcurrent     int
}

// clone deep-copies the maps and slices so a derived client never shares
// mutable state with its parent.
func (o options) clone() options {
	o.headers = maps.Clone(o.headers)
	o.params = maps.Clone(o.params)
	o.redacted = append([]string(nil), o.redacted...)

	return o
}

// WithBaseURL sets the URL relative request paths are appended to.
// It must be absolute and end with "/".
func WithBaseURL(base string) Option {
	return func(c *options) error {
		u, err := url.Parse(base)
		if err != nil {
			return fmt.Errorf("parsing base url: %w", err)
		}
		if !u.IsAbs() || u.Host == "" {
			return fmt.Errorf("base url %q must be absolute", base)
		}
		if !strings.HasSuffix(base, "/") {
			return fmt.Errorf("base url %q must end with \"/\"", base)
		}
		c.baseURL = base
		return nil
	}
}

// WithHeader adds a default header sent with every request.
func WithHeader(key, value string) Option {
	return func(c *options) error {
		if key == "" {
			return errors.New("header key must not be empty")
		}
		if c.headers == nil {
			c.headers = make(map[string]string)
		}
		c.headers[key] = value
		return nil
	}
}

// WithHeaders adds default headers sent with every request.
func WithHeaders(headers map[string]string) Option {
	return func(c *options) error {
		if c.headers == nil {
			c.headers = make(map[string]string, len(headers))
		}
		maps.Copy(c.headers, headers)
		return nil
	}
}

// WithParam adds a default parameter. GET requests send it in the query,
// POST form bodies include it as a field.
func WithParam(key, value string) Option {
	return func(c *options) error {
		if key == "" {
			return errors.New("param key must not be empty")
		}
		if c.params == nil {
			c.params = make(map[string]string)
		}
		c.params[key] = value
		return nil
	}
}

// WithParams adds default parameters, see [WithParam].
func WithParams(params map[string]string) Option {
	return func(c *options) error {
		if c.params == nil {
			c.params = make(map[string]string, len(params))
		}
		maps.Copy(c.params, params)
		return nil
	}
}

// WithDebug installs the logging middleware, which logs every request and
// response including bodies.
func WithDebug(debug bool) Option {
	return func(c *options) error {
		c.debug = debug
		return nil
	}
}

// WithRedactedHeaders masks the values of the named headers in debug logs.
func WithRedactedHeaders(names ...string) Option {
	return func(c *options) error {
		c.redacted = append(c.redacted, names...)
		return nil
	}
}

// WithDebugBodyLimit caps how many bytes of each body the debug logs show.
func WithDebugBodyLimit(n int64) Option {
	return func(c *options) error {
		if n <= 0 {
			return errors.New("debug body limit must be greater than zero")
		}
		c.bodyLimit = n
		return nil
	}
}

// WithExecutor sets the default executor running callbacks. Without one,
// callbacks run on the goroutine that completed the call.
func WithExecutor(e Executor) Option {
	return func(c *options) error {
		c.executor = e
		return nil
	}
}

// WithRequestFilter installs a hook that may mutate request parameters
// right before they are encoded.
func WithRequestFilter(filter RequestFilter) Option {
	return func(c *options) error {
		c.filter = filter
		return nil
	}
}

// WithCodec replaces the JSON codec used for request and response bodies.
func WithCodec(codec Codec) Option {
	return func(c *options) error {
		if codec == nil {
			return errors.New("codec must not be nil")
		}
		c.codec = codec
		return nil
	}
}

// WithHTTPClient replaces the default [http.Client] used by the [Client].
// The client is copied, the original is never modified.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *options) error {
		if hc == nil {
			return errors.New("client must not be nil")
		}
		c.client = hc
		return nil
	}
}

// WithTransport sets a custom [http.RoundTripper] as the base transport.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *options) error {
		if rt == nil {
			return errors.New("transport must not be nil")
		}
		c.rt = rt
		return nil
	}
}

// WithTimeout sets the default timeout of every exchange, from dialing
// until the response body is read.
func WithTimeout(d time.Duration) Option {
	return func(c *options) error {
		if d < 0 {
			return errors.New("timeout must not be negative")
		}
		c.timeout = &d
		return nil
	}
}

// WithUserAgent adds a persistent User-Agent header to all outgoing requests.
func WithUserAgent(header string) Option {
	return func(c *options) error {
		c.userAgent = header
		return nil
	}
}

// WithThrottle enables token-bucket rate limiting with the given requests
// per second and burst capacity. Waits on an empty bucket are logged to the
// client logger. Clients derived with [Client.With] share the bucket.
func WithThrottle(rps, burst int) Option {
	return func(c *options) error {
		b, err := throttle.NewBucket(throttle.Config{RPS: rps, Burst: burst})
		if err != nil {
			return err
		}
		c.throttle = b
		return nil
	}
}

// WithNoFollowRedirects prevents the [Client] from following HTTP redirects.
func WithNoFollowRedirects() Option {
	return func(c *options) error {
		c.noFollowRedirects = true
		return nil
	}
}

// WithLogger injects a custom [slog.Logger] into the [Client].
func WithLogger(logger *slog.Logger) Option {
	return func(c *options) error {
		c.logger = logger
		return nil
	}
}

// WithTLS configures certificate verification of the default transport.
// It cannot be combined with [WithTransport].
func WithTLS(policy TLSPolicy) Option {
	return func(c *options) error {
		if err := policy.Validate(); err != nil {
			return err
		}
		c.tls = &policy
		return nil
	}
}

// WithTracerProvider wraps every exchange in an OpenTelemetry client span.
func WithTracerProvider(tp trace.TracerProvider) Option {
	return func(c *options) error {
		if tp == nil {
			return errors.New("tracer provider must not be nil")
		}
		c.tracer = tp
		return nil
	}
}

// WithMetrics records Prometheus request metrics into m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(c *options) error {
		if m == nil {
			return errors.New("metrics must not be nil")
		}
		c.metrics = m
		return nil
	}
}

// WithMaxConcurrent limits how many calls run at once; the rest wait in a
// queue. If n <= 0, concurrency is unlimited. Derived clients keep the limit
// of the client they were derived from.
func WithMaxConcurrent(n int) Option {
	return func(c *options) error {
		c.maxConcurrent = n
		return nil
	}
}
