package throttle

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

var (
	ErrMustNotBeZero = errors.New("must be greater than zero")
	ErrWaitingFailed = errors.New("limiter waiting failed")
	ErrContextEnded  = errors.New("throttle context ended")
)

// Config defines the throttler's requests per second and burst capacity.
type Config struct {
	RPS   int
	Burst int
}

// Validate reports whether both limits are positive.
func (c Config) Validate() error {
	if c.RPS <= 0 || c.Burst <= 0 {
		return fmt.Errorf("rps[%d] and burst[%d] %w", c.RPS, c.Burst, ErrMustNotBeZero)
	}

	return nil
}

// Option configures the throttling round tripper.
type Option func(*throttle)

// WithLogger enables logging of waits caused by an exhausted bucket.
// Without it the round tripper is silent.
func WithLogger(logger *slog.Logger) Option {
	return func(t *throttle) {
		t.logger = logger
	}
}

// Bucket is a token bucket shared by every round tripper created from it.
type Bucket struct {
	cfg     Config
	limiter *rate.Limiter
}

// NewBucket returns a full bucket refilled at cfg.RPS tokens per second.
func NewBucket(cfg Config) (*Bucket, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Bucket{cfg: cfg, limiter: rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst)}, nil
}

// Middleware returns a decorator that installs a throttle drawing from b in
// front of next. opts apply to the round trippers it creates only.
func (b *Bucket) Middleware(opts ...Option) func(next http.RoundTripper) http.RoundTripper {
	return func(next http.RoundTripper) http.RoundTripper {
		return newThrottle(b.cfg, b.limiter, next, opts...)
	}
}

// Middleware returns a decorator that installs the throttle in front of next.
// All round trippers produced by one Middleware share a single bucket.
func Middleware(cfg Config, opts ...Option) (func(next http.RoundTripper) http.RoundTripper, error) {
	b, err := NewBucket(cfg)
	if err != nil {
		return nil, err
	}

	return b.Middleware(opts...), nil
}

// New returns an http.RoundTripper that throttles outbound requests
// using a token bucket rate limiter.
func New(cfg Config, next http.RoundTripper, opts ...Option) (http.RoundTripper, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return newThrottle(cfg, rate.NewLimiter(rate.Limit(cfg.RPS), cfg.Burst), next, opts...), nil
}

func newThrottle(cfg Config, limiter *rate.Limiter, next http.RoundTripper, opts ...Option) *throttle {
	if next == nil {
		next = http.DefaultTransport
	}

	t := &throttle{
		limiter: limiter,
		cfg:     cfg,
		next:    next,
	}
	for _, opt := range opts {
		opt(t)
	}

	return t
}

// throttle is an http.RoundTripper, using the time/rate token
// bucket limiter to restrict outbound calls.
type throttle struct {
	limiter *rate.Limiter
	cfg     Config
	next    http.RoundTripper
	logger  *slog.Logger
}

func (t *throttle) RoundTrip(r *http.Request) (*http.Response, error) {
	ctx := r.Context()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w early: %w", ErrContextEnded, err)
	}

	// Tokens does not consume, so peeking here leaves the bucket untouched.
	exhausted := t.logger != nil && t.limiter.Tokens() < 1
	if exhausted {
		t.logger.Info("throttle tokens exhausted", "rate", t.cfg.RPS, "burst", t.cfg.Burst, "path", r.URL.Path)
	}

	start := time.Now()
	if err := t.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrWaitingFailed, err)
	}

	if exhausted {
		t.logger.Info("throttle wait complete", "waited", time.Since(start).String(), "path", r.URL.Path)
	}

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w post-wait: %w", ErrContextEnded, err)
	}

	return t.next.RoundTrip(r)
}
