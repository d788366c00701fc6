package client

import (
	"context"
	"log/slog"
	"maps"
	"net/http"
	"strings"
	"time"

	"github.com/adamwoolhether/httper/v2/client/progress"
	"github.com/adamwoolhether/httper/v2/client/transport"
)

// Requester is implemented by the GET, POST and UPLOAD request builders
// and consumed by [Request].
type Requester interface {
	prepare() (*prepared, error)
}

// prepared is a compiled request ready for submission.
type prepared struct {
	ctx      context.Context
	req      *http.Request
	tc       *transport.Client
	tag      string
	executor Executor
	codec    Codec
	logger   *slog.Logger
}

// common holds the settings shared by every verb. B is the embedding builder,
// returned by the chainable methods.
type common[B any] struct {
	self     *B
	client   *Client
	ctx      context.Context
	url      string
	headers  map[string]string
	timeout  time.Duration
	tag      string
	executor Executor
}

func newCommon[B any](self *B, c *Client, url string) common[B] {
	return common[B]{
		self:     self,
		client:   c,
		ctx:      context.Background(),
		url:      url,
		headers:  maps.Clone(c.opts.headers),
		executor: c.opts.executor,
	}
}

// URL sets the request URL. A blank URL resolves to the client's base URL,
// one starting with http:// or https:// is used verbatim, anything else is
// appended to the base URL.
func (r *common[B]) URL(url string) *B {
	r.url = url
	return r.self
}

// Header sets a header, overriding a client default with the same key.
func (r *common[B]) Header(key, value string) *B {
	if r.headers == nil {
		r.headers = make(map[string]string)
	}
	r.headers[key] = value
	return r.self
}

// Headers sets every header in h. h is copied.
func (r *common[B]) Headers(h map[string]string) *B {
	if r.headers == nil {
		r.headers = make(map[string]string, len(h))
	}
	maps.Copy(r.headers, h)
	return r.self
}

// Timeout bounds the whole exchange of this request. Non-positive values
// keep the client default.
func (r *common[B]) Timeout(d time.Duration) *B {
	r.timeout = d
	return r.self
}

// Tag marks the request for [Client.CancelTag].
func (r *common[B]) Tag(tag string) *B {
	r.tag = tag
	return r.self
}

// Executor overrides the executor running this request's callbacks.
// A nil executor is ignored.
func (r *common[B]) Executor(e Executor) *B {
	if e != nil {
		r.executor = e
	}
	return r.self
}

// Context sets the parent context of the call. Cancelling it cancels the call.
func (r *common[B]) Context(ctx context.Context) *B {
	if ctx != nil {
		r.ctx = ctx
	}
	return r.self
}

// resolveURL returns the absolute request URL. It is a pure function of
// the builder and client, so repeated calls agree.
func (r *common[B]) resolveURL() (string, error) {
	base := r.client.opts.baseURL

	switch {
	case strings.TrimSpace(r.url) == "":
		if base == "" {
			return "", ErrNoBaseURL
		}
		return base, nil
	case hasHTTPScheme(r.url):
		return r.url, nil
	default:
		if base == "" {
			return "", ErrNoBaseURL
		}
		return base + r.url, nil
	}
}

func hasHTTPScheme(u string) bool {
	l := strings.ToLower(u)
	return strings.HasPrefix(l, "http://") || strings.HasPrefix(l, "https://")
}

// filter runs the client's request filter, if any, on params.
func (r *common[B]) filter(url string, params map[string]string) {
	if f := r.client.opts.filter; f != nil {
		f(url, params)
	}
}

// finish applies headers and packages req for submission.
func (r *common[B]) finish(req *http.Request) *prepared {
	for k, v := range r.headers {
		req.Header.Set(k, v)
	}

	return &prepared{
		ctx:      r.ctx,
		req:      req,
		tc:       r.client.tc.WithTimeout(r.timeout),
		tag:      r.tag,
		executor: r.executor,
		codec:    r.client.opts.codec,
		logger:   r.client.logger,
	}
}

// progressFunc delivers progress events through the request's executor,
// like its callback.
func (r *common[B]) progressFunc(fn progress.Func) progress.Func {
	if fn == nil {
		return nil
	}

	e := r.executor
	if e == nil {
		return fn
	}

	return func(transferred, total int64) {
		e.Execute(func() { fn(transferred, total) })
	}
}
