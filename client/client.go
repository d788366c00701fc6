package client

import (
	"fmt"
	"log/slog"
	"net/http"

	"github.com/adamwoolhether/httper/v2/client/transport"
)

// Client holds the configuration shared by every request built from it.
// It is immutable and safe for concurrent use.
type Client struct {
	opts       options
	base       http.RoundTripper
	customBase bool
	tc         *transport.Client
	logger     *slog.Logger
}

// Build creates a Client from the given options.
func Build(optFns ...Option) (*Client, error) {
	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	var base http.RoundTripper
	switch {
	case opts.rt != nil:
		base = opts.rt
	case opts.client != nil && opts.client.Transport != nil:
		base = opts.client.Transport
	}
	custom := base != nil

	if opts.tls != nil && custom {
		return nil, fmt.Errorf("configuring tls: a tls policy requires the default transport")
	}
	if base == nil {
		tr, err := newTransport(opts.tls)
		if err != nil {
			return nil, fmt.Errorf("configuring transport: %w", err)
		}
		base = tr
	}

	return build(opts, base, custom, nil)
}

// build assembles a client around base. A nil parent creates a fresh call
// registry, otherwise the parent's registry is shared.
func build(opts options, base http.RoundTripper, custom bool, parent *transport.Client) (*Client, error) {
	if opts.logger == nil {
		opts.logger = slog.Default()
	}
	if opts.codec == nil {
		opts.codec = JSONCodec{}
	}

	hc := &http.Client{}
	if opts.client != nil {
		cpy := *opts.client
		hc = &cpy
	}
	if opts.timeout != nil {
		hc.Timeout = *opts.timeout
	}
	if opts.noFollowRedirects {
		hc.CheckRedirect = func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		}
	}
	hc.Transport = chain(base, opts.middlewares())

	var tc *transport.Client
	if parent != nil {
		tc = parent.WithHTTPClient(hc)
	} else {
		var err error
		tc, err = transport.New(hc, transport.WithMaxConcurrent(opts.maxConcurrent))
		if err != nil {
			return nil, fmt.Errorf("configuring transport client: %w", err)
		}
	}

	return &Client{
		opts:       opts,
		base:       base,
		customBase: custom,
		tc:         tc,
		logger:     opts.logger,
	}, nil
}

// With returns a new Client carrying c's configuration with optFns applied
// on top. c is left unchanged. The derived client shares the connection
// pool, the call registry used by [Client.CancelTag] and the concurrency
// limit with c.
func (c *Client) With(optFns ...Option) (*Client, error) {
	opts := c.opts.clone()

	// changed collects only what optFns set, to tell whether the base
	// transport has to be replaced.
	var changed options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
		if err := opt(&changed); err != nil {
			return nil, fmt.Errorf("applying client option: %w", err)
		}
	}

	base, custom := c.base, c.customBase
	switch {
	case changed.rt != nil:
		base, custom = changed.rt, true
	case changed.client != nil && changed.client.Transport != nil:
		base, custom = changed.client.Transport, true
	}

	if changed.tls != nil {
		if custom {
			return nil, fmt.Errorf("configuring tls: a tls policy requires the default transport")
		}
		tr, err := newTransport(opts.tls)
		if err != nil {
			return nil, fmt.Errorf("configuring transport: %w", err)
		}
		base = tr
	}

	return build(opts, base, custom, c.tc)
}

// Get starts a GET request to url.
func (c *Client) Get(url string) *GetRequest {
	return newGetRequest(c, url)
}

// Post starts a POST request to url.
func (c *Client) Post(url string) *PostRequest {
	return newPostRequest(c, url)
}

// Upload starts a multipart POST request to url.
func (c *Client) Upload(url string) *UploadRequest {
	return newUploadRequest(c, url)
}

// Download starts a GET request to url whose body is saved to a file.
func (c *Client) Download(url string) *DownloadRequest {
	return newDownloadRequest(c, url)
}

// CancelTag cancels every queued or running call tagged with tag and
// returns how many were signalled. Cancelled calls still complete with a
// [CodeTransport] error.
func (c *Client) CancelTag(tag string) int {
	return c.tc.CancelTag(tag)
}

// Pending returns the number of calls that have not completed yet.
func (c *Client) Pending() int {
	return c.tc.Len()
}

// Close stops queued and future calls from running and waits for the
// running ones to complete. Every call still receives its callback.
func (c *Client) Close() {
	c.tc.Shutdown()
	c.tc.Wait()
}

// Wait blocks until every submitted call has completed.
func (c *Client) Wait() {
	c.tc.Wait()
}

// HTTPClient returns the underlying *http.Client, middleware included.
func (c *Client) HTTPClient() *http.Client {
	return c.tc.HTTPClient()
}
