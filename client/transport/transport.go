package transport

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
)

// Option is a functional option for [New].
type Option func(*options) error

type options struct {
	maxConcurrent int
}

// WithMaxConcurrent limits the number of calls running at once. Extra calls
// stay queued until a slot frees up. If n <= 0, concurrency is unlimited.
func WithMaxConcurrent(n int) Option {
	return func(opts *options) error {
		opts.maxConcurrent = n
		return nil
	}
}

// Client submits calls to an [http.Client] without blocking the caller.
type Client struct {
	hc  *http.Client
	reg *registry
}

// registry is shared by a Client and every client derived from it.
type registry struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	sem      chan struct{}
	shutdown atomic.Bool
	calls    map[uuid.UUID]*Handle
}

// New creates a Client executing calls through hc.
func New(hc *http.Client, optFns ...Option) (*Client, error) {
	if hc == nil {
		return nil, errors.New("http client must not be nil")
	}

	var opts options
	for _, opt := range optFns {
		if err := opt(&opts); err != nil {
			return nil, fmt.Errorf("applying transport option: %w", err)
		}
	}

	reg := &registry{calls: make(map[uuid.UUID]*Handle)}
	if opts.maxConcurrent > 0 {
		reg.sem = make(chan struct{}, opts.maxConcurrent)
	}

	return &Client{hc: hc, reg: reg}, nil
}

// HTTPClient returns the underlying *http.Client.
func (c *Client) HTTPClient() *http.Client { return c.hc }

// WithTimeout returns a client whose exchanges are bounded by d. The derived
// client shares the round tripper and the call registry with c. A
// non-positive d returns c unchanged.
func (c *Client) WithTimeout(d time.Duration) *Client {
	if d <= 0 {
		return c
	}

	hc := *c.hc
	hc.Timeout = d

	return &Client{hc: &hc, reg: c.reg}
}

// WithHTTPClient returns a client executing calls through hc while sharing
// the call registry and worker limit with c.
func (c *Client) WithHTTPClient(hc *http.Client) *Client {
	if hc == nil {
		return c
	}

	return &Client{hc: hc, reg: c.reg}
}

// Submit schedules req and returns immediately. fn is invoked exactly once on
// a worker goroutine: with the response on success, or with an error on
// failure, cancellation or shutdown. Cancelling ctx cancels the call.
func (c *Client) Submit(ctx context.Context, req *http.Request, tag string, fn Func) *Handle {
	ctx, cancel := context.WithCancel(ctx)
	h := &Handle{
		id:     uuid.New(),
		tag:    tag,
		cancel: cancel,
		done:   make(chan struct{}),
	}
	ctx = withCallID(ctx, h.id)

	g := c.reg
	g.add(h)
	g.wg.Add(1)

	go func() {
		defer func() {
			h.state.Store(int32(StateDone))
			g.remove(h)
			cancel()
			close(h.done)
			g.wg.Done()
		}()

		if g.sem != nil {
			select {
			case g.sem <- struct{}{}:
				defer func() {
					<-g.sem
				}()
			case <-ctx.Done():
				fn(nil, fmt.Errorf("%w while queued: %w", ErrCanceled, context.Cause(ctx)))
				return
			}
		}

		if g.shutdown.Load() {
			fn(nil, ErrShutdown)
			return
		}

		if err := ctx.Err(); err != nil {
			fn(nil, fmt.Errorf("%w before start: %w", ErrCanceled, err))
			return
		}

		h.state.Store(int32(StateRunning))

		resp, err := c.hc.Do(req.WithContext(ctx))
		if err != nil {
			fn(nil, err)
			return
		}

		fn(resp, nil)
	}()

	return h
}

// CancelTag cancels every queued or running call submitted with tag and
// returns how many were signalled. A call may complete between the scan and
// the cancellation.
func (c *Client) CancelTag(tag string) int {
	g := c.reg
	g.mu.Lock()
	defer g.mu.Unlock()

	var n int
	for _, h := range g.calls {
		if h.tag == tag {
			h.cancel()
			n++
		}
	}

	return n
}

// Len returns the number of calls that have not completed yet.
func (c *Client) Len() int {
	g := c.reg
	g.mu.Lock()
	defer g.mu.Unlock()

	return len(g.calls)
}

// Shutdown prevents queued and future calls from executing. Their completion
// funcs receive [ErrShutdown].
func (c *Client) Shutdown() {
	c.reg.shutdown.Store(true)
}

// Wait blocks until every submitted call has completed.
func (c *Client) Wait() {
	c.reg.wg.Wait()
}

func (g *registry) add(h *Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls[h.id] = h
}

func (g *registry) remove(h *Handle) {
	g.mu.Lock()
	defer g.mu.Unlock()
	delete(g.calls, h.id)
}
