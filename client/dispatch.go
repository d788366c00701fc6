package client

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/adamwoolhether/httper/v2/client/transport"
)

// Call is the future of a submitted request.
type Call[T any] struct {
	handle *transport.Handle
	done   chan struct{}
	resp   *Response[T]
}

// ID returns the identifier of the call, also logged by the debug middleware.
func (c *Call[T]) ID() uuid.UUID { return c.handle.ID() }

// Tag returns the tag the call was submitted with.
func (c *Call[T]) Tag() string { return c.handle.Tag() }

// Cancel cancels the call. The callback still runs, with a [CodeTransport]
// error. Cancel is idempotent and a no-op once the call completed.
func (c *Call[T]) Cancel() { c.handle.Cancel() }

// Done returns a channel closed once the response is available. The
// callback is scheduled after Done is closed.
func (c *Call[T]) Done() <-chan struct{} { return c.done }

// Response returns the response, or nil while the call is in flight.
func (c *Call[T]) Response() *Response[T] {
	select {
	case <-c.done:
		return c.resp
	default:
		return nil
	}
}

// Await blocks until the call completes or ctx ends. Ending ctx does not
// cancel the call.
func (c *Call[T]) Await(ctx context.Context) (*Response[T], error) {
	select {
	case <-c.done:
		return c.resp, nil
	case <-ctx.Done():
		return nil, ctx.Err()
	}
}

// Request compiles r and submits it without blocking. T selects how the
// body is decoded: string and []byte receive the raw body, any other type is
// decoded with the client codec. cb, if not nil, runs exactly once on the
// request's executor.
//
// Errors are returned only for requests that cannot be built; nothing is
// submitted then. Every failure after submission is reported through
// [Response.Err].
func Request[T any](r Requester, cb Callback[T]) (*Call[T], error) {
	p, err := r.prepare()
	if err != nil {
		return nil, err
	}

	return submit(p, cb, func(resp *http.Response) *Response[T] {
		return decode[T](p.codec, p.logger, resp)
	}), nil
}

// submit hands p to the transport. complete turns a successful exchange into
// a response and owns the response body until it returns.
func submit[T any](p *prepared, cb Callback[T], complete func(*http.Response) *Response[T]) *Call[T] {
	call := &Call[T]{done: make(chan struct{})}

	call.handle = p.tc.Submit(p.ctx, p.req, p.tag, func(resp *http.Response, err error) {
		var out *Response[T]
		if err != nil {
			out = failure[T](CodeTransport, err)
		} else {
			out = complete(resp)
		}

		call.resp = out
		close(call.done)

		if cb != nil {
			execute(p.executor, func() { cb(out) })
		}
	})

	return call
}

// decode reads the whole body of resp into a response.
func decode[T any](codec Codec, logger *slog.Logger, resp *http.Response) *Response[T] {
	out := newResponse[T](resp)

	raw, err := readBody(logger, resp)
	if err != nil {
		return failure[T](CodeTransport, err)
	}
	out.Raw = raw

	if setRaw(&out.Data, raw) || out.Err != nil || len(raw) == 0 {
		return out
	}

	if err := codec.Unmarshal(raw, &out.Data); err != nil {
		var zero T
		out.Data = zero
		out.Err = newError(CodeDecode, err)
	}

	return out
}

// setRaw stores raw in dst when T is a raw target and reports whether it did.
func setRaw[T any](dst *T, raw []byte) bool {
	switch d := any(dst).(type) {
	case *string:
		*d = string(raw)
		return true
	case *[]byte:
		*d = raw
		return true
	}

	return false
}

func readBody(logger *slog.Logger, resp *http.Response) ([]byte, error) {
	defer closeBody(logger, resp)

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	return b, nil
}

// isCancellation reports whether err stems from a cancelled or expired call.
func isCancellation(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, transport.ErrCanceled)
}

func closeBody(logger *slog.Logger, resp *http.Response) {
	if err := resp.Body.Close(); err != nil {
		logger.Error("failed to close response body", "error", err)
	}
}
