// Package transport runs HTTP calls asynchronously on top of an
// [http.Client] and keeps track of them so they can be cancelled one by one
// or in bulk by tag.
//
//	tc, err := transport.New(http.DefaultClient, transport.WithMaxConcurrent(8))
//	h := tc.Submit(ctx, req, "batch1", func(resp *http.Response, err error) {
//		// runs exactly once, on a worker goroutine
//	})
//	tc.CancelTag("batch1")
//
// Calls waiting for a free slot are "queued"; calls executing the exchange
// are "running". [Client.CancelTag] sweeps both. A cancelled call still has
// its completion func invoked, with an error wrapping [ErrCanceled] or
// [context.Canceled].
//
// [Client.WithTimeout] derives a client with a different overall timeout
// that shares the underlying [http.RoundTripper] (and therefore the
// connection pool) and the call registry with its parent.
package transport
