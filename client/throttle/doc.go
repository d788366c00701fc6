// Package throttle provides an [http.RoundTripper] middleware that rate-limits
// outbound HTTP requests using the token bucket from [golang.org/x/time/rate].
//
// When the bucket is empty a request blocks until a token becomes available
// or its context ends. Nothing is queued or retried on behalf of the caller:
// a request whose context expires while waiting fails with [ErrWaitingFailed].
package throttle
