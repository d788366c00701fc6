// Package client provides an asynchronous HTTP client built on [net/http].
//
// # Building a Client
//
// Use [Build] to create a [Client] with functional options. A Client is
// immutable; [Client.With] derives a new one with extra options:
//
//	c, err := client.Build(
//		client.WithBaseURL("https://api.example.com/v1/"),
//		client.WithHeader("Accept", "application/json"),
//		client.WithTimeout(10*time.Second),
//	)
//
// # Making Requests
//
// [Client.Get], [Client.Post], [Client.Upload] and [Client.Download] return
// chainable builders. [Request] submits a builder without blocking; its
// type parameter selects how the body is decoded:
//
//	call, err := client.Request(c.Get("users").Query("id", "7"),
//		func(resp *client.Response[User]) {
//			if !resp.IsSuccess() {
//				log.Println(resp.Err)
//				return
//			}
//			fmt.Println(resp.Data.Name)
//		})
//
// string and []byte targets receive the raw body. The callback runs exactly
// once per submitted call, whether it succeeded, failed or was cancelled.
// The returned [Call] can be awaited or cancelled; [Client.CancelTag]
// cancels every call carrying a tag.
//
// # Executors
//
// Callbacks run on the goroutine that completed the call unless an
// [Executor] is configured with [WithExecutor] or per request. [Loop]
// delivers every callback on a single goroutine in completion order.
//
// # Downloading Files
//
// A download streams the body to a temp file next to the destination and
// renames it on success:
//
//	_, err = c.Download("files/report.pdf").
//		Dest("/tmp/report.pdf").
//		Checksum(sha256.New(), expectedHex).
//		OnProgress(func(n, total int64) { fmt.Println(n, total) }).
//		Request(func(resp *client.Response[string]) { ... })
//
// # Middleware
//
// [WithDebug] logs every exchange, including bodies, through the
// [github.com/adamwoolhether/httper/v2/client/logging] middleware. Tracing,
// metrics and throttling are enabled with [WithTracerProvider],
// [WithMetrics] and [WithThrottle].
package client
