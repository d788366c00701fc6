package client

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
)

// Error codes reserved for failures that happen on the client side.
// Non-negative codes mirror HTTP status codes.
const (
	CodeTransport  = -101
	CodeDecode     = -102
	CodeCreateFile = -103
	CodeWriteFile  = -104
)

var (
	// ErrNoBaseURL is returned when a request URL is relative or blank and
	// the client has no base URL to resolve it against.
	ErrNoBaseURL = errors.New("no base url to resolve request url")
	// ErrNoBody is returned by a POST request without any body source.
	ErrNoBody = errors.New("post request must have a body")
	// ErrNoDestination is returned by a download without a destination path.
	ErrNoDestination = errors.New("download destination must not be empty")
)

// Error describes why a call did not produce a successful response.
// Client side failures wrap their cause, so errors.Is and errors.As see
// through it.
type Error struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
	err  error
}

func newError(code int, err error) *Error {
	return &Error{Code: code, Msg: err.Error(), err: err}
}

func (e *Error) Error() string {
	return fmt.Sprintf("httper error %d: %s", e.Code, e.Msg)
}

func (e *Error) Unwrap() error {
	return e.err
}

// Response is the outcome of a call, handed to exactly one callback.
// Data holds the decoded body on success. For string and []byte targets it
// also holds the raw body of a non-2xx response.
type Response[T any] struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Header  map[string]string `json:"header"`
	Data    T                 `json:"data"`
	Raw     []byte            `json:"-"`
	Err     *Error            `json:"error"`
}

// IsSuccess reports whether the call completed without an error.
func (r *Response[T]) IsSuccess() bool {
	return r.Err == nil
}

// Callback receives the response of a call.
type Callback[T any] func(resp *Response[T])

// RequestFilter may mutate the query, form or field map of a request before
// it is finalized, e.g. to add a signature. url is the resolved request URL.
type RequestFilter func(url string, params map[string]string)

// newResponse copies the status line and headers of resp. A non-2xx status
// is recorded as the response error.
func newResponse[T any](resp *http.Response) *Response[T] {
	out := &Response[T]{
		Code:    resp.StatusCode,
		Message: statusMessage(resp),
	}

	if len(resp.Header) > 0 {
		out.Header = make(map[string]string, len(resp.Header))
		for k := range resp.Header {
			out.Header[k] = resp.Header.Get(k)
		}
	}

	if !successful(resp.StatusCode) {
		out.Err = &Error{Code: resp.StatusCode, Msg: out.Message}
	}

	return out
}

func failure[T any](code int, err error) *Response[T] {
	return &Response[T]{Err: newError(code, err)}
}

func successful(code int) bool {
	return code >= 200 && code < 300
}

// statusMessage returns the reason phrase of the status line.
func statusMessage(resp *http.Response) string {
	if msg, ok := strings.CutPrefix(resp.Status, strconv.Itoa(resp.StatusCode)+" "); ok {
		return msg
	}

	return http.StatusText(resp.StatusCode)
}
