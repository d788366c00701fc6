package logging

import (
	"bytes"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"testing"

	"github.com/klauspost/compress/gzip"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) {
	return f(r)
}

func newLogger() (*slog.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	return slog.New(slog.NewTextHandler(&buf, nil)), &buf
}

func respond(r *http.Request, header http.Header, body []byte) *http.Response {
	if header == nil {
		header = make(http.Header)
	}
	return &http.Response{
		StatusCode:    http.StatusOK,
		Status:        "200 OK",
		Proto:         "HTTP/1.1",
		Header:        header,
		Body:          io.NopCloser(bytes.NewReader(body)),
		ContentLength: int64(len(body)),
		Request:       r,
	}
}

func gzipBytes(t *testing.T, s string) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	if _, err := zw.Write([]byte(s)); err != nil {
		t.Fatalf("gzip write: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("gzip close: %v", err)
	}

	return buf.Bytes()
}

func TestIsPlaintext(t *testing.T) {
	testCases := []struct {
		name  string
		input []byte
		exp   bool
	}{
		{name: "empty", input: nil, exp: true},
		{name: "ascii", input: []byte("hello, world"), exp: true},
		{name: "whitespace", input: []byte("a\tb\r\nc"), exp: true},
		{name: "multibyte", input: []byte("héllo 世界"), exp: true},
		{name: "leading control bytes", input: []byte{0x00, 0x01, 0x02, 'a'}, exp: false},
		{name: "delete char", input: []byte("abc\x7f"), exp: false},
		{name: "truncated utf8", input: []byte{'a', 0xe4, 0xb8}, exp: false},
		{name: "control after 16 code points", input: []byte(strings.Repeat("a", 16) + "\x00"), exp: true},
		{name: "png signature", input: []byte("\x89PNG\r\n\x1a\n"), exp: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			if got := IsPlaintext(tc.input); got != tc.exp {
				t.Errorf("exp %v, got %v", tc.exp, got)
			}
		})
	}
}

func TestRedactor(t *testing.T) {
	r := NewRedactor("authorization")

	if got := r.Value("Authorization", "Bearer x"); got != Mask {
		t.Errorf("exp mask, got %q", got)
	}
	if got := r.Value("X-Trace", "abc"); got != "abc" {
		t.Errorf("exp value untouched, got %q", got)
	}

	r2 := r.With("X-API-KEY")
	if !r2.Redacts("x-api-key") || !r2.Redacts("AUTHORIZATION") {
		t.Error("exp derived redactor to mask both headers")
	}
	if r.Redacts("X-Api-Key") {
		t.Error("exp original redactor unchanged")
	}
}

func TestRoundTrip_RequestBody(t *testing.T) {
	logger, out := newLogger()

	var seen string
	rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		b, _ := io.ReadAll(r.Body)
		seen = string(b)
		return respond(r, nil, nil), nil
	}), WithLogger(logger))

	req, err := http.NewRequest(http.MethodPost, "http://example.test/echo", strings.NewReader("a=1"))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()

	if seen != "a=1" {
		t.Errorf("exp transport to receive the full body, got %q", seen)
	}

	logs := out.String()
	for _, want := range []string{"--> POST", "http://example.test/echo", "a=1", "3-byte body"} {
		if !strings.Contains(logs, want) {
			t.Errorf("exp logs to contain %q:\n%s", want, logs)
		}
	}
}

func TestRoundTrip_RequestBodyOmitted(t *testing.T) {
	testCases := []struct {
		name  string
		build func() *http.Request
		exp   string
	}{
		{
			name: "streaming",
			build: func() *http.Request {
				req, _ := http.NewRequest(http.MethodPost, "http://example.test", io.MultiReader(strings.NewReader("x")))
				return req
			},
			exp: "streaming body omitted",
		},
		{
			name: "unknown encoding",
			build: func() *http.Request {
				req, _ := http.NewRequest(http.MethodPost, "http://example.test", strings.NewReader("x"))
				req.Header.Set("Content-Encoding", "br")
				return req
			},
			exp: "encoded body omitted",
		},
		{
			name: "binary",
			build: func() *http.Request {
				req, _ := http.NewRequest(http.MethodPost, "http://example.test", bytes.NewReader([]byte{0, 1, 2, 3}))
				return req
			},
			exp: "binary 4-byte body omitted",
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			logger, out := newLogger()
			rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
				return respond(r, nil, nil), nil
			}), WithLogger(logger))

			resp, err := rt.RoundTrip(tc.build())
			if err != nil {
				t.Fatalf("round trip: %v", err)
			}
			resp.Body.Close()

			if !strings.Contains(out.String(), tc.exp) {
				t.Errorf("exp logs to contain %q:\n%s", tc.exp, out.String())
			}
		})
	}
}

func TestRoundTrip_ResponseUntouched(t *testing.T) {
	const body = `{"a":"1"}`
	logger, out := newLogger()

	rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(r, http.Header{"Content-Type": {"application/json"}}, []byte(body)), nil
	}), WithLogger(logger))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer resp.Body.Close()

	got, _ := io.ReadAll(resp.Body)
	if string(got) != body {
		t.Errorf("exp consumer to read %q, got %q", body, got)
	}

	if !strings.Contains(out.String(), "9-byte body") {
		t.Errorf("exp size in logs:\n%s", out.String())
	}
}

func TestRoundTrip_Gzip(t *testing.T) {
	const text = "hello gzip world"
	compressed := gzipBytes(t, text)
	logger, out := newLogger()

	rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(r, http.Header{"Content-Encoding": {"gzip"}}, compressed), nil
	}), WithLogger(logger))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer resp.Body.Close()

	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, compressed) {
		t.Error("exp consumer to receive the untouched compressed stream")
	}

	logs := out.String()
	if !strings.Contains(logs, text) {
		t.Errorf("exp decompressed text in logs:\n%s", logs)
	}
	if !strings.Contains(logs, "gzipped-byte body") {
		t.Errorf("exp compressed size in logs:\n%s", logs)
	}
}

func TestRoundTrip_BinaryResponse(t *testing.T) {
	logger, out := newLogger()
	payload := []byte{0x00, 0x01, 0x02, 0xff}

	rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(r, nil, payload), nil
	}), WithLogger(logger))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer resp.Body.Close()

	got, _ := io.ReadAll(resp.Body)
	if !bytes.Equal(got, payload) {
		t.Errorf("exp %v, got %v", payload, got)
	}
	if !strings.Contains(out.String(), "binary 4-byte body omitted") {
		t.Errorf("exp binary marker in logs:\n%s", out.String())
	}
}

func TestRoundTrip_BodyLimit(t *testing.T) {
	logger, out := newLogger()
	payload := strings.Repeat("x", 100)

	rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(r, nil, []byte(payload)), nil
	}), WithLogger(logger), WithBodyLimit(10))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	defer resp.Body.Close()

	got, _ := io.ReadAll(resp.Body)
	if string(got) != payload {
		t.Errorf("exp full body for consumer, got %d bytes", len(got))
	}
	if !strings.Contains(out.String(), "10-byte body, truncated") {
		t.Errorf("exp truncation marker in logs:\n%s", out.String())
	}
}

func TestRoundTrip_RedactsHeaders(t *testing.T) {
	logger, out := newLogger()

	rt := New(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return respond(r, http.Header{"Set-Cookie": {"session=secret-cookie"}}, nil), nil
	}), WithLogger(logger), WithRedactedHeaders("authorization", "set-cookie"))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	req.Header.Set("Authorization", "Bearer secret-token")
	req.Header.Set("X-Visible", "shown")

	resp, err := rt.RoundTrip(req)
	if err != nil {
		t.Fatalf("round trip: %v", err)
	}
	resp.Body.Close()

	logs := out.String()
	if strings.Contains(logs, "secret-token") || strings.Contains(logs, "secret-cookie") {
		t.Errorf("exp secrets to be redacted:\n%s", logs)
	}
	if !strings.Contains(logs, Mask) {
		t.Errorf("exp mask in logs:\n%s", logs)
	}
	if !strings.Contains(logs, "shown") {
		t.Errorf("exp unredacted header in logs:\n%s", logs)
	}
}

func TestRoundTrip_Failure(t *testing.T) {
	logger, out := newLogger()
	wantErr := errors.New("dial tcp: refused")

	rt := Middleware(WithLogger(logger))(roundTripFunc(func(r *http.Request) (*http.Response, error) {
		return nil, wantErr
	}))

	req, _ := http.NewRequest(http.MethodGet, "http://example.test/", nil)
	if _, err := rt.RoundTrip(req); !errors.Is(err, wantErr) {
		t.Errorf("exp %v, got %v", wantErr, err)
	}

	if !strings.Contains(out.String(), "HTTP FAILED") {
		t.Errorf("exp failure in logs:\n%s", out.String())
	}
}
