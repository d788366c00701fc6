package client

import (
	"errors"
	"fmt"
	"hash"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/adamwoolhether/httper/v2/client/download"
	"github.com/adamwoolhether/httper/v2/client/progress"
)

// maxErrBodySize caps the amount of response body kept when a download
// receives a non-2xx status. This prevents unbounded memory usage when a
// large response arrives with a wrong status.
const maxErrBodySize = 64 << 10

// DownloadRequest builds a GET request whose body is streamed to a file.
// Use [Client.Download] to create one.
type DownloadRequest struct {
	common[DownloadRequest]
	query      map[string]string
	dest       string
	onProgress progress.Func
	dlOpts     []download.Option
	err        error
}

func newDownloadRequest(c *Client, u string) *DownloadRequest {
	r := &DownloadRequest{}
	r.common = newCommon(r, c, u)

	return r
}

// Query sets a query parameter of the download URL.
func (r *DownloadRequest) Query(key, value string) *DownloadRequest {
	if r.query == nil {
		r.query = make(map[string]string)
	}
	r.query[key] = value
	return r
}

// Dest sets the destination file. Missing parent directories are created.
func (r *DownloadRequest) Dest(path string) *DownloadRequest {
	r.dest = path
	return r
}

// DestIn sets the destination to name inside dir.
func (r *DownloadRequest) DestIn(dir, name string) *DownloadRequest {
	r.dest = filepath.Join(dir, name)
	return r
}

// OnProgress reports the transfer once at the start, at most every
// [progress.DefaultInterval] while copying, and once at the end. total is
// [progress.Unknown] when the server sends no Content-Length.
func (r *DownloadRequest) OnProgress(fn progress.Func) *DownloadRequest {
	r.onProgress = fn
	return r
}

// Checksum verifies the downloaded file against the hex-encoded digest
// expected, computed with h. A mismatch fails the call with [CodeWriteFile]
// and leaves no file behind.
func (r *DownloadRequest) Checksum(h hash.Hash, expected string) *DownloadRequest {
	if h == nil || expected == "" {
		r.err = errors.Join(r.err, errors.New("checksum needs a hash and an expected digest"))
		return r
	}
	r.dlOpts = append(r.dlOpts, download.WithChecksum(h, expected))
	return r
}

// SkipExisting completes successfully without writing when the destination
// already exists.
func (r *DownloadRequest) SkipExisting() *DownloadRequest {
	r.dlOpts = append(r.dlOpts, download.WithSkipExisting())
	return r
}

// Request submits the download without blocking. On success the response
// carries the destination path as Data. On a non-2xx status Data holds the
// start of the response body and no file is written.
func (r *DownloadRequest) Request(cb Callback[string]) (*Call[string], error) {
	p, err := r.compile()
	if err != nil {
		return nil, err
	}

	dest := r.dest
	opts := append([]download.Option(nil), r.dlOpts...)
	if fn := r.progressFunc(r.onProgress); fn != nil {
		opts = append(opts, download.WithProgress(fn))
	}

	return submit(p, cb, func(resp *http.Response) *Response[string] {
		out := newResponse[string](resp)
		defer closeBody(p.logger, resp)

		if out.Err != nil {
			raw, err := io.ReadAll(io.LimitReader(resp.Body, maxErrBodySize))
			if err != nil {
				raw = []byte("unable to read body")
			}
			out.Raw, out.Data = raw, string(raw)
			return out
		}

		ctx := p.ctx
		if resp.Request != nil {
			ctx = resp.Request.Context()
		}

		if err := download.Handle(ctx, resp.Body, resp.ContentLength, dest, p.logger, opts...); err != nil {
			out.Err = newError(downloadErrorCode(err), err)
			return out
		}
		out.Data = dest

		return out
	}), nil
}

func (r *DownloadRequest) compile() (*prepared, error) {
	if r.err != nil {
		return nil, r.err
	}
	if strings.TrimSpace(r.dest) == "" {
		return nil, ErrNoDestination
	}

	raw, err := r.resolveURL()
	if err != nil {
		return nil, err
	}

	u, err := withQuery(raw, r.query)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	return r.finish(req), nil
}

// downloadErrorCode maps a download failure to its response error code.
func downloadErrorCode(err error) int {
	switch {
	case errors.Is(err, download.ErrDownloadCancelled) || isCancellation(err):
		return CodeTransport
	case errors.Is(err, download.ErrCreateDestination):
		return CodeCreateFile
	default:
		return CodeWriteFile
	}
}

// Sentinel errors a download [Response.Err] may wrap.
var (
	ErrContentLengthMismatch = download.ErrContentLengthMismatch
	ErrChecksumMismatch      = download.ErrChecksumMismatch
)
