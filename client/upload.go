package client

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"maps"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"slices"

	"github.com/gabriel-vasile/mimetype"

	"github.com/adamwoolhether/httper/v2/client/progress"
)

const contentTypeOctetStream = "application/octet-stream"

// UploadRequest builds a multipart/form-data POST request. Use
// [Client.Upload] to create one.
//
// The body is streamed: files are opened only while their part is being
// sent, and the total length is computed up front so the request carries a
// Content-Length.
type UploadRequest struct {
	common[UploadRequest]
	fields     map[string]string
	parts      map[string]stringPart
	files      map[string][]filePart
	sniff      bool
	onProgress progress.Func
}

type stringPart struct {
	value       string
	contentType string
}

type filePart struct {
	path        string
	contentType string
}

func newUploadRequest(c *Client, u string) *UploadRequest {
	r := &UploadRequest{
		fields: make(map[string]string),
		parts:  make(map[string]stringPart),
		files:  make(map[string][]filePart),
	}
	r.common = newCommon(r, c, u)

	return r
}

// Field adds a plain form field.
func (r *UploadRequest) Field(name, value string) *UploadRequest {
	r.fields[name] = value
	return r
}

// Fields adds every form field in f. f is copied.
func (r *UploadRequest) Fields(f map[string]string) *UploadRequest {
	maps.Copy(r.fields, f)
	return r
}

// Part adds a named string part with its own content type. An empty
// contentType sends the part without a Content-Type header.
func (r *UploadRequest) Part(name, value, contentType string) *UploadRequest {
	r.parts[name] = stringPart{value: value, contentType: contentType}
	return r
}

// File adds the file at path under name. The content type is looked up by
// file extension and defaults to application/octet-stream. A name may carry
// several files.
func (r *UploadRequest) File(name, path string) *UploadRequest {
	return r.FileWithType(name, path, "")
}

// FileWithType adds the file at path under name with an explicit content type.
func (r *UploadRequest) FileWithType(name, path, contentType string) *UploadRequest {
	r.files[name] = append(r.files[name], filePart{path: path, contentType: contentType})
	return r
}

// SniffContentType detects the content type of files whose extension is
// unknown from their first bytes instead of sending application/octet-stream.
// A file that cannot be read for detection keeps the default.
func (r *UploadRequest) SniffContentType() *UploadRequest {
	r.sniff = true
	return r
}

// OnProgress reports every write of the request body as (sent, total).
func (r *UploadRequest) OnProgress(fn progress.Func) *UploadRequest {
	r.onProgress = fn
	return r
}

func (r *UploadRequest) prepare() (*prepared, error) {
	u, err := r.resolveURL()
	if err != nil {
		return nil, err
	}

	fields := maps.Clone(r.fields)
	r.filter(u, fields)

	body, err := r.compileBody(fields)
	if err != nil {
		return nil, err
	}

	stream, err := body.open()
	if err != nil {
		return nil, err
	}

	var rc io.ReadCloser = stream
	if fn := r.progressFunc(r.onProgress); fn != nil {
		rc = progress.NewReader(stream, body.size, fn)
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, u, rc)
	if err != nil {
		stream.Close()
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	req.ContentLength = body.size
	req.GetBody = func() (io.ReadCloser, error) { return body.open() }
	req.Header.Set("Content-Type", body.contentType)

	return r.finish(req), nil
}

// multipartBody describes a multipart payload as a sequence of in-memory
// segments and files.
type multipartBody struct {
	segments    []segment
	size        int64
	contentType string
}

type segment struct {
	data []byte
	path string
}

// compileBody lays out the parts in a deterministic order: fields, string
// parts, then files, each sorted by name.
func (r *UploadRequest) compileBody(fields map[string]string) (*multipartBody, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	body := &multipartBody{contentType: mw.FormDataContentType()}

	flush := func() {
		if buf.Len() == 0 {
			return
		}
		body.segments = append(body.segments, segment{data: bytes.Clone(buf.Bytes())})
		body.size += int64(buf.Len())
		buf.Reset()
	}

	for _, name := range slices.Sorted(maps.Keys(fields)) {
		if err := mw.WriteField(name, fields[name]); err != nil {
			return nil, fmt.Errorf("writing field %q: %w", name, err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(r.parts)) {
		p := r.parts[name]

		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{"name": name}))
		if p.contentType != "" {
			h.Set("Content-Type", p.contentType)
		}

		w, err := mw.CreatePart(h)
		if err != nil {
			return nil, fmt.Errorf("creating part %q: %w", name, err)
		}
		if _, err := io.WriteString(w, p.value); err != nil {
			return nil, fmt.Errorf("writing part %q: %w", name, err)
		}
	}

	for _, name := range slices.Sorted(maps.Keys(r.files)) {
		for _, f := range r.files[name] {
			fi, err := os.Stat(f.path)
			if err != nil {
				return nil, fmt.Errorf("upload file %q: %w", name, err)
			}
			if fi.IsDir() {
				return nil, fmt.Errorf("upload file %q: %s is a directory", name, f.path)
			}

			contentType := detectContentType(f, r.sniff)

			h := make(textproto.MIMEHeader)
			h.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
				"name":     name,
				"filename": filepath.Base(f.path),
			}))
			h.Set("Content-Type", contentType)

			if _, err := mw.CreatePart(h); err != nil {
				return nil, fmt.Errorf("creating part %q: %w", name, err)
			}

			flush()
			body.segments = append(body.segments, segment{path: f.path})
			body.size += fi.Size()
		}
	}

	if err := mw.Close(); err != nil {
		return nil, fmt.Errorf("closing multipart writer: %w", err)
	}
	flush()

	return body, nil
}

// open returns a fresh reader over the whole payload.
func (b *multipartBody) open() (io.ReadCloser, error) {
	return &multipartStream{segments: b.segments}, nil
}

// multipartStream reads segments in order, opening files lazily.
type multipartStream struct {
	segments []segment
	cur      io.Reader
	file     *os.File
}

func (s *multipartStream) Read(p []byte) (int, error) {
	for {
		if s.cur == nil {
			if len(s.segments) == 0 {
				return 0, io.EOF
			}

			seg := s.segments[0]
			s.segments = s.segments[1:]

			if seg.path == "" {
				s.cur = bytes.NewReader(seg.data)
				continue
			}

			f, err := os.Open(seg.path)
			if err != nil {
				return 0, fmt.Errorf("opening upload file: %w", err)
			}
			s.file, s.cur = f, f
		}

		n, err := s.cur.Read(p)
		if errors.Is(err, io.EOF) {
			if cerr := s.closeFile(); cerr != nil {
				return n, cerr
			}
			s.cur = nil
			if n > 0 {
				return n, nil
			}
			continue
		}

		return n, err
	}
}

func (s *multipartStream) Close() error {
	s.segments = nil
	s.cur = nil
	return s.closeFile()
}

func (s *multipartStream) closeFile() error {
	if s.file == nil {
		return nil
	}

	err := s.file.Close()
	s.file = nil

	return err
}

// detectContentType resolves a file part's content type: explicit, then by
// extension, then by content when sniff is set, then octet-stream.
func detectContentType(f filePart, sniff bool) string {
	if f.contentType != "" {
		return f.contentType
	}

	if ct := mime.TypeByExtension(filepath.Ext(f.path)); ct != "" {
		return ct
	}

	if sniff {
		if mt, err := mimetype.DetectFile(f.path); err == nil {
			return mt.String()
		}
	}

	return contentTypeOctetStream
}
