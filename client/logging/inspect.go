package logging

import (
	"bytes"
	"io"
	"mime"
	"net/http"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/klauspost/compress/gzip"
	"golang.org/x/text/encoding/htmlindex"
)

// Mask replaces the value of redacted headers.
const Mask = "██"

const (
	sniffBytes      = 64
	sniffCodePoints = 16
)

// IsPlaintext reports whether b probably holds human readable text. It
// decodes up to 16 code points from the first 64 bytes and rejects control
// characters that are not whitespace, which are common in binary file
// signatures. A truncated UTF-8 sequence counts as binary.
func IsPlaintext(b []byte) bool {
	prefix := b[:min(len(b), sniffBytes)]

	for range sniffCodePoints {
		if len(prefix) == 0 {
			break
		}
		if !utf8.FullRune(prefix) {
			return false
		}

		r, size := utf8.DecodeRune(prefix)
		prefix = prefix[size:]

		if unicode.IsControl(r) && !unicode.IsSpace(r) {
			return false
		}
	}

	return true
}

// hasUnknownEncoding reports whether the body is encoded in a way the
// inspector cannot display.
func hasUnknownEncoding(h http.Header) bool {
	enc := h.Get("Content-Encoding")
	return enc != "" && !strings.EqualFold(enc, "identity") && !strings.EqualFold(enc, "gzip")
}

func isGzip(h http.Header) bool {
	return strings.EqualFold(h.Get("Content-Encoding"), "gzip")
}

// gunzip decompresses a copy of b. Whatever could be decoded is returned
// along with the error, so truncated bodies still display their prefix.
func gunzip(b []byte) ([]byte, error) {
	zr, err := gzip.NewReader(bytes.NewReader(b))
	if err != nil {
		return nil, err
	}
	defer zr.Close()

	return io.ReadAll(zr)
}

// decodeText converts b to a string using the charset declared by
// contentType, falling back to UTF-8.
func decodeText(b []byte, contentType string) string {
	_, params, err := mime.ParseMediaType(contentType)
	if err != nil {
		return string(b)
	}

	charset := params["charset"]
	if charset == "" || strings.EqualFold(charset, "utf-8") {
		return string(b)
	}

	enc, err := htmlindex.Get(charset)
	if err != nil {
		return string(b)
	}

	out, err := enc.NewDecoder().Bytes(b)
	if err != nil {
		return string(b)
	}

	return string(out)
}

// Redactor masks the values of a case-insensitive set of header names.
// It is immutable and safe for concurrent use.
type Redactor struct {
	names map[string]struct{}
}

// NewRedactor returns a Redactor for the given header names.
func NewRedactor(names ...string) *Redactor {
	r := &Redactor{names: make(map[string]struct{}, len(names))}
	for _, n := range names {
		r.names[http.CanonicalHeaderKey(n)] = struct{}{}
	}

	return r
}

// With returns a new Redactor that also masks names.
func (r *Redactor) With(names ...string) *Redactor {
	all := make([]string, 0, len(r.names)+len(names))
	for n := range r.names {
		all = append(all, n)
	}

	return NewRedactor(append(all, names...)...)
}

// Redacts reports whether values of header name are masked.
func (r *Redactor) Redacts(name string) bool {
	if r == nil {
		return false
	}
	_, ok := r.names[http.CanonicalHeaderKey(name)]
	return ok
}

// Value returns value, or [Mask] if name is redacted.
func (r *Redactor) Value(name, value string) string {
	if r.Redacts(name) {
		return Mask
	}

	return value
}
