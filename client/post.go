package client

import (
	"bytes"
	"fmt"
	"io"
	"maps"
	"net/http"
	"net/url"
	"strings"
)

const (
	contentTypeJSON = "application/json; charset=utf-8"
	contentTypeText = "text/plain; charset=utf-8"
	contentTypeForm = "application/x-www-form-urlencoded"
)

// PostRequest builds a POST request. Use [Client.Post] to create one.
//
// Exactly one body is sent, chosen in this order: [PostRequest.Body],
// [PostRequest.JSON] or [PostRequest.JSONString], [PostRequest.Text], then
// the form fields.
type PostRequest struct {
	common[PostRequest]
	form map[string]string

	jsonValue   any
	jsonSet     bool
	jsonString  *string
	text        *string
	body        io.Reader
	contentType string
}

func newPostRequest(c *Client, u string) *PostRequest {
	r := &PostRequest{form: maps.Clone(c.opts.params)}
	r.common = newCommon(r, c, u)

	return r
}

// Form sets a form field, overriding a client default parameter.
func (r *PostRequest) Form(key, value string) *PostRequest {
	if r.form == nil {
		r.form = make(map[string]string)
	}
	r.form[key] = value
	return r
}

// Forms sets every form field in f. f is copied.
func (r *PostRequest) Forms(f map[string]string) *PostRequest {
	if r.form == nil {
		r.form = make(map[string]string, len(f))
	}
	maps.Copy(r.form, f)
	return r
}

// JSON sends v encoded by the client codec.
func (r *PostRequest) JSON(v any) *PostRequest {
	r.jsonValue = v
	r.jsonSet = true
	r.jsonString = nil
	return r
}

// JSONString sends s as an already encoded JSON document.
func (r *PostRequest) JSONString(s string) *PostRequest {
	r.jsonString = &s
	r.jsonValue, r.jsonSet = nil, false
	return r
}

// Text sends s as text/plain.
func (r *PostRequest) Text(s string) *PostRequest {
	r.text = &s
	return r
}

// Body sends the content of body with the given content type. Bodies that
// are not a *bytes.Buffer, *bytes.Reader or *strings.Reader are streamed
// and cannot be replayed on redirects.
func (r *PostRequest) Body(body io.Reader, contentType string) *PostRequest {
	r.body = body
	r.contentType = contentType
	return r
}

func (r *PostRequest) prepare() (*prepared, error) {
	u, err := r.resolveURL()
	if err != nil {
		return nil, err
	}

	body, contentType, err := r.compileBody(u)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodPost, u, body)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	return r.finish(req), nil
}

func (r *PostRequest) compileBody(u string) (io.Reader, string, error) {
	switch {
	case r.body != nil:
		return r.body, r.contentType, nil

	case r.jsonSet:
		b, err := r.client.opts.codec.Marshal(r.jsonValue)
		if err != nil {
			return nil, "", fmt.Errorf("encoding request payload: %w", err)
		}
		return bytes.NewReader(b), contentTypeJSON, nil

	case r.jsonString != nil:
		return strings.NewReader(*r.jsonString), contentTypeJSON, nil

	case r.text != nil:
		return strings.NewReader(*r.text), contentTypeText, nil

	case r.form != nil:
		form := maps.Clone(r.form)
		r.filter(u, form)

		values := make(url.Values, len(form))
		for k, v := range form {
			values.Set(k, v)
		}
		return strings.NewReader(values.Encode()), contentTypeForm, nil
	}

	return nil, "", ErrNoBody
}
