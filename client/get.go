package client

import (
	"fmt"
	"maps"
	"net/http"
	"net/url"
)

// GetRequest builds a GET request. Use [Client.Get] to create one.
type GetRequest struct {
	common[GetRequest]
	query map[string]string
}

func newGetRequest(c *Client, u string) *GetRequest {
	r := &GetRequest{query: maps.Clone(c.opts.params)}
	r.common = newCommon(r, c, u)

	return r
}

// Query sets a query parameter, overriding a client default with the same key.
func (r *GetRequest) Query(key, value string) *GetRequest {
	if r.query == nil {
		r.query = make(map[string]string)
	}
	r.query[key] = value
	return r
}

// Queries sets every query parameter in q. q is copied.
func (r *GetRequest) Queries(q map[string]string) *GetRequest {
	if r.query == nil {
		r.query = make(map[string]string, len(q))
	}
	maps.Copy(r.query, q)
	return r
}

func (r *GetRequest) prepare() (*prepared, error) {
	u, err := r.compileURL()
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(r.ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("instantiating request: %w", err)
	}

	return r.finish(req), nil
}

// compileURL resolves the URL and merges the query parameters into it.
func (r *GetRequest) compileURL() (string, error) {
	raw, err := r.resolveURL()
	if err != nil {
		return "", err
	}

	// The filter may mutate the map; work on a copy so compiling twice
	// gives the same URL.
	params := maps.Clone(r.query)
	if params == nil {
		params = make(map[string]string)
	}
	r.filter(raw, params)

	return withQuery(raw, params)
}

// withQuery merges params into the query of raw. Keys in params replace
// keys already present in raw.
func withQuery(raw string, params map[string]string) (string, error) {
	if len(params) == 0 {
		return raw, nil
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", fmt.Errorf("parsing url: %w", err)
	}

	q := u.Query()
	for k, v := range params {
		q.Set(k, v)
	}
	u.RawQuery = q.Encode()

	return u.String(), nil
}
