// Package httper exposes the client builder.
package httper

import (
	"github.com/adamwoolhether/httper/v2/client"
	"github.com/adamwoolhether/httper/v2/config"
)

// NewClient instantiates a new *Client with the provided options.
// If not specified, a pooled HTTP/2 capable transport is used.
func NewClient(opts ...client.Option) (*client.Client, error) {
	return client.Build(opts...)
}

// NewClientFromConfig loads settings from the config file at path and the
// HTTPER_* environment, then builds a client with opts applied last.
func NewClientFromConfig(path string, opts ...client.Option) (*client.Client, error) {
	var loadOpts []config.LoadOption
	if path != "" {
		loadOpts = append(loadOpts, config.WithFile(path))
	}

	s, err := config.Load(loadOpts...)
	if err != nil {
		return nil, err
	}

	return s.Client(opts...)
}
