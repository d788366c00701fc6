package client

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"time"

	"golang.org/x/net/http2"
)

// TLSPolicy configures how server certificates are verified. Verification
// is always on: a policy can only add trust anchors or client credentials.
type TLSPolicy struct {
	// CAFile is a PEM bundle of additional trusted roots.
	CAFile string

	// RootCAs replaces the system roots when set.
	RootCAs *x509.CertPool

	// CertFile and KeyFile hold a client certificate for mutual TLS.
	CertFile string
	KeyFile  string

	// ServerName overrides the name verified against the certificate.
	ServerName string

	// MinVersion defaults to TLS 1.2.
	MinVersion uint16
}

// Validate checks that the policy is consistent.
func (p TLSPolicy) Validate() error {
	if (p.CertFile != "") != (p.KeyFile != "") {
		return errors.New("tls: cert file and key file must be provided together")
	}
	if p.MinVersion != 0 && p.MinVersion < tls.VersionTLS12 {
		return fmt.Errorf("tls: min version %#x is below TLS 1.2", p.MinVersion)
	}

	return nil
}

// Config builds the *tls.Config described by the policy.
func (p TLSPolicy) Config() (*tls.Config, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	minVersion := p.MinVersion
	if minVersion == 0 {
		minVersion = tls.VersionTLS12
	}

	cfg := &tls.Config{
		ServerName: p.ServerName,
		MinVersion: minVersion,
		RootCAs:    p.RootCAs,
	}

	if p.CAFile != "" {
		pem, err := os.ReadFile(p.CAFile)
		if err != nil {
			return nil, fmt.Errorf("tls: reading ca file: %w", err)
		}

		pool := cfg.RootCAs
		if pool == nil {
			if pool, err = x509.SystemCertPool(); err != nil {
				pool = x509.NewCertPool()
			}
		}
		if !pool.AppendCertsFromPEM(pem) {
			return nil, errors.New("tls: no certificates found in ca file")
		}
		cfg.RootCAs = pool
	}

	if p.CertFile != "" {
		cert, err := tls.LoadX509KeyPair(p.CertFile, p.KeyFile)
		if err != nil {
			return nil, fmt.Errorf("tls: loading client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}

	return cfg, nil
}

// newTransport builds the pooled transport every client of one Build shares.
// HTTP/2 is negotiated over TLS with ping health checks on idle connections.
func newTransport(policy *TLSPolicy) (*http.Transport, error) {
	tr := &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		MaxIdleConns:          100,
		MaxIdleConnsPerHost:   10,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
	}

	if policy != nil {
		cfg, err := policy.Config()
		if err != nil {
			return nil, err
		}
		tr.TLSClientConfig = cfg
	}

	h2, err := http2.ConfigureTransports(tr)
	if err != nil {
		return nil, fmt.Errorf("configuring http2: %w", err)
	}
	h2.ReadIdleTimeout = 30 * time.Second
	h2.PingTimeout = 15 * time.Second

	return tr, nil
}
