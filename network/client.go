// Package network provides the HTTP clients shared by the extractor and the version check.
package network

import (
	"net/http"
	"time"
)

// Client is the default HTTP client for lightweight requests such as the version check.
var Client = &http.Client{
	Timeout:   time.Minute,
	Transport: newTransport(),
}

// Options configures a client built with New.
type Options struct {
	// Timeout bounds a whole request, body included. Zero means no timeout.
	Timeout time.Duration

	// Fingerprint routes TLS connections through a browser-like handshake.
	Fingerprint bool
}

// New builds an HTTP client for extraction traffic.
func New(options Options) *http.Client {
	var transport http.RoundTripper = newTransport()
	if options.Fingerprint {
		transport = NewFingerprintTransport()
	}

	return &http.Client{
		Timeout:   options.Timeout,
		Transport: transport,
	}
}

// newTransport initializes a tuned http.Transport with larger idle pools and bounded waits.
func newTransport() *http.Transport {
	t := http.DefaultTransport.(*http.Transport).Clone()
	t.MaxIdleConns = 100
	t.MaxIdleConnsPerHost = 20
	t.MaxConnsPerHost = 50
	t.IdleConnTimeout = 30 * time.Second
	t.ResponseHeaderTimeout = 30 * time.Second
	t.ExpectContinueTimeout = 5 * time.Second
	return t
}
