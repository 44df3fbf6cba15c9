package httpclient

import (
	"net/http"
	"time"
)

const (
	// DefaultTimeout bounds a single remote translation request. A chunk
	// that exceeds it is treated like any other failed chunk.
	DefaultTimeout = 2 * time.Minute

	// Transport tuning for stable, long-lived connections.
	MaxIdleConns        = 100
	MaxIdleConnsPerHost = 20
	IdleConnTimeout     = 120 * time.Second
	TLSHandshakeTimeout = 30 * time.Second
)

// NewClient returns a new http.Client with the specified timeout.
func NewClient(timeout time.Duration) *http.Client {
	transport := &http.Transport{
		MaxIdleConns:        MaxIdleConns,
		MaxIdleConnsPerHost: MaxIdleConnsPerHost,
		IdleConnTimeout:     IdleConnTimeout,
		TLSHandshakeTimeout: TLSHandshakeTimeout,
	}
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
