package httpclient

import (
	"net/http"
	"time"
)

// transport is shared by every outbound client this service creates (SMS
// providers, the backend auth primitive). Sharing keeps one connection pool
// per host instead of one per client; timeouts stay per-caller.
var transport = &http.Transport{
	MaxIdleConns:        100,
	MaxIdleConnsPerHost: 10,
	IdleConnTimeout:     90 * time.Second,
}

// New returns an HTTP client over the shared transport with the given
// overall request timeout.
func New(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: transport,
	}
}
