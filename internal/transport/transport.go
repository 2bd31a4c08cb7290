// Package transport abstracts sending a single HTTP request.
//
// Two interchangeable backends implement the same capability: a pooled
// net/http client and a raw dialer that speaks HTTP/1.1 over its own
// connection. Errors returned by a Transport are transport-level failures
// (connect, timeout, TLS, DNS); any HTTP response, whatever its status, is
// returned as a Response.
package transport

import (
	"context"
	"net/http"
	"time"
)

// Response is the result of one successfully transported attempt.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
	Elapsed    time.Duration
}

// Transport sends one request and returns the response or a transport failure.
type Transport interface {
	Do(ctx context.Context, req *http.Request) (*Response, error)
}
