// Package request resolves the run configuration and a target into concrete
// HTTP requests.
package request

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"salvo/internal/config"
	"salvo/internal/session"
)

// Builder derives fully resolved requests from the immutable configuration
// and a target. Every Build call produces a fresh request, so nothing is
// shared or mutated across attempts or workers.
type Builder struct {
	method        string
	target        *url.URL
	params        map[string]string
	headers       http.Header
	cookies       map[string]string
	body          []byte
	bodyIsJSON    bool
	sessionHeader string
	sessionCookie string
}

// NewBuilder validates the request-shaping parts of the configuration once.
func NewBuilder(cfg *config.Config) (*Builder, error) {
	if cfg == nil {
		return nil, errors.New("config cannot be nil")
	}

	target, err := url.Parse(strings.TrimSpace(cfg.TargetURL))
	if err != nil {
		return nil, fmt.Errorf("target URL: %w", err)
	}
	if target.Scheme != "http" && target.Scheme != "https" {
		return nil, fmt.Errorf("target URL scheme must be http or https, got %q", target.Scheme)
	}

	method := strings.ToUpper(strings.TrimSpace(cfg.Method))
	if method == "" {
		method = http.MethodGet
	}

	headers := http.Header{}
	for key, value := range cfg.Headers {
		trimmedKey := strings.TrimSpace(key)
		if trimmedKey == "" || strings.ContainsAny(trimmedKey, "\r\n") {
			return nil, fmt.Errorf("invalid header name %q", key)
		}
		if strings.ContainsAny(value, "\r\n") {
			return nil, fmt.Errorf("invalid header value for %s", trimmedKey)
		}
		headers.Set(http.CanonicalHeaderKey(trimmedKey), value)
	}

	return &Builder{
		method:        method,
		target:        target,
		params:        cfg.Params,
		headers:       headers,
		cookies:       cfg.Cookies,
		body:          cfg.Body,
		bodyIsJSON:    cfg.BodyIsJSON,
		sessionHeader: cfg.SessionHeader,
		sessionCookie: cfg.SessionCookie,
	}, nil
}

// Build returns a new request for one attempt against the given target.
// Configured params override same-named keys already present in the URL
// query; the session token, when present, is injected into the configured
// header and cookie.
func (b *Builder) Build(ctx context.Context, tgt session.Target) (*http.Request, error) {
	if b == nil {
		return nil, errors.New("builder cannot be nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}

	u := *b.target
	if len(b.params) > 0 {
		query := u.Query()
		for key, value := range b.params {
			query.Set(key, value)
		}
		u.RawQuery = query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, b.method, u.String(), bytes.NewReader(b.body))
	if err != nil {
		return nil, err
	}
	req.ContentLength = int64(len(b.body))
	req.GetBody = func() (io.ReadCloser, error) {
		return io.NopCloser(bytes.NewReader(b.body)), nil
	}

	for key, values := range b.headers {
		for _, val := range values {
			req.Header.Add(key, val)
		}
	}

	if tgt.Token != "" && b.sessionHeader != "" {
		req.Header.Set(b.sessionHeader, tgt.Token)
	}

	for name, value := range b.cookies {
		req.AddCookie(&http.Cookie{Name: name, Value: value})
	}
	if tgt.Token != "" && b.sessionCookie != "" {
		req.AddCookie(&http.Cookie{Name: b.sessionCookie, Value: tgt.Token})
	}

	// Default the content type only for JSON bodies and only when the caller
	// has not supplied any Content-Type of their own.
	if b.bodyIsJSON && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", "application/json")
	}

	return req, nil
}
