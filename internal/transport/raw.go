package transport

import (
	"bufio"
	"context"
	"crypto/tls"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"time"

	"salvo/internal/config"
)

// maxRedirects caps the hops followed per attempt, matching net/http.
const maxRedirects = 10

// RawTransport executes attempts over base networking primitives: it dials a
// fresh connection per request, writes the wire form directly, and parses the
// response off the socket. With redirects disabled, 3xx responses come back
// as-is; with redirects enabled each hop uses its own connection.
type RawTransport struct {
	dialer          net.Dialer
	timeout         time.Duration
	verifyTLS       bool
	followRedirects bool
	proxy           *url.URL
}

// NewRawTransport builds the socket-level backend from the run configuration.
func NewRawTransport(cfg *config.Config) (*RawTransport, error) {
	t := &RawTransport{
		dialer:          net.Dialer{Timeout: 30 * time.Second},
		timeout:         cfg.Timeout,
		verifyTLS:       cfg.VerifyTLS,
		followRedirects: cfg.FollowRedirects,
	}
	if cfg.ProxyURL != "" {
		proxyURL, err := url.Parse(cfg.ProxyURL)
		if err != nil {
			return nil, fmt.Errorf("proxy URL: %w", err)
		}
		t.proxy = proxyURL
	}
	return t, nil
}

// Do sends one request under the configured per-attempt timeout, following
// redirects when enabled. The timeout spans all hops.
func (t *RawTransport) Do(ctx context.Context, req *http.Request) (*Response, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	start := time.Now()
	current := req
	for hop := 0; ; hop++ {
		resp, err := t.roundTrip(ctx, current)
		if err != nil {
			return nil, err
		}
		resp.Elapsed = time.Since(start)

		if !t.followRedirects {
			return resp, nil
		}
		next, redirected, err := redirectedRequest(ctx, current, resp)
		if err != nil {
			return nil, err
		}
		if !redirected {
			return resp, nil
		}
		if hop+1 >= maxRedirects {
			return nil, fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		current = next
	}
}

// roundTrip performs one exchange on a dedicated connection.
func (t *RawTransport) roundTrip(ctx context.Context, req *http.Request) (*Response, error) {
	conn, viaProxy, err := t.connect(ctx, req.URL)
	if err != nil {
		return nil, err
	}
	defer conn.Close()

	if deadline, ok := ctx.Deadline(); ok {
		if err := conn.SetDeadline(deadline); err != nil {
			return nil, err
		}
	}

	// Absolute-form request line when tunneling plain HTTP through a proxy.
	if viaProxy && req.URL.Scheme == "http" {
		err = req.WriteProxy(conn)
	} else {
		err = req.Write(conn)
	}
	if err != nil {
		return nil, fmt.Errorf("write request: %w", err)
	}

	resp, err := http.ReadResponse(bufio.NewReader(conn), req)
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       body,
	}, nil
}

// redirectedRequest derives the follow-up request for a 3xx response,
// matching net/http: 301/302/303 re-request with GET and no body, 307/308
// preserve the method and body.
func redirectedRequest(ctx context.Context, req *http.Request, resp *Response) (*http.Request, bool, error) {
	switch resp.StatusCode {
	case http.StatusMovedPermanently, http.StatusFound, http.StatusSeeOther,
		http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
	default:
		return nil, false, nil
	}
	location := resp.Header.Get("Location")
	if location == "" {
		return nil, false, nil
	}
	target, err := req.URL.Parse(location)
	if err != nil {
		return nil, false, fmt.Errorf("redirect location: %w", err)
	}

	method := req.Method
	var body io.Reader
	switch resp.StatusCode {
	case http.StatusTemporaryRedirect, http.StatusPermanentRedirect:
		if req.GetBody != nil {
			rc, err := req.GetBody()
			if err != nil {
				return nil, false, err
			}
			body = rc
		}
	default:
		if method != http.MethodGet && method != http.MethodHead {
			method = http.MethodGet
		}
	}

	next, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, false, err
	}
	next.Header = req.Header.Clone()
	if body == nil {
		next.Header.Del("Content-Type")
		next.Header.Del("Content-Length")
		next.ContentLength = 0
	} else {
		next.ContentLength = req.ContentLength
		next.GetBody = req.GetBody
	}
	return next, true, nil
}

// connect establishes the connection for one attempt, handling the direct,
// proxied-http, and CONNECT-tunneled https cases.
func (t *RawTransport) connect(ctx context.Context, target *url.URL) (net.Conn, bool, error) {
	targetAddr := hostPort(target)

	if t.proxy != nil {
		conn, err := t.dialer.DialContext(ctx, "tcp", hostPort(t.proxy))
		if err != nil {
			return nil, false, fmt.Errorf("dial proxy: %w", err)
		}
		if target.Scheme == "http" {
			return conn, true, nil
		}
		if err := t.tunnel(conn, targetAddr); err != nil {
			conn.Close()
			return nil, false, err
		}
		tlsConn, err := t.wrapTLS(conn, target.Hostname())
		if err != nil {
			conn.Close()
			return nil, false, err
		}
		return tlsConn, true, nil
	}

	conn, err := t.dialer.DialContext(ctx, "tcp", targetAddr)
	if err != nil {
		return nil, false, fmt.Errorf("dial: %w", err)
	}
	if target.Scheme == "https" {
		tlsConn, err := t.wrapTLS(conn, target.Hostname())
		if err != nil {
			conn.Close()
			return nil, false, err
		}
		return tlsConn, false, nil
	}
	return conn, false, nil
}

// tunnel issues a CONNECT handshake for https-through-proxy.
func (t *RawTransport) tunnel(conn net.Conn, targetAddr string) error {
	connect := &http.Request{
		Method: http.MethodConnect,
		URL:    &url.URL{Opaque: targetAddr},
		Host:   targetAddr,
		Header: http.Header{},
	}
	if err := connect.Write(conn); err != nil {
		return fmt.Errorf("proxy CONNECT: %w", err)
	}
	resp, err := http.ReadResponse(bufio.NewReader(conn), connect)
	if err != nil {
		return fmt.Errorf("proxy CONNECT response: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("proxy CONNECT failed: %s", resp.Status)
	}
	return nil
}

func (t *RawTransport) wrapTLS(conn net.Conn, serverName string) (net.Conn, error) {
	tlsConn := tls.Client(conn, &tls.Config{
		ServerName:         serverName,
		InsecureSkipVerify: !t.verifyTLS,
	})
	if err := tlsConn.Handshake(); err != nil {
		return nil, fmt.Errorf("tls handshake: %w", err)
	}
	return tlsConn, nil
}

func hostPort(u *url.URL) string {
	host := u.Hostname()
	port := u.Port()
	if port == "" {
		switch u.Scheme {
		case "https":
			port = "443"
		default:
			port = "80"
		}
	}
	return net.JoinHostPort(host, port)
}
