package transport_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"salvo/internal/config"
	"salvo/internal/transport"
)

func TestRawTransportReturnsResponse(t *testing.T) {
	server := newTestServer(t)
	tr, err := transport.NewRawTransport(&config.Config{Timeout: 5 * time.Second, VerifyTLS: true})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := tr.Do(context.Background(), mustRequest(t, server.URL+"/ok"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("expected body, got %q", resp.Body)
	}
	if resp.Header.Get("X-Probe") != "yes" {
		t.Errorf("expected response header, got %v", resp.Header)
	}
}

func TestRawTransportRedirectPolicy(t *testing.T) {
	server := newTestServer(t)

	noFollow, err := transport.NewRawTransport(&config.Config{Timeout: 5 * time.Second, VerifyTLS: true})
	if err != nil {
		t.Fatal(err)
	}
	resp, err := noFollow.Do(context.Background(), mustRequest(t, server.URL+"/redirect"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusFound {
		t.Errorf("redirects off: expected 302 as-is, got %d", resp.StatusCode)
	}

	follow, err := transport.NewRawTransport(&config.Config{
		Timeout:         5 * time.Second,
		VerifyTLS:       true,
		FollowRedirects: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	resp, err = follow.Do(context.Background(), mustRequest(t, server.URL+"/redirect"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Errorf("redirects on: expected 200 after following, got %d", resp.StatusCode)
	}
	if string(resp.Body) != "hello" {
		t.Errorf("expected final hop body, got %q", resp.Body)
	}
}

func TestRawTransportRedirectConvertsPostToGet(t *testing.T) {
	server := newTestServer(t)
	tr, err := transport.NewRawTransport(&config.Config{
		Timeout:         5 * time.Second,
		VerifyTLS:       true,
		FollowRedirects: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	req, err := http.NewRequest(http.MethodPost, server.URL+"/see-other", strings.NewReader("payload"))
	if err != nil {
		t.Fatal(err)
	}
	resp, err := tr.Do(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 after 303, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Method") != http.MethodGet {
		t.Errorf("303 must re-request with GET, server saw %q", resp.Header.Get("X-Method"))
	}
}

func TestRawTransportRedirectHopCap(t *testing.T) {
	server := newTestServer(t)
	tr, err := transport.NewRawTransport(&config.Config{
		Timeout:         5 * time.Second,
		VerifyTLS:       true,
		FollowRedirects: true,
	})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Do(context.Background(), mustRequest(t, server.URL+"/loop")); err == nil {
		t.Fatal("expected error once the redirect cap is hit")
	}
}

func TestRawTransportServerErrorIsNotAnError(t *testing.T) {
	server := newTestServer(t)
	tr, err := transport.NewRawTransport(&config.Config{Timeout: 5 * time.Second, VerifyTLS: true})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := tr.Do(context.Background(), mustRequest(t, server.URL+"/boom"))
	if err != nil {
		t.Fatalf("HTTP 500 must not be a transport error, got %v", err)
	}
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected 500, got %d", resp.StatusCode)
	}
}

func TestRawTransportTimeout(t *testing.T) {
	server := newTestServer(t)
	tr, err := transport.NewRawTransport(&config.Config{Timeout: 50 * time.Millisecond, VerifyTLS: true})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := tr.Do(context.Background(), mustRequest(t, server.URL+"/slow")); err == nil {
		t.Fatal("expected timeout error")
	}
}

func TestRawTransportConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	tr, err := transport.NewRawTransport(&config.Config{Timeout: time.Second, VerifyTLS: true})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := tr.Do(context.Background(), mustRequest(t, url)); err == nil {
		t.Fatal("expected connection error")
	}
}
