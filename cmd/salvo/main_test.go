package main

import (
	"bufio"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/tidwall/gjson"
)

func TestRunSingleTarget(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	}))
	defer server.Close()

	outputPath := filepath.Join(t.TempDir(), "results.jsonl")
	code := run([]string{
		"--url", server.URL,
		"--retries", "0",
		"--output", outputPath,
		"--log-level", "error",
	})
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 1 {
		t.Fatalf("expected 1 result line, got %d", len(lines))
	}
	parsed := gjson.Parse(lines[0])
	if parsed.Get("name").String() != "request" {
		t.Errorf("expected default target name, got %s", lines[0])
	}
	if parsed.Get("status").Int() != 200 {
		t.Errorf("expected status 200, got %s", lines[0])
	}
}

func TestRunSessionFanOut(t *testing.T) {
	var mu = make(chan struct{}, 1)
	seen := map[string]bool{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		mu <- struct{}{}
		seen[r.Header.Get("X-Session")] = true
		<-mu
		w.WriteHeader(http.StatusNoContent)
	}))
	defer server.Close()

	sessionPath := filepath.Join(t.TempDir(), "sessions.txt")
	if err := os.WriteFile(sessionPath, []byte("tok-a\n\ntok-b\ntok-c\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	outputPath := filepath.Join(t.TempDir(), "results.jsonl")

	code := run([]string{
		"--url", server.URL,
		"--session-file", sessionPath,
		"--session-header-name", "X-Session",
		"--concurrency", "2",
		"--retries", "0",
		"--output", outputPath,
		"--log-level", "error",
	})
	if code != exitOK {
		t.Fatalf("expected exit 0, got %d", code)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 3 {
		t.Fatalf("expected 3 result lines, got %d", len(lines))
	}
	for _, token := range []string{"tok-a", "tok-b", "tok-c"} {
		if !seen[token] {
			t.Errorf("expected session token %q to reach the server", token)
		}
	}
}

func TestRunExitsZeroDespiteFailures(t *testing.T) {
	// Nothing listens here; every attempt is a transport failure.
	outputPath := filepath.Join(t.TempDir(), "results.jsonl")
	code := run([]string{
		"--url", "http://127.0.0.1:1",
		"--retries", "0",
		"--timeout", "500ms",
		"--output", outputPath,
		"--log-level", "error",
	})
	if code != exitOK {
		t.Fatalf("a completed run exits 0 regardless of outcomes, got %d", code)
	}

	lines := readLines(t, outputPath)
	if len(lines) != 1 {
		t.Fatalf("expected 1 result line, got %d", len(lines))
	}
	if !gjson.Parse(lines[0]).Get("error").Exists() {
		t.Errorf("expected failure outcome, got %s", lines[0])
	}
}

func TestRunValidationFailure(t *testing.T) {
	if code := run([]string{"--url", "ftp://example.com"}); code != exitError {
		t.Errorf("expected exit 1 for validation failure, got %d", code)
	}
	if code := run([]string{"--url", "http://example.com", "--concurrency", "0"}); code != exitError {
		t.Errorf("expected exit 1 for zero concurrency, got %d", code)
	}
	if code := run([]string{"--url", "http://example.com", "--json", "{}", "--data", "x"}); code != exitError {
		t.Errorf("expected exit 1 for conflicting body sources, got %d", code)
	}
}

func TestRunHelp(t *testing.T) {
	if code := run([]string{"--help"}); code != exitOK {
		t.Errorf("expected exit 0 for --help, got %d", code)
	}
}

func TestRunNoArguments(t *testing.T) {
	if code := run(nil); code != exitError {
		t.Errorf("expected exit 1 when no target is given, got %d", code)
	}
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	file, err := os.Open(path)
	if err != nil {
		t.Fatalf("open results: %v", err)
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		lines = append(lines, scanner.Text())
	}
	return lines
}
